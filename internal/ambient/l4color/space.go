package l4color

import (
	"math"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// HSL is hue in degrees [0,360) with saturation and lightness in [0,1].
type HSL struct {
	H, S, L float64
}

// HSV is hue in degrees [0,360) with saturation and value (brightness) in
// [0,1].
type HSV struct {
	H, S, V float64
}

func channels(c l1frames.ColorRGB) (r, g, b float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

func toByte(v float64) uint8 {
	return l1frames.ClampByte(int(math.Round(v * 255)))
}

func hueOf(r, g, b, hi, delta float64) float64 {
	if delta == 0 {
		return 0
	}
	var h float64
	switch hi {
	case r:
		h = math.Mod((g-b)/delta, 6)
	case g:
		h = (b-r)/delta + 2
	default:
		h = (r-g)/delta + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h
}

// ToHSL converts an 8-bit colour to HSL.
func ToHSL(c l1frames.ColorRGB) HSL {
	r, g, b := channels(c)
	hi := max(r, g, b)
	lo := min(r, g, b)
	delta := hi - lo
	l := (hi + lo) / 2
	var s float64
	if delta != 0 {
		s = delta / (1 - math.Abs(2*l-1))
	}
	return HSL{H: hueOf(r, g, b, hi, delta), S: s, L: l}
}

// RGB converts back to an 8-bit colour, rounding to nearest.
func (x HSL) RGB() l1frames.ColorRGB {
	s, l := clamp01(x.S), clamp01(x.L)
	chroma := (1 - math.Abs(2*l-1)) * s
	m := l - chroma/2
	r, g, b := sectorRGB(x.H, chroma)
	return l1frames.ColorRGB{R: toByte(r + m), G: toByte(g + m), B: toByte(b + m)}
}

// ToHSV converts an 8-bit colour to HSV.
func ToHSV(c l1frames.ColorRGB) HSV {
	r, g, b := channels(c)
	hi := max(r, g, b)
	lo := min(r, g, b)
	delta := hi - lo
	var s float64
	if hi != 0 {
		s = delta / hi
	}
	return HSV{H: hueOf(r, g, b, hi, delta), S: s, V: hi}
}

// RGB converts back to an 8-bit colour, rounding to nearest.
func (x HSV) RGB() l1frames.ColorRGB {
	s, v := clamp01(x.S), clamp01(x.V)
	chroma := v * s
	m := v - chroma
	r, g, b := sectorRGB(x.H, chroma)
	return l1frames.ColorRGB{R: toByte(r + m), G: toByte(g + m), B: toByte(b + m)}
}

// sectorRGB returns the chroma-only channels for hue h.
func sectorRGB(h, chroma float64) (r, g, b float64) {
	h = wrapHue(h)
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	switch {
	case h < 60:
		return chroma, x, 0
	case h < 120:
		return x, chroma, 0
	case h < 180:
		return 0, chroma, x
	case h < 240:
		return 0, x, chroma
	case h < 300:
		return x, 0, chroma
	default:
		return chroma, 0, x
	}
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
