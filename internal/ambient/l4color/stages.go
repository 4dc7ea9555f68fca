package l4color

import (
	"math"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// gammaTable precomputes 255*(v/255)^gamma for every byte.
type gammaTable [256]uint8

func newGammaTable(gamma float64) *gammaTable {
	var t gammaTable
	for v := range t {
		t[v] = l1frames.ClampByte(int(math.Round(255 * math.Pow(float64(v)/255, gamma))))
	}
	return &t
}

func (t *gammaTable) apply(c l1frames.ColorRGB) l1frames.ColorRGB {
	return l1frames.ColorRGB{R: t[c.R], G: t[c.G], B: t[c.B]}
}

// Gamma applies channel' = 255*(channel/255)^gamma to each channel.
func Gamma(c l1frames.ColorRGB, gamma float64) l1frames.ColorRGB {
	return newGammaTable(gamma).apply(c)
}

// LuminosityFloor raises the HSB brightness of c to at least minimum, a
// fraction in [0,1].
func LuminosityFloor(c l1frames.ColorRGB, minimum float64) l1frames.ColorRGB {
	hsv := ToHSV(c)
	if hsv.V >= minimum {
		return c
	}
	hsv.V = minimum
	return hsv.RGB()
}

// BrightnessLimit clamps the HSL lightness of c to ceiling, a fraction in
// (0,1].
func BrightnessLimit(c l1frames.ColorRGB, ceiling float64) l1frames.ColorRGB {
	hsl := ToHSL(c)
	if hsl.L <= ceiling {
		return c
	}
	hsl.L = ceiling
	return hsl.RGB()
}
