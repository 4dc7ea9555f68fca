package l4color

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// Sector is one of the six 60° hue sectors, or one of the two pseudo
// sectors GREY and MASTER.
type Sector int

const (
	Red Sector = iota
	Yellow
	Green
	Cyan
	Blue
	Magenta
	Grey
	Master
	numSectors
)

var sectorNames = [numSectors]string{"red", "yellow", "green", "cyan", "blue", "magenta", "grey", "master"}

func (s Sector) String() string {
	if s < 0 || s >= numSectors {
		return fmt.Sprintf("sector(%d)", int(s))
	}
	return sectorNames[s]
}

// ParseSector converts a configuration key into a Sector.
func ParseSector(name string) (Sector, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range sectorNames {
		if n == name {
			return Sector(i), nil
		}
	}
	return 0, fmt.Errorf("unknown hue sector %q", name)
}

const (
	DefaultGreyTolerance  = 0.05
	DefaultBlendTolerance = 20.0
	sectorWidth           = 60.0
)

// HueCorrection is one sector's adjustment. HueShift is in degrees;
// Saturation and Lightness are added to the [0,1] HSL components.
type HueCorrection struct {
	HueShift   float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`
}

// IsZero reports whether the correction changes nothing.
func (h HueCorrection) IsZero() bool {
	return h == HueCorrection{}
}

// plus returns h with w times o added to every field.
func (h HueCorrection) plus(o HueCorrection, w float64) HueCorrection {
	return HueCorrection{
		HueShift:   h.HueShift + o.HueShift*w,
		Saturation: h.Saturation + o.Saturation*w,
		Lightness:  h.Lightness + o.Lightness*w,
	}
}

// HueMap holds a correction per sector, indexed by Sector.
type HueMap [numSectors]HueCorrection

// IsZero reports whether every sector is neutral.
func (m *HueMap) IsZero() bool {
	for _, c := range m {
		if !c.IsZero() {
			return false
		}
	}
	return true
}

// Set replaces the correction for one sector.
func (m *HueMap) Set(s Sector, c HueCorrection) {
	m[s] = c
}

// SectorOf returns the chromatic sector containing hue h. Sectors are
// centred on multiples of 60° and include their lower boundary, so RED
// covers [330,360) and [0,30). ok is false only for a non-finite hue.
func SectorOf(h float64) (s Sector, ok bool) {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, false
	}
	k := int(math.Floor(wrapHue(h+sectorWidth/2) / sectorWidth))
	if k < 0 || k > int(Magenta) {
		return 0, false
	}
	return Sector(k), true
}

// Blended returns the correction for hue h inside sector s, mixing in the
// nearest neighbouring sector when h is within tol degrees of the shared
// boundary. The neighbour's correction is added with a weight rising
// linearly from 0 at tol degrees to 1 on the boundary, so both sides give
// own+neighbour there.
func (m *HueMap) Blended(h float64, s Sector, tol float64) HueCorrection {
	own := m[s]
	if tol <= 0 {
		return own
	}
	lower := wrapHue(float64(s)*sectorWidth - sectorWidth/2)
	pos := wrapHue(h - lower)
	toLower, toUpper := pos, sectorWidth-pos

	d, neighbour := toLower, (s+5)%6
	if toUpper < toLower {
		d, neighbour = toUpper, (s+1)%6
	}
	if d >= tol {
		return own
	}
	return own.plus(m[neighbour], 1-d/tol)
}

// hueStage applies the sector corrections to one colour.
type hueStage struct {
	m              *HueMap
	greyTolerance  float64
	blendTolerance float64
}

func (st hueStage) apply(c l1frames.ColorRGB) l1frames.ColorRGB {
	hsl := ToHSL(c)
	grey := hsl.S <= st.greyTolerance

	master := st.m[Master]
	hsl.S += master.Saturation
	hsl.L += master.Lightness

	if grey {
		hsl.L *= 1 + st.m[Grey].Lightness
		hsl.S, hsl.L = clamp01(hsl.S), clamp01(hsl.L)
		return hsl.RGB()
	}

	sector, ok := SectorOf(hsl.H)
	if !ok {
		opsf("hue %.3f outside every sector for %s, passing through", hsl.H, c)
		return c
	}
	corr := st.m.Blended(hsl.H, sector, st.blendTolerance)
	hsl.H = wrapHue(hsl.H + corr.HueShift + master.HueShift)
	hsl.S = clamp01(hsl.S + corr.Saturation)
	hsl.L = clamp01(hsl.L + corr.Lightness)
	return hsl.RGB()
}
