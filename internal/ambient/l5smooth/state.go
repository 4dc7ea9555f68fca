package l5smooth

import (
	"math"
	"time"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// State is the history one smoother carries between frames. It is owned by
// a single Smoother and never shared.
type State struct {
	// Previous is the EMA history, three channels per zone, kept unrounded
	// so slow fades do not stall on integer steps.
	Previous []float64

	// LastFrame is the last real frame handed to the interpolator; the next
	// frame is blended from it.
	LastFrame []l1frames.ColorRGB

	// LastRender is when the interpolator last emitted a real frame.
	LastRender time.Time
}

// Reset discards all history.
func (s *State) Reset() {
	s.Previous = nil
	s.LastFrame = nil
	s.LastRender = time.Time{}
}

// Zones returns the zone count the state is sized for, or 0 when empty.
func (s State) Zones() int {
	if len(s.Previous) > 0 {
		return len(s.Previous) / 3
	}
	return len(s.LastFrame)
}

// Fits reports whether the state can be used for n zones without reseeding.
func (s State) Fits(n int) bool {
	z := s.Zones()
	return z == 0 || z == n
}

func toFloats(dst []float64, colors []l1frames.ColorRGB) []float64 {
	if cap(dst) < len(colors)*3 {
		dst = make([]float64, len(colors)*3)
	}
	dst = dst[:len(colors)*3]
	for i, c := range colors {
		dst[3*i] = float64(c.R)
		dst[3*i+1] = float64(c.G)
		dst[3*i+2] = float64(c.B)
	}
	return dst
}

func fromFloats(dst []l1frames.ColorRGB, v []float64) []l1frames.ColorRGB {
	n := len(v) / 3
	if cap(dst) < n {
		dst = make([]l1frames.ColorRGB, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = l1frames.ColorRGB{
			R: l1frames.ClampByte(int(math.Round(v[3*i]))),
			G: l1frames.ClampByte(int(math.Round(v[3*i+1]))),
			B: l1frames.ClampByte(int(math.Round(v[3*i+2]))),
		}
	}
	return dst
}
