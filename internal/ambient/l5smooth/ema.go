package l5smooth

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// EMA is an exponential moving average over whole colour arrays:
//
//	out[i] = alpha*cur[i] + (1-alpha)*prev[i]
type EMA struct {
	alpha float64
	cur   []float64
}

// NewEMA returns an EMA with weight alpha on the newest frame.
func NewEMA(alpha float64) (*EMA, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("ema alpha must be in (0,1), got %v", alpha)
	}
	return &EMA{alpha: alpha}, nil
}

// Alpha returns the configured weight.
func (e *EMA) Alpha() float64 {
	return e.alpha
}

// Step smooths cur against st.Previous and records the result as the new
// history. When the history is empty or sized for a different zone count,
// it is reseeded from cur and cur is returned unchanged.
func (e *EMA) Step(st *State, cur []l1frames.ColorRGB) []l1frames.ColorRGB {
	e.cur = toFloats(e.cur, cur)
	if len(st.Previous) != len(e.cur) {
		if len(st.Previous) > 0 {
			diagf("ema history sized for %d zones, reseeding for %d", len(st.Previous)/3, len(cur))
		}
		st.Previous = append(st.Previous[:0], e.cur...)
		return append([]l1frames.ColorRGB(nil), cur...)
	}

	floats.Scale(1-e.alpha, st.Previous)
	floats.AddScaled(st.Previous, e.alpha, e.cur)
	return fromFloats(nil, st.Previous)
}
