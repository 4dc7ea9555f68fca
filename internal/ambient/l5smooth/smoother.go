package l5smooth

import (
	"context"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// Smoother chains the optional EMA and interpolation stages over one owned
// State. Either stage may be nil.
type Smoother struct {
	EMA          *EMA
	Interpolator *Interpolator

	state State
}

// NewSmoother returns a smoother over the given stages.
func NewSmoother(ema *EMA, ip *Interpolator) *Smoother {
	return &Smoother{EMA: ema, Interpolator: ip}
}

// Reset discards the history, as required whenever the zone count changes.
func (s *Smoother) Reset() {
	s.state.Reset()
}

// State returns a copy of the current history for inspection.
func (s *Smoother) State() State {
	return State{
		Previous:   append([]float64(nil), s.state.Previous...),
		LastFrame:  append([]l1frames.ColorRGB(nil), s.state.LastFrame...),
		LastRender: s.state.LastRender,
	}
}

// Process runs cur through the enabled stages and hands every resulting
// frame to emit. It returns the number of frames emitted.
func (s *Smoother) Process(ctx context.Context, cur []l1frames.ColorRGB, emit EmitFunc) int {
	if !s.state.Fits(len(cur)) {
		diagf("smoothing state sized for %d zones, frame has %d: reseeding", s.state.Zones(), len(cur))
		s.state.Reset()
	}
	if s.EMA != nil {
		cur = s.EMA.Step(&s.state, cur)
	}
	if s.Interpolator != nil {
		return s.Interpolator.Run(ctx, &s.state, cur, emit)
	}
	emit(cur)
	return 1
}
