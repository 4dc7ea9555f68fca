package l5smooth

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/timeutil"
)

// DefaultHeadroom is shaved off every pacing sleep to leave time for the
// output transport.
const DefaultHeadroom = 2 * time.Millisecond

// EmitFunc receives each frame the interpolator produces, real or
// synthesised. The slice is only valid for the duration of the call.
type EmitFunc func(colors []l1frames.ColorRGB)

// InterpolatorConfig configures frame interpolation.
type InterpolatorConfig struct {
	// SourceFPS is the capture rate, TargetFPS the desired output rate.
	SourceFPS int
	TargetFPS int

	// Headroom is subtracted from each pacing sleep.
	Headroom time.Duration

	// MinInterval is the shortest gap between two real frames that is still
	// treated as on schedule. Zero means half a sub-frame period.
	MinInterval time.Duration

	Clock timeutil.Clock
}

// Interpolator raises the perceived output rate by emitting linear blends
// between consecutive source frames, sleeping between emissions so output
// leaves at the target rate.
type Interpolator struct {
	clock       timeutil.Clock
	frames      int
	step        time.Duration
	minInterval time.Duration

	prev, cur, diff, mix []float64
	out                  []l1frames.ColorRGB

	dropped uint64
}

// NewInterpolator validates cfg. A target at or below the source rate
// yields an interpolator that passes frames straight through.
func NewInterpolator(cfg InterpolatorConfig) (*Interpolator, error) {
	if cfg.SourceFPS <= 0 {
		return nil, fmt.Errorf("source fps must be positive, got %d", cfg.SourceFPS)
	}
	if cfg.TargetFPS < 0 {
		return nil, fmt.Errorf("target fps must not be negative, got %d", cfg.TargetFPS)
	}
	if cfg.Headroom < 0 {
		return nil, fmt.Errorf("headroom must not be negative, got %v", cfg.Headroom)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	frames := 0
	if cfg.TargetFPS > cfg.SourceFPS {
		frames = (cfg.TargetFPS - cfg.SourceFPS) / cfg.SourceFPS
	}
	frameTime := time.Second / time.Duration(cfg.SourceFPS)
	sub := frameTime / time.Duration(frames+1)
	step := max(sub-cfg.Headroom, 0)
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = sub / 2
	}
	return &Interpolator{clock: clock, frames: frames, step: step, minInterval: minInterval}, nil
}

// FramesToCompute returns the number of intermediate frames per source
// frame.
func (ip *Interpolator) FramesToCompute() int {
	return ip.frames
}

// Step returns the pacing sleep between emissions.
func (ip *Interpolator) Step() time.Duration {
	return ip.step
}

// Dropped returns how many cycles skipped their intermediate frames because
// the source was catching up.
func (ip *Interpolator) Dropped() uint64 {
	return ip.dropped
}

// Run emits the intermediate frames between st.LastFrame and cur followed
// by cur itself, and returns how many frames were emitted. Intermediate i
// of n is prev + (cur-prev)*i/(n+1). When the previous real frame went out
// less than MinInterval ago the intermediates are dropped and cur is
// emitted at once. A cancelled ctx stops pacing but cur is still emitted so
// the state stays consistent.
func (ip *Interpolator) Run(ctx context.Context, st *State, cur []l1frames.ColorRGB, emit EmitFunc) int {
	now := ip.clock.Now()
	if ip.frames == 0 || len(st.LastFrame) != len(cur) {
		return ip.emitReal(st, cur, emit, now)
	}
	if !st.LastRender.IsZero() && now.Sub(st.LastRender) < ip.minInterval {
		ip.dropped++
		tracef("catching up: %v since last render, dropping %d intermediate frames", now.Sub(st.LastRender), ip.frames)
		return ip.emitReal(st, cur, emit, now)
	}

	ip.prev = toFloats(ip.prev, st.LastFrame)
	ip.cur = toFloats(ip.cur, cur)
	if len(ip.diff) != len(ip.cur) {
		ip.diff = make([]float64, len(ip.cur))
		ip.mix = make([]float64, len(ip.cur))
	}
	floats.SubTo(ip.diff, ip.cur, ip.prev)

	emitted := 0
	for i := 1; i <= ip.frames; i++ {
		t := float64(i) / float64(ip.frames+1)
		floats.AddScaledTo(ip.mix, ip.prev, t, ip.diff)
		ip.out = fromFloats(ip.out, ip.mix)
		emit(ip.out)
		emitted++
		if ctx.Err() != nil {
			break
		}
		ip.clock.Sleep(ip.step)
	}
	return emitted + ip.emitReal(st, cur, emit, ip.clock.Now())
}

func (ip *Interpolator) emitReal(st *State, cur []l1frames.ColorRGB, emit EmitFunc, now time.Time) int {
	st.LastFrame = append(st.LastFrame[:0], cur...)
	st.LastRender = now
	emit(cur)
	return 1
}
