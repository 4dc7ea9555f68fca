package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
	"github.com/banshee-data/ambilight/internal/ambient/l3aspect"
	"github.com/banshee-data/ambilight/internal/ambient/l4color"
	"github.com/banshee-data/ambilight/internal/ambient/l5smooth"
	"github.com/banshee-data/ambilight/internal/timeutil"
)

// ErrBusy is returned by Process when another pass is still running. The
// frame has been dropped.
var ErrBusy = errors.New("pipeline busy, frame dropped")

// DefaultAspectInterval is how often the aspect re-check flag is raised.
const DefaultAspectInterval = 100 * time.Millisecond

// Publisher receives every finished colour array, one colour per LED in
// strip order. Implementations must not block for long and must not retain
// colors after returning.
type Publisher interface {
	Publish(colors []l1frames.ColorRGB) error
}

// VariantListener is told when the active zone map changes, so transports
// can re-announce the LED count and telemetry can record the switch.
type VariantListener interface {
	VariantChanged(from, to l2zones.Variant, zones int)
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Zones    *l2zones.ZoneSet
	Averager *l2zones.Averager
	Chain    *l4color.Chain
	Smoother *l5smooth.Smoother

	// Classifier may be nil, which disables black bar detection.
	Classifier *l3aspect.Classifier

	Publisher Publisher
	Listeners []VariantListener

	// LEDOffset rotates the published array so that index 0 lands on the
	// physical LED the strip actually starts from.
	LEDOffset int

	Clock timeutil.Clock
}

// Orchestrator runs one pass per frame: average zones, re-check framing
// when due, correct, smooth, publish. At most one pass runs at a time.
type Orchestrator struct {
	zones      *l2zones.ZoneSet
	averager   *l2zones.Averager
	classifier *l3aspect.Classifier
	chain      *l4color.Chain
	smoother   *l5smooth.Smoother
	publisher  Publisher
	listeners  []VariantListener
	offset     int
	clock      timeutil.Clock

	mu        sync.Mutex
	aspectDue atomic.Bool

	busy  atomic.Bool
	inbox chan *l1frames.PixelBuffer

	stats Stats
	rot   []l1frames.ColorRGB
}

// New validates cfg and builds an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Zones == nil {
		return nil, fmt.Errorf("pipeline: zone set is required")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("pipeline: correction chain is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("pipeline: publisher is required")
	}
	if cfg.Averager == nil {
		cfg.Averager = l2zones.NewAverager(l2zones.PerZone)
	}
	if cfg.Smoother == nil {
		cfg.Smoother = l5smooth.NewSmoother(nil, nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Orchestrator{
		zones:      cfg.Zones,
		averager:   cfg.Averager,
		classifier: cfg.Classifier,
		chain:      cfg.Chain,
		smoother:   cfg.Smoother,
		publisher:  cfg.Publisher,
		listeners:  cfg.Listeners,
		offset:     cfg.LEDOffset,
		clock:      cfg.Clock,
		inbox:      make(chan *l1frames.PixelBuffer, 1),
	}, nil
}

// Stats returns the orchestrator's counters.
func (o *Orchestrator) Stats() *Stats {
	return &o.stats
}

// Zones returns the zone set the orchestrator averages over.
func (o *Orchestrator) Zones() *l2zones.ZoneSet {
	return o.zones
}

// RequestAspectCheck raises the re-check flag. The next pass reads and
// clears it, so several requests between two passes cause one check.
func (o *Orchestrator) RequestAspectCheck() {
	o.aspectDue.Store(true)
}

// RunAspectTimer raises the re-check flag every interval until ctx is done.
func (o *Orchestrator) RunAspectTimer(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAspectInterval
	}
	ticker := o.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			o.RequestAspectCheck()
		}
	}
}

// Process runs one pass over buf on the calling goroutine. If another pass
// holds the pipeline the frame is dropped and ErrBusy returned.
func (o *Orchestrator) Process(ctx context.Context, buf *l1frames.PixelBuffer) error {
	if !o.mu.TryLock() {
		o.stats.dropped.Add(1)
		tracef("frame %d dropped: pass in progress", seqOf(buf))
		return ErrBusy
	}
	defer o.mu.Unlock()
	return o.pass(ctx, buf)
}

// Submit hands buf to the worker started by Run without blocking. It
// returns false, dropping the frame, when the worker is still busy with an
// earlier one.
func (o *Orchestrator) Submit(buf *l1frames.PixelBuffer) bool {
	if !o.busy.CompareAndSwap(false, true) {
		o.stats.dropped.Add(1)
		tracef("frame %d dropped: worker busy", seqOf(buf))
		return false
	}
	o.inbox <- buf
	return true
}

// Run processes submitted frames until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case buf := <-o.inbox:
			if err := o.Process(ctx, buf); err != nil && !errors.Is(err, ErrBusy) {
				opsf("pass failed for frame %d: %v", seqOf(buf), err)
			}
			o.busy.Store(false)
		}
	}
}

// Pump reads frames from src and submits them until ctx is done or the
// source fails.
func (o *Orchestrator) Pump(ctx context.Context, src l1frames.Source) error {
	for {
		buf, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("capture: %w", err)
		}
		o.Submit(buf)
	}
}

func (o *Orchestrator) pass(ctx context.Context, buf *l1frames.PixelBuffer) error {
	start := o.clock.Now()

	zm := o.zones.Active()
	colors, err := o.averager.Average(buf, zm)
	if err != nil {
		return err
	}

	if o.classifier != nil && o.aspectDue.Swap(false) {
		if next, switched := o.checkAspect(buf, zm); switched {
			zm = next
			if colors, err = o.averager.Average(buf, zm); err != nil {
				return err
			}
		}
	}

	colors = o.chain.Apply(colors)
	o.stats.observeLatency(o.clock.Since(start))
	o.stats.processed.Add(1)

	var skippedBefore uint64
	if ip := o.smoother.Interpolator; ip != nil {
		skippedBefore = ip.Dropped()
	}
	if n := o.smoother.Process(ctx, colors, o.publish); n > 1 {
		o.stats.interpolated.Add(uint64(n - 1))
	}
	if ip := o.smoother.Interpolator; ip != nil {
		o.stats.skipped.Add(ip.Dropped() - skippedBefore)
	}
	return nil
}

// checkAspect evaluates framing and performs at most one switch.
func (o *Orchestrator) checkAspect(buf *l1frames.PixelBuffer, zm *l2zones.ZoneMap) (*l2zones.ZoneMap, bool) {
	d := o.classifier.Evaluate(buf, zm.Variant, zm.Variant != l2zones.Fullscreen)
	if !d.Switch {
		return zm, false
	}
	prev, changed, err := o.zones.Activate(d.To)
	if err != nil {
		opsf("cannot switch to %s: %v", d.To, err)
		return zm, false
	}
	if !changed {
		return zm, false
	}
	next := o.zones.Active()
	diagf("zone map %s -> %s (%d zones): %s", prev.Variant, next.Variant, next.Len(), d.Reason)

	o.smoother.Reset()
	o.averager.Reset()
	o.stats.variantSwitches.Add(1)
	for _, l := range o.listeners {
		l.VariantChanged(prev.Variant, next.Variant, next.Len())
	}
	return next, true
}

func (o *Orchestrator) publish(colors []l1frames.ColorRGB) {
	out := colors
	if n := len(colors); n > 0 && o.offset%n != 0 {
		o.rot = Rotate(o.rot, colors, o.offset)
		out = o.rot
	}
	if err := o.publisher.Publish(out); err != nil {
		o.stats.publishErrors.Add(1)
		opsf("publish failed: %v", err)
		return
	}
	o.stats.published.Add(1)
}

// Rotate writes colors shifted left by offset into dst, so dst[i] is
// colors[(i+offset) mod n]. Negative offsets shift right.
func Rotate(dst, colors []l1frames.ColorRGB, offset int) []l1frames.ColorRGB {
	n := len(colors)
	if cap(dst) < n {
		dst = make([]l1frames.ColorRGB, n)
	}
	dst = dst[:n]
	if n == 0 {
		return dst
	}
	k := ((offset % n) + n) % n
	copy(dst, colors[k:])
	copy(dst[n-k:], colors[:k])
	return dst
}

func seqOf(buf *l1frames.PixelBuffer) uint64 {
	if buf == nil {
		return 0
	}
	return buf.Sequence
}
