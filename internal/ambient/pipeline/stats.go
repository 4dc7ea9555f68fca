package pipeline

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// latencyWindow is how many recent pass latencies are kept for statistics.
const latencyWindow = 256

// Stats counts what the orchestrator did. All methods are safe for
// concurrent use.
type Stats struct {
	processed       atomic.Uint64
	dropped         atomic.Uint64
	published       atomic.Uint64
	publishErrors   atomic.Uint64
	variantSwitches atomic.Uint64
	interpolated    atomic.Uint64
	skipped         atomic.Uint64

	mu        sync.Mutex
	latencies [latencyWindow]float64
	next      int
	filled    bool
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Processed       uint64
	Dropped         uint64
	Published       uint64
	PublishErrors   uint64
	VariantSwitches uint64

	// Interpolated counts emitted sub-frames; Skipped counts source frames
	// whose sub-frames were dropped to catch up.
	Interpolated uint64
	Skipped      uint64

	// Latency figures are in microseconds over the recent window.
	MeanLatencyUS   float64
	StdDevLatencyUS float64
	P95LatencyUS    float64
	LatencySamples  int
}

func (s *Stats) observeLatency(d time.Duration) {
	s.mu.Lock()
	s.latencies[s.next] = float64(d) / float64(time.Microsecond)
	s.next++
	if s.next == latencyWindow {
		s.next = 0
		s.filled = true
	}
	s.mu.Unlock()
}

// Snapshot returns the current counters and latency statistics.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Processed:       s.processed.Load(),
		Dropped:         s.dropped.Load(),
		Published:       s.published.Load(),
		PublishErrors:   s.publishErrors.Load(),
		VariantSwitches: s.variantSwitches.Load(),
		Interpolated:    s.interpolated.Load(),
		Skipped:         s.skipped.Load(),
	}

	s.mu.Lock()
	n := s.next
	if s.filled {
		n = latencyWindow
	}
	samples := append([]float64(nil), s.latencies[:n]...)
	s.mu.Unlock()

	snap.LatencySamples = len(samples)
	switch len(samples) {
	case 0:
		return snap
	case 1:
		snap.MeanLatencyUS = samples[0]
		snap.P95LatencyUS = samples[0]
		return snap
	}
	snap.MeanLatencyUS, snap.StdDevLatencyUS = stat.MeanStdDev(samples, nil)
	sort.Float64s(samples)
	snap.P95LatencyUS = stat.Quantile(0.95, stat.Empirical, samples, nil)
	return snap
}
