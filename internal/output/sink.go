// Package output delivers finished LED colour arrays to hardware.
//
// Every transport implements FrameSink. The pipeline calls Publish once per
// emitted frame on its processing goroutine, so sinks either write quickly
// (serial) or hand off to their own goroutine (UDP).
package output

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
)

// ErrWriteFailed is wrapped by sinks whose device write failed.
var ErrWriteFailed = errors.New("failed to write LED frame")

// FrameSink consumes corrected colour arrays in strip order.
type FrameSink interface {
	Publish(colors []l1frames.ColorRGB) error
	Close() error
}

// Kind names a configured transport.
type Kind string

const (
	KindNone   Kind = "none"
	KindSerial Kind = "serial"
	KindUDP    Kind = "udp"
	KindBoth   Kind = "both"
)

// ParseKind converts the output config key.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindNone, KindSerial, KindUDP, KindBoth:
		return k, nil
	case "":
		return KindNone, nil
	}
	return KindNone, fmt.Errorf("unknown output %q", s)
}

// MultiSink fans one frame out to several sinks. A failing sink does not
// stop the others; their errors are joined.
type MultiSink struct {
	sinks []FrameSink
}

// NewMultiSink skips nil entries.
func NewMultiSink(sinks ...FrameSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of attached sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

func (m *MultiSink) Publish(colors []l1frames.ColorRGB) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(colors); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// VariantChanged forwards the notification to every sink that wants it.
func (m *MultiSink) VariantChanged(from, to l2zones.Variant, zones int) {
	for _, s := range m.sinks {
		if l, ok := s.(interface {
			VariantChanged(from, to l2zones.Variant, zones int)
		}); ok {
			l.VariantChanged(from, to, zones)
		}
	}
}

// Discard accepts and drops every frame. It backs output "none".
type Discard struct{}

func (Discard) Publish([]l1frames.ColorRGB) error { return nil }
func (Discard) Close() error                      { return nil }

// MockSink records published frames for tests and the -dev preview.
type MockSink struct {
	mu       sync.Mutex
	frames   [][]l1frames.ColorRGB
	variants []l2zones.Variant

	// Err is returned by Publish when set.
	Err    error
	Closed bool
}

// NewMockSink returns an empty recorder.
func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Publish(colors []l1frames.ColorRGB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.frames = append(m.frames, append([]l1frames.ColorRGB(nil), colors...))
	return nil
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockSink) VariantChanged(_, to l2zones.Variant, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants = append(m.variants, to)
}

// Frames returns copies of every recorded frame.
func (m *MockSink) Frames() [][]l1frames.ColorRGB {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]l1frames.ColorRGB, len(m.frames))
	copy(out, m.frames)
	return out
}

// Last returns the most recent frame, or nil.
func (m *MockSink) Last() []l1frames.ColorRGB {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}

// Variants returns the variants announced so far.
func (m *MockSink) Variants() []l2zones.Variant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]l2zones.Variant(nil), m.variants...)
}
