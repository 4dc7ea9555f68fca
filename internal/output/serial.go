package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
)

// MaxAdalightLEDs is the largest strip the 16-bit count field can address.
const MaxAdalightLEDs = 1 << 16

// AdalightHeaderLen is the size of the "Ada" preamble plus count and checksum.
const AdalightHeaderLen = 6

// EncodeAdalight appends one Adalight frame for colors to dst. The header is
// 'A' 'd' 'a', the LED count minus one as big-endian hi/lo, and the checksum
// hi^lo^0x55, followed by one RGB triple per LED.
func EncodeAdalight(dst []byte, colors []l1frames.ColorRGB) ([]byte, error) {
	n := len(colors)
	if n == 0 {
		return dst, fmt.Errorf("adalight: empty frame")
	}
	if n > MaxAdalightLEDs {
		return dst, fmt.Errorf("adalight: %d LEDs exceeds %d", n, MaxAdalightLEDs)
	}
	count := n - 1
	hi, lo := byte(count>>8), byte(count)
	dst = append(dst, 'A', 'd', 'a', hi, lo, hi^lo^0x55)
	for _, c := range colors {
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst, nil
}

// SerialSink writes Adalight frames to a serial port. Writes are never
// retried; a failure is counted and the next frame is attempted normally.
type SerialSink struct {
	mu   sync.Mutex
	port SerialPorter
	path string
	buf  []byte

	written atomic.Uint64
	failed  atomic.Uint64
}

// NewSerialSink wraps an open port.
func NewSerialSink(port SerialPorter, path string) *SerialSink {
	return &SerialSink{port: port, path: path}
}

// OpenSerialSink opens path with opener (OpenSerialPort when nil).
func OpenSerialSink(path string, opts PortOptions, opener PortOpener) (*SerialSink, error) {
	if opener == nil {
		opener = OpenSerialPort
	}
	port, err := opener(path, opts)
	if err != nil {
		return nil, err
	}
	diagf("serial sink on %s at %d baud", path, opts.BaudRate)
	return NewSerialSink(port, path), nil
}

func (s *SerialSink) Publish(colors []l1frames.ColorRGB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return fmt.Errorf("%w: %s is closed", ErrWriteFailed, s.path)
	}
	var err error
	s.buf, err = EncodeAdalight(s.buf[:0], colors)
	if err != nil {
		return err
	}
	n, err := s.port.Write(s.buf)
	if err == nil && n < len(s.buf) {
		err = fmt.Errorf("short write %d of %d bytes", n, len(s.buf))
	}
	if err != nil {
		s.failed.Add(1)
		tracef("write to %s failed: %v", s.path, err)
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, s.path, err)
	}
	s.written.Add(1)
	return nil
}

// VariantChanged logs the new LED count; Adalight carries the count in
// every header so the device needs nothing else.
func (s *SerialSink) VariantChanged(from, to l2zones.Variant, zones int) {
	diagf("serial %s: %s -> %s, %d LEDs per frame", s.path, from, to, zones)
}

// Written and Failed return frame counters.
func (s *SerialSink) Written() uint64 { return s.written.Load() }
func (s *SerialSink) Failed() uint64  { return s.failed.Load() }

func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}
