package output

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
)

const (
	// DNRGBProtocol is the WLED realtime UDP protocol byte for DNRGB.
	DNRGBProtocol = 4
	// DNRGBMaxLEDs is how many LEDs fit in one DNRGB datagram.
	DNRGBMaxLEDs = 489
	// DNRGBHeaderLen is protocol, timeout and the 16-bit start index.
	DNRGBHeaderLen = 4
	// DefaultWLEDPort is WLED's realtime UDP port.
	DefaultWLEDPort = 21324
	// DefaultDNRGBTimeout is how many seconds WLED waits after the last
	// packet before returning to its own effects.
	DefaultDNRGBTimeout = 2
)

// EncodeDNRGB splits colors into DNRGB datagrams of at most DNRGBMaxLEDs
// LEDs. Each packet is [4, timeout, startHi, startLo, R, G, B, ...].
func EncodeDNRGB(colors []l1frames.ColorRGB, timeout byte) [][]byte {
	packets := make([][]byte, 0, (len(colors)+DNRGBMaxLEDs-1)/DNRGBMaxLEDs)
	for start := 0; start < len(colors); start += DNRGBMaxLEDs {
		end := min(start+DNRGBMaxLEDs, len(colors))
		pkt := make([]byte, 0, DNRGBHeaderLen+3*(end-start))
		pkt = append(pkt, DNRGBProtocol, timeout, byte(start>>8), byte(start))
		for _, c := range colors[start:end] {
			pkt = append(pkt, c.R, c.G, c.B)
		}
		packets = append(packets, pkt)
	}
	return packets
}

// DecodeDNRGB parses one DNRGB datagram back into its start index and
// colours.
func DecodeDNRGB(pkt []byte) (start int, colors []l1frames.ColorRGB, err error) {
	if len(pkt) < DNRGBHeaderLen {
		return 0, nil, fmt.Errorf("dnrgb: packet of %d bytes is shorter than the header", len(pkt))
	}
	if pkt[0] != DNRGBProtocol {
		return 0, nil, fmt.Errorf("dnrgb: protocol byte %d, want %d", pkt[0], DNRGBProtocol)
	}
	body := pkt[DNRGBHeaderLen:]
	if len(body)%3 != 0 {
		return 0, nil, fmt.Errorf("dnrgb: payload of %d bytes is not whole RGB triples", len(body))
	}
	start = int(pkt[2])<<8 | int(pkt[3])
	colors = make([]l1frames.ColorRGB, len(body)/3)
	for i := range colors {
		colors[i] = l1frames.ColorRGB{R: body[3*i], G: body[3*i+1], B: body[3*i+2]}
	}
	return start, colors, nil
}

// UDPConfig configures a UDPSink.
type UDPConfig struct {
	Host string
	Port int

	// Timeout is the DNRGB timeout byte in seconds.
	Timeout byte

	// QueueSize is how many frames may wait for the sender goroutine.
	QueueSize int

	// LogInterval is how often drop and error summaries are logged.
	LogInterval time.Duration
}

// UDPSink sends DNRGB frames to a WLED controller. Publish only encodes
// and enqueues; a goroutine started by Start does the network writes. A
// frame that finds the queue full is dropped.
type UDPSink struct {
	conn        net.Conn
	address     string
	timeout     byte
	queue       chan [][]byte
	logInterval time.Duration

	dropped    atomic.Uint64
	sent       atomic.Uint64
	sendErrors atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

// NewUDPSink resolves and dials the controller address.
func NewUDPSink(cfg UDPConfig) (*UDPSink, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultWLEDPort
	}
	address := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", address, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	return newUDPSink(conn, address, cfg), nil
}

func newUDPSink(conn net.Conn, address string, cfg UDPConfig) *UDPSink {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultDNRGBTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = 10 * time.Second
	}
	return &UDPSink{
		conn:        conn,
		address:     address,
		timeout:     cfg.Timeout,
		queue:       make(chan [][]byte, cfg.QueueSize),
		logInterval: cfg.LogInterval,
		done:        make(chan struct{}),
	}
}

// Start runs the sender until ctx is done or the sink is closed.
func (u *UDPSink) Start(ctx context.Context) {
	go func() {
		var failures int
		var lastErr error
		ticker := time.NewTicker(u.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-u.done:
				return
			case frame := <-u.queue:
				if err := u.send(frame); err != nil {
					u.sendErrors.Add(1)
					failures++
					lastErr = err
					continue
				}
				u.sent.Add(1)
			case <-ticker.C:
				if failures > 0 {
					opsf("%d UDP frames to %s failed (latest: %v)", failures, u.address, lastErr)
					failures, lastErr = 0, nil
				}
				if d := u.dropped.Load(); d > 0 {
					tracef("%d frames dropped so far for %s", d, u.address)
				}
			}
		}
	}()
	diagf("sending DNRGB frames to %s", u.address)
}

func (u *UDPSink) send(frame [][]byte) error {
	for _, pkt := range frame {
		if _, err := u.conn.Write(pkt); err != nil {
			return err
		}
	}
	return nil
}

// Publish encodes colors and queues them without blocking.
func (u *UDPSink) Publish(colors []l1frames.ColorRGB) error {
	if len(colors) > 1<<16 {
		return fmt.Errorf("dnrgb: %d LEDs exceeds the 16-bit start index", len(colors))
	}
	select {
	case <-u.done:
		return fmt.Errorf("%w: %s is closed", ErrWriteFailed, u.address)
	default:
	}
	select {
	case u.queue <- EncodeDNRGB(colors, u.timeout):
	default:
		u.dropped.Add(1)
	}
	return nil
}

// VariantChanged is logged only; DNRGB packets carry their start index so
// a shorter frame simply leaves the tail LEDs unchanged until timeout.
func (u *UDPSink) VariantChanged(from, to l2zones.Variant, zones int) {
	diagf("udp %s: %s -> %s, %d LEDs per frame", u.address, from, to, zones)
}

// Dropped returns frames discarded because the queue was full.
func (u *UDPSink) Dropped() uint64 { return u.dropped.Load() }

// Sent returns frames handed to the socket.
func (u *UDPSink) Sent() uint64 { return u.sent.Load() }

// SendErrors returns frames whose write failed.
func (u *UDPSink) SendErrors() uint64 { return u.sendErrors.Load() }

// Close stops the sender and closes the socket.
func (u *UDPSink) Close() error {
	var err error
	u.closeOnce.Do(func() {
		close(u.done)
		err = u.conn.Close()
	})
	return err
}
