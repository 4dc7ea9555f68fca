package output

import (
	"context"

	"github.com/banshee-data/ambilight/internal/config"
)

// Open builds the sinks named by the output config key and starts any
// background senders on ctx. opener may be nil to use real serial ports.
func Open(ctx context.Context, cfg *config.PipelineConfig, opener PortOpener) (*MultiSink, error) {
	kind, err := ParseKind(cfg.GetOutput())
	if err != nil {
		return nil, err
	}

	var sinks []FrameSink
	if kind == KindSerial || kind == KindBoth {
		s, err := OpenSerialSink(cfg.GetSerialPort(), PortOptions{BaudRate: cfg.GetBaudRate()}, opener)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if kind == KindUDP || kind == KindBoth {
		u, err := NewUDPSink(UDPConfig{
			Host:      cfg.GetUDPHost(),
			Port:      cfg.GetUDPPort(),
			QueueSize: cfg.GetUDPQueueSize(),
		})
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return nil, err
		}
		u.Start(ctx)
		sinks = append(sinks, u)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, Discard{})
	}
	return NewMultiSink(sinks...), nil
}
