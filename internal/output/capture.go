package output

import (
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// CapturedFrame is one LED frame reassembled from recorded DNRGB packets.
type CapturedFrame struct {
	At      time.Time
	Colors  []l1frames.ColorRGB
	Packets int
}

// ReadDNRGBCapture decodes a pcap recording and returns the LED frames sent
// to udpPort. A packet with start index 0 begins a new frame; later packets
// fill in from their start index. Packets that are not valid DNRGB are
// skipped and counted.
func ReadDNRGBCapture(r io.Reader, udpPort int) (frames []CapturedFrame, skipped int, err error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read pcap header: %w", err)
	}
	source := gopacket.NewPacketSource(reader, reader.LinkType())
	source.NoCopy = true

	var cur *CapturedFrame
	for {
		packet, err := source.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return frames, skipped, fmt.Errorf("failed to read packet: %w", err)
		}

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp := udpLayer.(*layers.UDP)
		if udpPort != 0 && int(udp.DstPort) != udpPort {
			continue
		}

		start, colors, err := DecodeDNRGB(udp.Payload)
		if err != nil {
			skipped++
			tracef("skipping packet: %v", err)
			continue
		}

		if start == 0 || cur == nil {
			frames = append(frames, CapturedFrame{At: packet.Metadata().Timestamp})
			cur = &frames[len(frames)-1]
		}
		if need := start + len(colors); need > len(cur.Colors) {
			cur.Colors = append(cur.Colors, make([]l1frames.ColorRGB, need-len(cur.Colors))...)
		}
		copy(cur.Colors[start:], colors)
		cur.Packets++
	}
	return frames, skipped, nil
}
