// Package main decodes LED frames recorded from a DNRGB UDP stream.
//
// Capture the stream with e.g. `tcpdump -w leds.pcap udp port 21324` and
// run:
//
//	pcap-frames -file leds.pcap
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/output"
)

var (
	pcapFile = flag.String("file", "", "PCAP file to decode (required)")
	udpPort  = flag.Int("port", output.DefaultWLEDPort, "UDP destination port to decode (0 for any)")
	jsonOut  = flag.Bool("json", false, "Print one JSON object per frame")
	limit    = flag.Int("limit", 0, "Print at most this many frames (0 for all)")
	verbose  = flag.Bool("v", false, "Log skipped packets")
)

type frameRecord struct {
	Index   int      `json:"index"`
	At      string   `json:"at"`
	Packets int      `json:"packets"`
	LEDs    int      `json:"leds"`
	Mean    [3]int   `json:"mean"`
	Colors  []string `json:"colors,omitempty"`
}

func main() {
	flag.Parse()
	if *pcapFile == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		output.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
	}

	f, err := os.Open(*pcapFile)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *pcapFile, err)
	}
	defer f.Close()

	frames, skipped, err := output.ReadDNRGBCapture(f, *udpPort)
	if err != nil {
		log.Fatalf("failed to decode %s: %v", *pcapFile, err)
	}

	enc := json.NewEncoder(os.Stdout)
	for i, fr := range frames {
		if *limit > 0 && i >= *limit {
			break
		}
		rec := frameRecord{
			Index:   i,
			At:      fr.At.Format(time.RFC3339Nano),
			Packets: fr.Packets,
			LEDs:    len(fr.Colors),
			Mean:    meanColor(fr.Colors),
		}
		if *jsonOut {
			rec.Colors = make([]string, len(fr.Colors))
			for j, c := range fr.Colors {
				rec.Colors[j] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
			}
			if err := enc.Encode(rec); err != nil {
				log.Fatalf("failed to write frame %d: %v", i, err)
			}
			continue
		}
		fmt.Printf("%5d %s packets=%d leds=%d mean=(%d,%d,%d)\n",
			rec.Index, rec.At, rec.Packets, rec.LEDs, rec.Mean[0], rec.Mean[1], rec.Mean[2])
	}

	mean, std := frameIntervals(frames)
	fmt.Fprintf(os.Stderr, "frames=%d skipped=%d interval mean=%.2fms stddev=%.2fms\n",
		len(frames), skipped, mean, std)
}

func meanColor(colors []l1frames.ColorRGB) [3]int {
	if len(colors) == 0 {
		return [3]int{}
	}
	var r, g, b int
	for _, c := range colors {
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
	}
	n := len(colors)
	return [3]int{r / n, g / n, b / n}
}

// frameIntervals returns the mean and standard deviation of the gaps between
// consecutive frames, in milliseconds.
func frameIntervals(frames []output.CapturedFrame) (float64, float64) {
	if len(frames) < 2 {
		return 0, 0
	}
	gaps := make([]float64, 0, len(frames)-1)
	for i := 1; i < len(frames); i++ {
		gaps = append(gaps, float64(frames[i].At.Sub(frames[i-1].At))/float64(time.Millisecond))
	}
	if len(gaps) == 1 {
		return gaps[0], 0
	}
	return stat.MeanStdDev(gaps, nil)
}
