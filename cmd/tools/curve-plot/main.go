// Package main renders PNG plots of the colour correction and smoothing
// curves so tuning values can be compared at a glance.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

var (
	outDir    = flag.String("out", "plots", "Directory for the PNG files")
	emaFrames = flag.Int("frames", 30, "Frames in the EMA step response")
)

var palette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 255},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 255},
}

func main() {
	flag.Parse()
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create %s: %v", *outDir, err)
	}

	emaSeries, err := emaStepResponse([]float64{0.1, 0.25, 0.5, 0.8}, *emaFrames)
	if err != nil {
		log.Fatalf("ema: %v", err)
	}

	plots := []struct {
		file, title, x, y string
		lines             []series
	}{
		{"gamma.png", "Gamma correction", "Input", "Output", gammaCurves([]float64{0.6, 1, 1.6, 2.2, 2.8})},
		{"nightlight.png", "Night light shift of light grey", "Level", "Channel", nightLightCurves(l1frames.ColorRGB{R: 200, G: 200, B: 200})},
		{"ema.png", "EMA step response", "Frame", "Level", emaSeries},
	}
	for _, p := range plots {
		file := filepath.Join(*outDir, p.file)
		if err := savePlot(file, p.title, p.x, p.y, p.lines); err != nil {
			log.Fatalf("failed to write %s: %v", file, err)
		}
		fmt.Println(file)
	}
}

func savePlot(file, title, xLabel, yLabel string, lines []series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Y.Min = 0
	p.Y.Max = 255

	for i, s := range lines {
		line, err := plotter.NewLine(s.Points)
		if err != nil {
			return err
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Label, line)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10

	return p.Save(8*vg.Inch, 5*vg.Inch, file)
}
