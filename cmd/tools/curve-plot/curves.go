package main

import (
	"fmt"

	"gonum.org/v1/plot/plotter"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l4color"
	"github.com/banshee-data/ambilight/internal/ambient/l5smooth"
)

// series is one labelled line of a plot.
type series struct {
	Label  string
	Points plotter.XYs
}

// gammaCurves maps every input byte through each gamma.
func gammaCurves(gammas []float64) []series {
	out := make([]series, 0, len(gammas))
	for _, g := range gammas {
		pts := make(plotter.XYs, 256)
		for v := range 256 {
			c := l4color.Gamma(l1frames.ColorRGB{R: uint8(v)}, g)
			pts[v] = plotter.XY{X: float64(v), Y: float64(c.R)}
		}
		out = append(out, series{Label: fmt.Sprintf("gamma %.2f", g), Points: pts})
	}
	return out
}

// nightLightCurves returns the red, green and blue output for a base colour
// at every night light level.
func nightLightCurves(base l1frames.ColorRGB) []series {
	n := int(l4color.MaxNightLightLevel)
	r := make(plotter.XYs, n)
	g := make(plotter.XYs, n)
	b := make(plotter.XYs, n)
	for i := range n {
		level := l4color.NightLightLevel(i + 1)
		c := l4color.WarmShiftColor(base, level)
		x := float64(level)
		r[i] = plotter.XY{X: x, Y: float64(c.R)}
		g[i] = plotter.XY{X: x, Y: float64(c.G)}
		b[i] = plotter.XY{X: x, Y: float64(c.B)}
	}
	return []series{{"red", r}, {"green", g}, {"blue", b}}
}

// emaStepResponse feeds a black frame followed by frames-1 white frames
// through an EMA for each alpha and records the smoothed level.
func emaStepResponse(alphas []float64, frames int) ([]series, error) {
	out := make([]series, 0, len(alphas))
	black := []l1frames.ColorRGB{{}}
	white := []l1frames.ColorRGB{{R: 255, G: 255, B: 255}}
	for _, a := range alphas {
		ema, err := l5smooth.NewEMA(a)
		if err != nil {
			return nil, err
		}
		var st l5smooth.State
		pts := make(plotter.XYs, frames)
		for i := range frames {
			in := white
			if i == 0 {
				in = black
			}
			c := ema.Step(&st, in)
			pts[i] = plotter.XY{X: float64(i), Y: float64(c[0].R)}
		}
		out = append(out, series{Label: fmt.Sprintf("alpha %.2f", a), Points: pts})
	}
	return out, nil
}
