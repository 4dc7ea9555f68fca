package visualiser

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/httputil"
)

// framePayload is the body of /debug/frame.
type framePayload struct {
	Variant string   `json:"variant"`
	Colors  []string `json:"colors"`
}

// AttachAdminRoutes mounts /debug/zones and /debug/frame on mux.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("zones", "Bar chart of the last published LED colours", httputil.GetOnly(s.handleZonesChart))
	debug.HandleFunc("frame", "Last published LED colours as JSON", httputil.GetOnly(func(w http.ResponseWriter, r *http.Request) {
		colors, variant := s.Last()
		out := framePayload{Variant: variant.String(), Colors: make([]string, len(colors))}
		for i, c := range colors {
			out.Colors[i] = hexColor(c)
		}
		httputil.WriteJSONOK(w, out)
	}))
	debug.KVFunc("Preview", func() any { return s.Stats().String() })
}

// handleZonesChart renders one bar per LED, coloured with the LED's value and
// as tall as its brightness.
func (s *Server) handleZonesChart(w http.ResponseWriter, r *http.Request) {
	colors, variant := s.Last()

	x := make([]string, len(colors))
	y := make([]opts.BarData, len(colors))
	for i, c := range colors {
		x[i] = strconv.Itoa(i + 1)
		y[i] = opts.BarData{
			Name:      c.String(),
			Value:     max(c.R, c.G, c.B),
			ItemStyle: &opts.ItemStyle{Color: hexColor(c)},
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Ambilight zones", Theme: "dark", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Last published frame", Subtitle: fmt.Sprintf("variant=%s leds=%d", variant, len(colors))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 255, Name: "max channel"}),
	)
	bar.SetXAxis(x).AddSeries("leds", y)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func hexColor(c l1frames.ColorRGB) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
