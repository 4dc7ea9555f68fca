package l2zones

import (
	"fmt"
	"strings"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// Algo selects how zone colours are produced.
type Algo int

const (
	// PerZone gives every zone its own mean.
	PerZone Algo = iota
	// WholeFrameAverage replaces every zone with the mean of all zone means.
	WholeFrameAverage
)

func (a Algo) String() string {
	switch a {
	case PerZone:
		return "per-zone"
	case WholeFrameAverage:
		return "whole-frame-average"
	}
	return fmt.Sprintf("algo(%d)", int(a))
}

// ParseAlgo converts a configuration name into an Algo.
func ParseAlgo(s string) (Algo, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "per-zone", "per_zone", "":
		return PerZone, nil
	case "whole-frame-average", "whole_frame_average", "average":
		return WholeFrameAverage, nil
	}
	return PerZone, fmt.Errorf("unknown averaging algo %q", s)
}

// Averager reduces each zone of a buffer to its mean colour. It keeps the
// last colour of every zone so a degenerate zone can repeat it, and scratch
// planes for the wide-lane path. An Averager is not safe for concurrent use;
// the orchestrator owns exactly one.
type Averager struct {
	Algo Algo

	// WideLanes enables the vector accumulation path. Results are identical
	// to the scalar path.
	WideLanes bool

	last []l1frames.ColorRGB
	planes
}

// NewAverager returns an averager using the wide-lane path when the CPU has
// a usable vector unit.
func NewAverager(algo Algo) *Averager {
	return &Averager{Algo: algo, WideLanes: LanesSupported()}
}

// Reset forgets the remembered zone colours.
func (a *Averager) Reset() {
	a.last = nil
}

// Average returns one colour per zone of zm, in zone order.
func (a *Averager) Average(buf *l1frames.PixelBuffer, zm *ZoneMap) ([]l1frames.ColorRGB, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if zm.Len() == 0 {
		return nil, fmt.Errorf("average: empty zone map")
	}

	n := zm.Len()
	if len(a.last) != n {
		a.last = make([]l1frames.ColorRGB, n)
	}

	out := make([]l1frames.ColorRGB, n)
	for i, rect := range zm.Rects {
		if rect.GroupedAlias && i > 0 {
			out[i] = out[i-1]
			continue
		}
		c, ok := a.Zone(buf, rect)
		if !ok {
			tracef("zone %d has zero area (%dx%d), reusing %s", rect.Index, rect.Width, rect.Height, a.last[i])
			c = a.last[i]
		}
		out[i] = c
	}
	copy(a.last, out)

	if a.Algo == WholeFrameAverage {
		fill(out, MeanOf(out))
	}
	return out, nil
}

// Zone returns the mean colour of rect, clamped to the buffer. ok is false
// for a zone with no area.
func (a *Averager) Zone(buf *l1frames.PixelBuffer, rect ZoneRect) (c l1frames.ColorRGB, ok bool) {
	if rect.Area() == 0 {
		return l1frames.Black, false
	}
	x0, y0, x1, y1 := ClampRect(rect, buf.Width, buf.Height)
	var r, g, b uint64
	if a.WideLanes {
		r, g, b = a.sumLanes(buf, x0, y0, x1, y1)
	} else {
		r, g, b = sumScalar(buf, x0, y0, x1, y1)
	}
	count := uint64((x1 - x0) * (y1 - y0))
	return l1frames.ColorRGB{R: uint8(r / count), G: uint8(g / count), B: uint8(b / count)}, true
}

// ClampRect converts rect into the half-open pixel range [x0,x1) x [y0,y1)
// inside a width x height buffer. An origin past the edge is pulled back to
// the last row or column, so the range always covers at least one sample.
func ClampRect(rect ZoneRect, width, height int) (x0, y0, x1, y1 int) {
	x0, x1 = clampSpan(rect.X, rect.Width, width)
	y0, y1 = clampSpan(rect.Y, rect.Height, height)
	return x0, y0, x1, y1
}

func clampSpan(start, length, limit int) (lo, hi int) {
	lo = min(max(start, 0), limit-1)
	hi = min(start+length, limit)
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// MeanOf returns the truncated mean of colours.
func MeanOf(colors []l1frames.ColorRGB) l1frames.ColorRGB {
	if len(colors) == 0 {
		return l1frames.Black
	}
	var r, g, b uint64
	for _, c := range colors {
		r += uint64(c.R)
		g += uint64(c.G)
		b += uint64(c.B)
	}
	n := uint64(len(colors))
	return l1frames.ColorRGB{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n)}
}

func fill(colors []l1frames.ColorRGB, c l1frames.ColorRGB) {
	for i := range colors {
		colors[i] = c
	}
}

// sumScalar adds up every channel of the range one sample at a time.
func sumScalar(buf *l1frames.PixelBuffer, x0, y0, x1, y1 int) (r, g, b uint64) {
	bpp := buf.Format.BytesPerPixel()
	ro, gro, bo := buf.Format.Offsets()
	rowBytes := buf.Stride() * bpp
	for y := y0; y < y1; y++ {
		row := buf.Pix[y*rowBytes:]
		for off := x0 * bpp; off < x1*bpp; off += bpp {
			r += uint64(row[off+ro])
			g += uint64(row[off+gro])
			b += uint64(row[off+bo])
		}
	}
	return r, g, b
}
