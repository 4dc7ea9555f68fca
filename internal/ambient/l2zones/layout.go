package l2zones

import (
	"fmt"
	"math"
	"strings"
)

// Orientation is the direction the strip runs around the screen, seen from
// the front, starting at the bottom-left corner.
type Orientation int

const (
	Clockwise Orientation = iota
	Anticlockwise
)

// ParseOrientation converts a configuration name into an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clockwise", "":
		return Clockwise, nil
	case "anticlockwise", "counterclockwise":
		return Anticlockwise, nil
	}
	return Clockwise, fmt.Errorf("unknown orientation %q", s)
}

// DefaultDepthRatio is how far a zone reaches into the picture, as a
// fraction of the content height (top/bottom) or width (left/right).
const DefaultDepthRatio = 0.15

// Layout describes the physical strip and the capture geometry it maps onto.
type Layout struct {
	// Width and Height are the capture buffer dimensions.
	Width  int
	Height int

	Top    int
	Right  int
	Bottom int
	Left   int

	Orientation Orientation

	// GroupBy > 1 samples only every GroupBy-th zone; the others become
	// grouped aliases of the zone before them.
	GroupBy int

	DepthRatio float64
}

// Count returns the LED count.
func (l Layout) Count() int {
	return l.Top + l.Right + l.Bottom + l.Left
}

// LetterboxBar returns the height of each 21:9 bar, or 0 if the buffer is
// already wider than 21:9.
func (l Layout) LetterboxBar() int {
	bar := (l.Height - l.Width*27/64) / 2
	return max(bar, 0)
}

// PillarboxBar returns the width of each 4:3 bar, or 0 if the buffer is
// already narrower than 4:3.
func (l Layout) PillarboxBar() int {
	bar := (l.Width - l.Height*4/3) / 2
	return max(bar, 0)
}

// Build generates the fullscreen, letterbox and pillarbox maps.
func (l Layout) Build() (*ZoneSet, error) {
	maps := make([]*ZoneMap, 0, len(Variants))
	for _, v := range Variants {
		m, err := l.BuildVariant(v)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return NewZoneSet(maps...)
}

// BuildVariant generates the zone map for one framing. The content area is
// the buffer minus the variant's bars; zones hug its edges.
func (l Layout) BuildVariant(v Variant) (*ZoneMap, error) {
	if l.Width <= 0 || l.Height <= 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", l.Width, l.Height)
	}
	if l.Top < 0 || l.Right < 0 || l.Bottom < 0 || l.Left < 0 || l.Count() == 0 {
		return nil, fmt.Errorf("invalid LED counts top=%d right=%d bottom=%d left=%d", l.Top, l.Right, l.Bottom, l.Left)
	}

	x0, y0, w, h := 0, 0, l.Width, l.Height
	switch v {
	case Fullscreen:
	case Letterbox:
		bar := l.LetterboxBar()
		y0, h = bar, l.Height-2*bar
	case Pillarbox:
		bar := l.PillarboxBar()
		x0, w = bar, l.Width-2*bar
	default:
		return nil, fmt.Errorf("unknown variant %d", int(v))
	}

	ratio := l.DepthRatio
	if ratio <= 0 || ratio > 0.5 {
		ratio = DefaultDepthRatio
	}
	depthY := max(1, int(math.Round(float64(h)*ratio)))
	depthX := max(1, int(math.Round(float64(w)*ratio)))

	var rects []ZoneRect

	// Left edge, bottom to top.
	for i := l.Left - 1; i >= 0; i-- {
		ys, ye := span(y0, h, l.Left, i)
		rects = append(rects, ZoneRect{X: x0, Y: ys, Width: depthX, Height: ye - ys})
	}
	// Top edge, left to right.
	for i := 0; i < l.Top; i++ {
		xs, xe := span(x0, w, l.Top, i)
		rects = append(rects, ZoneRect{X: xs, Y: y0, Width: xe - xs, Height: depthY})
	}
	// Right edge, top to bottom.
	for i := 0; i < l.Right; i++ {
		ys, ye := span(y0, h, l.Right, i)
		rects = append(rects, ZoneRect{X: x0 + w - depthX, Y: ys, Width: depthX, Height: ye - ys})
	}
	// Bottom edge, right to left.
	for i := l.Bottom - 1; i >= 0; i-- {
		xs, xe := span(x0, w, l.Bottom, i)
		rects = append(rects, ZoneRect{X: xs, Y: y0 + h - depthY, Width: xe - xs, Height: depthY})
	}

	if l.Orientation == Anticlockwise {
		for i, j := 0, len(rects)-1; i < j; i, j = i+1, j-1 {
			rects[i], rects[j] = rects[j], rects[i]
		}
	}

	for i := range rects {
		rects[i].Index = i + 1
		rects[i].GroupedAlias = l.GroupBy > 1 && i%l.GroupBy != 0
	}

	return &ZoneMap{Variant: v, Rects: rects}, nil
}

// span splits [origin, origin+length) into n equal integer segments and
// returns segment i.
func span(origin, length, n, i int) (start, end int) {
	return origin + i*length/n, origin + (i+1)*length/n
}
