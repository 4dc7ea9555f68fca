package l2zones

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

func paddedBuffer(w, h, pad int, format l1frames.Format) *l1frames.PixelBuffer {
	return &l1frames.PixelBuffer{
		Width:  w,
		Height: h,
		Format: format,
		Pix:    make([]byte, (w+pad)*h*format.BytesPerPixel()),
	}
}

func singleZone(rect ZoneRect) *ZoneMap {
	rect.Index = 1
	return &ZoneMap{Rects: []ZoneRect{rect}}
}

func TestAverager_ConstantColourAnyStride(t *testing.T) {
	t.Parallel()
	want := l1frames.ColorRGB{R: 17, G: 130, B: 251}

	for _, format := range []l1frames.Format{l1frames.FormatRGB, l1frames.FormatRGBX, l1frames.FormatBGRX} {
		for _, pad := range []int{0, 1, 3, 16} {
			for _, wide := range []bool{false, true} {
				buf := paddedBuffer(37, 21, pad, format)
				buf.Fill(0, 0, buf.Width, buf.Height, want.R, want.G, want.B)
				avg := &Averager{WideLanes: wide}

				for _, rect := range []ZoneRect{
					{X: 0, Y: 0, Width: 37, Height: 21},
					{X: 5, Y: 3, Width: 1, Height: 1},
					{X: 10, Y: 2, Width: 19, Height: 7},
					{X: 30, Y: 15, Width: 40, Height: 40},
				} {
					got, err := avg.Average(buf, singleZone(rect))
					require.NoError(t, err)
					require.Equal(t, want, got[0], "format=%s pad=%d wide=%v rect=%+v", format, pad, wide, rect)
				}
			}
		}
	}
}

func TestAverager_LanesMatchScalar(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	buf := paddedBuffer(97, 41, 5, l1frames.FormatBGRX)
	rng.Read(buf.Pix)

	zm, err := Layout{Width: 97, Height: 41, Top: 9, Right: 5, Bottom: 9, Left: 5}.BuildVariant(Fullscreen)
	require.NoError(t, err)
	zm.Rects = append(zm.Rects, ZoneRect{Index: len(zm.Rects) + 1, X: 3, Y: 3, Width: 91, Height: 35})

	scalar, err := (&Averager{}).Average(buf, zm)
	require.NoError(t, err)
	lanes, err := (&Averager{WideLanes: true}).Average(buf, zm)
	require.NoError(t, err)
	assert.Equal(t, scalar, lanes)
}

func TestAverager_TruncatesMean(t *testing.T) {
	t.Parallel()
	buf := l1frames.NewPixelBuffer(2, 1, l1frames.FormatRGB)
	buf.Set(0, 0, 10, 0, 255)
	buf.Set(1, 0, 11, 1, 254)

	got, err := (&Averager{}).Average(buf, singleZone(ZoneRect{Width: 2, Height: 1}))
	require.NoError(t, err)
	assert.Equal(t, l1frames.ColorRGB{R: 10, G: 0, B: 254}, got[0])
}

func TestAverager_GroupedAliasCopiesPrevious(t *testing.T) {
	t.Parallel()
	buf := l1frames.NewPixelBuffer(4, 1, l1frames.FormatRGB)
	buf.Set(0, 0, 200, 0, 0)
	buf.Set(3, 0, 0, 0, 200)

	zm := &ZoneMap{Rects: []ZoneRect{
		{Index: 1, X: 0, Y: 0, Width: 1, Height: 1},
		// Points at blue pixels but must mirror zone 1.
		{Index: 2, X: 3, Y: 0, Width: 1, Height: 1, GroupedAlias: true},
		{Index: 3, X: 3, Y: 0, Width: 1, Height: 1},
	}}
	got, err := (&Averager{}).Average(buf, zm)
	require.NoError(t, err)
	assert.Equal(t, got[0], got[1])
	assert.Equal(t, l1frames.ColorRGB{B: 200}, got[2])
}

func TestAverager_FirstZoneAliasIsComputed(t *testing.T) {
	t.Parallel()
	buf := l1frames.NewPixelBuffer(1, 1, l1frames.FormatRGB)
	buf.Set(0, 0, 1, 2, 3)
	got, err := (&Averager{}).Average(buf, singleZone(ZoneRect{Width: 1, Height: 1, GroupedAlias: true}))
	require.NoError(t, err)
	assert.Equal(t, l1frames.ColorRGB{R: 1, G: 2, B: 3}, got[0])
}

func TestAverager_ZeroAreaReusesLastColour(t *testing.T) {
	t.Parallel()
	buf := l1frames.NewPixelBuffer(4, 4, l1frames.FormatRGB)
	buf.Fill(0, 0, 4, 4, 50, 60, 70)
	avg := &Averager{}

	zm := &ZoneMap{Rects: []ZoneRect{{Index: 1, Width: 4, Height: 4}}}
	_, err := avg.Average(buf, zm)
	require.NoError(t, err)

	// Same zone count, but this time the zone collapsed.
	buf.Fill(0, 0, 4, 4, 0, 0, 0)
	collapsed := &ZoneMap{Rects: []ZoneRect{{Index: 1, Width: 0, Height: 4}}}
	got, err := avg.Average(buf, collapsed)
	require.NoError(t, err)
	assert.Equal(t, l1frames.ColorRGB{R: 50, G: 60, B: 70}, got[0])

	// With no history the colour is black rather than garbage.
	got, err = (&Averager{}).Average(buf, collapsed)
	require.NoError(t, err)
	assert.Equal(t, l1frames.Black, got[0])
}

func TestClampRect(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		rect           ZoneRect
		x0, y0, x1, y1 int
	}{
		{"inside", ZoneRect{X: 1, Y: 2, Width: 3, Height: 4}, 1, 2, 4, 6},
		{"oversized", ZoneRect{X: 8, Y: 8, Width: 5, Height: 5}, 8, 8, 10, 10},
		{"origin past edge", ZoneRect{X: 12, Y: 15, Width: 2, Height: 2}, 9, 9, 10, 10},
		{"negative origin", ZoneRect{X: -3, Y: -1, Width: 5, Height: 3}, 0, 0, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			x0, y0, x1, y1 := ClampRect(tt.rect, 10, 10)
			assert.Equal(t, [4]int{tt.x0, tt.y0, tt.x1, tt.y1}, [4]int{x0, y0, x1, y1})
		})
	}
}

func TestAverager_OutOfBoundsZoneReadsLastRow(t *testing.T) {
	t.Parallel()
	buf := l1frames.NewPixelBuffer(5, 5, l1frames.FormatRGBX)
	buf.Fill(0, 4, 5, 5, 90, 90, 90)
	got, err := (&Averager{}).Average(buf, singleZone(ZoneRect{X: 0, Y: 7, Width: 5, Height: 3}))
	require.NoError(t, err)
	assert.Equal(t, l1frames.ColorRGB{R: 90, G: 90, B: 90}, got[0])
}

func TestAverager_WholeFrameAverage(t *testing.T) {
	t.Parallel()
	buf := l1frames.NewPixelBuffer(4, 1, l1frames.FormatRGB)
	buf.Set(0, 0, 100, 0, 0)
	buf.Set(1, 0, 0, 100, 0)
	buf.Set(2, 0, 0, 0, 100)
	buf.Set(3, 0, 0, 0, 0)

	zm := &ZoneMap{Rects: []ZoneRect{
		{Index: 1, X: 0, Width: 1, Height: 1},
		{Index: 2, X: 1, Width: 1, Height: 1},
		{Index: 3, X: 2, Width: 1, Height: 1},
		{Index: 4, X: 3, Width: 1, Height: 1},
	}}
	got, err := (&Averager{Algo: WholeFrameAverage}).Average(buf, zm)
	require.NoError(t, err)
	want := l1frames.ColorRGB{R: 25, G: 25, B: 25}
	for i := range got {
		assert.Equal(t, want, got[i])
	}

	// Averaging the averages again changes nothing.
	assert.Equal(t, want, MeanOf(got))
}

func TestAverager_RejectsShortBuffer(t *testing.T) {
	t.Parallel()
	buf := &l1frames.PixelBuffer{Width: 10, Height: 10, Format: l1frames.FormatRGB, Pix: make([]byte, 12)}
	_, err := (&Averager{}).Average(buf, singleZone(ZoneRect{Width: 1, Height: 1}))
	assert.ErrorIs(t, err, l1frames.ErrShortBuffer)
}

func TestParseAlgo(t *testing.T) {
	t.Parallel()
	a, err := ParseAlgo("whole-frame-average")
	require.NoError(t, err)
	assert.Equal(t, WholeFrameAverage, a)
	a, err = ParseAlgo("")
	require.NoError(t, err)
	assert.Equal(t, PerZone, a)
	_, err = ParseAlgo("median")
	assert.Error(t, err)
}
