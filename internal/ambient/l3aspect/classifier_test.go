package l3aspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
)

// framed returns a 192x108 buffer whose content area is filled and whose
// remaining rows or columns are black.
func framed(bars l2zones.Variant, r, g, b uint8) *l1frames.PixelBuffer {
	const w, h = 192, 108
	buf := l1frames.NewPixelBuffer(w, h, l1frames.FormatBGRX)
	switch bars {
	case l2zones.Letterbox:
		buf.Fill(0, 13, w, h-13, r, g, b)
	case l2zones.Pillarbox:
		buf.Fill(24, 0, w-24, h, r, g, b)
	default:
		buf.Fill(0, 0, w, h, r, g, b)
	}
	return buf
}

func TestEvaluate_DetectsLetterbox(t *testing.T) {
	t.Parallel()
	c := New(DefaultConfig())
	d := c.Evaluate(framed(l2zones.Letterbox, 200, 40, 40), l2zones.Fullscreen, false)
	assert.True(t, d.Switch, d.Reason)
	assert.Equal(t, l2zones.Letterbox, d.To)

	// Already letterboxed: nothing to do.
	d = c.Evaluate(framed(l2zones.Letterbox, 200, 40, 40), l2zones.Letterbox, true)
	assert.False(t, d.Switch, d.Reason)
}

func TestEvaluate_DetectsPillarbox(t *testing.T) {
	t.Parallel()
	c := New(DefaultConfig())
	d := c.Evaluate(framed(l2zones.Pillarbox, 30, 180, 30), l2zones.Fullscreen, false)
	assert.True(t, d.Switch, d.Reason)
	assert.Equal(t, l2zones.Pillarbox, d.To)
}

func TestEvaluate_LetterboxCheckedFirst(t *testing.T) {
	t.Parallel()
	// Content only in a centre box: both orientations see black edges.
	buf := l1frames.NewPixelBuffer(192, 108, l1frames.FormatRGB)
	buf.Fill(24, 13, 168, 95, 255, 255, 255)
	d := New(DefaultConfig()).Evaluate(buf, l2zones.Fullscreen, false)
	require.True(t, d.Switch)
	assert.Equal(t, l2zones.Letterbox, d.To)
}

func TestEvaluate_BlackFrameNeverSwitches(t *testing.T) {
	t.Parallel()
	c := New(DefaultConfig())
	black := l1frames.NewPixelBuffer(192, 108, l1frames.FormatRGBX)
	for _, active := range l2zones.Variants {
		for _, force := range []bool{false, true} {
			d := c.Evaluate(black, active, force)
			assert.False(t, d.Switch, "active=%s force=%v: %s", active, force, d.Reason)
		}
	}
}

func TestEvaluate_NearlyBlackFrameNeverSwitches(t *testing.T) {
	t.Parallel()
	c := New(DefaultConfig())
	// A thin sliver of content covers under 15% of the centre band.
	buf := l1frames.NewPixelBuffer(192, 108, l1frames.FormatRGB)
	buf.Fill(90, 40, 100, 70, 255, 255, 255)
	d := c.Evaluate(buf, l2zones.Fullscreen, false)
	assert.False(t, d.Switch, d.Reason)
}

func TestEvaluate_ToleranceCountsDarkGreyAsBlack(t *testing.T) {
	t.Parallel()
	buf := framed(l2zones.Letterbox, 255, 255, 255)
	// Capture noise in the bars.
	buf.Fill(0, 0, 192, 13, 5, 6, 4)
	d := New(DefaultConfig()).Evaluate(buf, l2zones.Fullscreen, false)
	assert.True(t, d.Switch)

	buf.Fill(0, 0, 192, 13, 7, 7, 7)
	d = New(DefaultConfig()).Evaluate(buf, l2zones.Fullscreen, false)
	assert.False(t, d.Switch)
}

func TestEvaluate_ForceFullscreen(t *testing.T) {
	t.Parallel()
	c := New(DefaultConfig())
	full := framed(l2zones.Fullscreen, 100, 100, 100)

	d := c.Evaluate(full, l2zones.Letterbox, false)
	assert.False(t, d.Switch, "without force the classifier leaves the variant alone")

	d = c.Evaluate(full, l2zones.Letterbox, true)
	assert.True(t, d.Switch)
	assert.Equal(t, l2zones.Letterbox, d.From)
	assert.Equal(t, l2zones.Fullscreen, d.To)

	d = c.Evaluate(full, l2zones.Fullscreen, true)
	assert.False(t, d.Switch)
}

func TestSample_Counts(t *testing.T) {
	t.Parallel()
	c := New(Config{Samples: 10})
	res := c.Sample(framed(l2zones.Letterbox, 200, 200, 200), l2zones.Letterbox)
	assert.Equal(t, 10, res.NearBlack)
	assert.Equal(t, 10, res.FarBlack)
	assert.Zero(t, res.CenterBlack)
	assert.InDelta(t, 1.0, res.ContentRatio, 1e-9)
	assert.True(t, res.Bars())
}

func TestBorderMargin(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 4, Config{ScreenHeight: 1080}.BorderMargin(108))
	assert.Equal(t, 8, Config{ScreenHeight: 2160}.BorderMargin(216))
	assert.Equal(t, 0, Config{ScreenHeight: 200}.BorderMargin(108))
	// Never reaches the centre band.
	assert.Equal(t, 1, Config{ScreenHeight: 4320}.BorderMargin(4))
	assert.Equal(t, 0, Config{ScreenHeight: -5}.BorderMargin(3))
}
