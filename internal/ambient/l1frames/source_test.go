package l1frames

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/banshee-data/ambilight/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticSource_RenderLetterbox(t *testing.T) {
	t.Parallel()
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	src, err := NewSyntheticSource(SyntheticConfig{
		Width: 64, Height: 48, FPS: 30, Format: FormatRGBX, Padding: 2,
		Bars: LetterboxBars, Clock: clock,
	})
	require.NoError(t, err)
	defer src.Close()

	buf := src.Render(clock.Now())
	require.NoError(t, buf.Validate())
	assert.Equal(t, 66, buf.Stride())
	assert.Equal(t, uint64(1), buf.Sequence)

	// 64*27/64 = 27 rows of content, bars of (48-27)/2 = 10 rows.
	r, g, b := buf.At(32, 0)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b}, "top bar must be black")
	r, g, b = buf.At(32, 47)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b}, "bottom bar must be black")
	r, g, b = buf.At(32, 24)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b}, "hue 0 content is red")
}

func TestSyntheticSource_RenderPillarbox(t *testing.T) {
	t.Parallel()
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	src, err := NewSyntheticSource(SyntheticConfig{Width: 64, Height: 36, FPS: 30, Format: FormatRGB, Bars: PillarboxBars, Clock: clock})
	require.NoError(t, err)

	buf := src.Render(clock.Now())
	// content width 48, bars of 8 columns
	r, _, _ := buf.At(3, 18)
	assert.Zero(t, r)
	r, _, _ = buf.At(32, 18)
	assert.Equal(t, uint8(255), r)
}

func TestSyntheticSource_NextWaitsForTick(t *testing.T) {
	t.Parallel()
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	src, err := NewSyntheticSource(SyntheticConfig{Width: 8, Height: 8, FPS: 10, Clock: clock})
	require.NoError(t, err)

	clock.Advance(100 * time.Millisecond)
	buf, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, buf.Width)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSyntheticSource_Invalid(t *testing.T) {
	t.Parallel()
	_, err := NewSyntheticSource(SyntheticConfig{Width: 0, Height: 10, FPS: 30})
	assert.Error(t, err)
	_, err = NewSyntheticSource(SyntheticConfig{Width: 10, Height: 10})
	assert.Error(t, err)
}

func TestFromImage(t *testing.T) {
	t.Parallel()
	img := image.NewNRGBA(image.Rect(10, 10, 14, 13))
	img.Set(11, 11, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	buf := FromImage(img)
	require.NoError(t, buf.Validate())
	assert.Equal(t, 4, buf.Width)
	assert.Equal(t, 3, buf.Height)
	r, g, b := buf.At(1, 1)
	assert.Equal(t, [3]uint8{200, 100, 50}, [3]uint8{r, g, b})
}

func TestImageSource_Next(t *testing.T) {
	t.Parallel()
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src, err := NewImageSource(img, 20, clock)
	require.NoError(t, err)
	defer src.Close()

	clock.Advance(50 * time.Millisecond)
	first, err := src.Next(context.Background())
	require.NoError(t, err)
	clock.Advance(50 * time.Millisecond)
	second, err := src.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, uint64(2), second.Sequence)
	assert.True(t, second.CapturedAt.After(first.CapturedAt))
}
