package l1frames

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"math"
	"os"
	"sync"
	"time"

	"github.com/banshee-data/ambilight/internal/timeutil"
)

// Source is the single capability every capture backend is reduced to:
// produce the next frame. GPU duplication, CPU screenshots and multimedia
// pipelines all live behind it and the core never branches on which one it
// has.
type Source interface {
	// Next blocks until a frame is available or ctx is done.
	Next(ctx context.Context) (*PixelBuffer, error)
	// Close releases backend resources.
	Close() error
}

// Bars selects black bars painted by SyntheticSource.
type Bars int

const (
	NoBars Bars = iota
	LetterboxBars
	PillarboxBars
)

// SyntheticConfig configures a SyntheticSource.
type SyntheticConfig struct {
	Width  int
	Height int
	FPS    float64
	Format Format

	// Padding adds samples of row padding so the stride differs from the
	// width, matching backends that align rows.
	Padding int

	// Bars paints 21:9 letterbox or 4:3 pillarbox bars around the content.
	Bars Bars

	// HuePeriod is how long the content colour takes to cycle the hue wheel.
	HuePeriod time.Duration

	Clock timeutil.Clock
}

// DefaultSyntheticConfig returns a 1080p-proportioned, downscaled source.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Width:     192,
		Height:    108,
		FPS:       30,
		Format:    FormatBGRX,
		HuePeriod: 10 * time.Second,
	}
}

// SyntheticSource renders solid frames whose colour walks the hue wheel.
// It stands in for a real capture backend in -dev mode and in tests.
type SyntheticSource struct {
	cfg    SyntheticConfig
	clock  timeutil.Clock
	ticker timeutil.Ticker
	start  time.Time
	seq    uint64
}

// NewSyntheticSource creates a SyntheticSource.
func NewSyntheticSource(cfg SyntheticConfig) (*SyntheticSource, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid synthetic size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid synthetic fps %v", cfg.FPS)
	}
	if cfg.HuePeriod <= 0 {
		cfg.HuePeriod = 10 * time.Second
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	interval := time.Duration(float64(time.Second) / cfg.FPS)
	return &SyntheticSource{
		cfg:    cfg,
		clock:  clock,
		ticker: clock.NewTicker(interval),
		start:  clock.Now(),
	}, nil
}

// Next waits for the next tick and renders a fresh buffer.
func (s *SyntheticSource) Next(ctx context.Context) (*PixelBuffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case now := <-s.ticker.C():
		return s.Render(now), nil
	}
}

// Render paints one frame for the given instant without waiting.
func (s *SyntheticSource) Render(now time.Time) *PixelBuffer {
	w, h := s.cfg.Width, s.cfg.Height
	stride := w + s.cfg.Padding
	buf := &PixelBuffer{
		Width:      w,
		Height:     h,
		Format:     s.cfg.Format,
		Pix:        make([]byte, stride*h*s.cfg.Format.BytesPerPixel()),
		CapturedAt: now,
	}
	s.seq++
	buf.Sequence = s.seq

	phase := float64(now.Sub(s.start)%s.cfg.HuePeriod) / float64(s.cfg.HuePeriod)
	r, g, b := hueColor(phase * 360)

	x0, y0, x1, y1 := 0, 0, w, h
	switch s.cfg.Bars {
	case LetterboxBars:
		bar := (h - w*27/64) / 2
		if bar > 0 {
			y0, y1 = bar, h-bar
		}
	case PillarboxBars:
		bar := (w - h*4/3) / 2
		if bar > 0 {
			x0, x1 = bar, w-bar
		}
	}
	buf.Fill(x0, y0, x1, y1, r, g, b)
	return buf
}

// Close stops the frame ticker.
func (s *SyntheticSource) Close() error {
	s.ticker.Stop()
	return nil
}

// hueColor returns a fully saturated colour for hue h in degrees.
func hueColor(h float64) (r, g, b uint8) {
	x := 1 - math.Abs(math.Mod(h/60, 2)-1)
	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf = 1, x
	case h < 120:
		rf, gf = x, 1
	case h < 180:
		gf, bf = 1, x
	case h < 240:
		gf, bf = x, 1
	case h < 300:
		rf, bf = x, 1
	default:
		rf, bf = 1, x
	}
	return uint8(math.Round(rf * 255)), uint8(math.Round(gf * 255)), uint8(math.Round(bf * 255))
}

// ImageSource replays a still image at a fixed rate.
type ImageSource struct {
	buf    *PixelBuffer
	ticker timeutil.Ticker

	mu  sync.Mutex
	seq uint64
}

// LoadImage decodes a PNG or JPEG file from disk.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// FromImage converts an image into an RGBX PixelBuffer. The RGBA row pitch
// is carried through as the stride hint.
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &PixelBuffer{
		Width:      rgba.Rect.Dx(),
		Height:     rgba.Rect.Dy(),
		Format:     FormatRGBX,
		StrideHint: rgba.Stride / 4,
		Pix:        rgba.Pix,
	}
}

// NewImageSource serves img at fps frames per second using clock.
func NewImageSource(img image.Image, fps float64, clock timeutil.Clock) (*ImageSource, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("invalid image source fps %v", fps)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &ImageSource{
		buf:    FromImage(img),
		ticker: clock.NewTicker(time.Duration(float64(time.Second) / fps)),
	}, nil
}

// Next returns the same decoded frame on every tick. Buffers are read-only
// downstream, so sharing the backing store is safe.
func (s *ImageSource) Next(ctx context.Context) (*PixelBuffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case now := <-s.ticker.C():
		s.mu.Lock()
		s.seq++
		seq := s.seq
		s.mu.Unlock()
		frame := *s.buf
		frame.CapturedAt = now
		frame.Sequence = seq
		return &frame, nil
	}
}

// Close stops the frame ticker.
func (s *ImageSource) Close() error {
	s.ticker.Stop()
	return nil
}
