package l3aspect

import (
	"fmt"
	"math"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
)

const (
	DefaultSamples         = 50
	DefaultBlackTolerance  = 6
	DefaultMinContentRatio = 0.15

	// ReferenceHeight and ReferenceMargin fix the border margin at
	// ReferenceMargin rows on a ReferenceHeight-row screen; other screens
	// scale linearly.
	ReferenceHeight = 1080
	ReferenceMargin = 4
)

// Config holds classifier tuning.
type Config struct {
	// Samples is the number of evenly spaced points read along each band.
	Samples int
	// BlackTolerance is the highest channel value still counted as black.
	BlackTolerance uint8
	// MinContentRatio is the fraction of centre samples that must be
	// non-black before a switch is allowed.
	MinContentRatio float64
	// ScreenHeight is the configured screen height in pixels. Zero means
	// use the sampled axis length.
	ScreenHeight int
}

// DefaultConfig returns the stock classifier tuning.
func DefaultConfig() Config {
	return Config{
		Samples:         DefaultSamples,
		BlackTolerance:  DefaultBlackTolerance,
		MinContentRatio: DefaultMinContentRatio,
	}
}

func (c Config) withDefaults() Config {
	if c.Samples <= 0 {
		c.Samples = DefaultSamples
	}
	if c.MinContentRatio <= 0 || c.MinContentRatio >= 1 {
		c.MinContentRatio = DefaultMinContentRatio
	}
	return c
}

// BorderMargin returns how far in from each edge the edge bands sit, for an
// axis of n pixels. The margin grows with the configured screen height and
// never leaves the outer half of the axis.
func (c Config) BorderMargin(n int) int {
	screen := c.ScreenHeight
	if screen <= 0 {
		screen = n
	}
	m := int(math.Floor(float64(ReferenceMargin) * float64(screen) / ReferenceHeight))
	return max(0, min(m, n/2-1))
}

// BandResult counts samples read along the three bands of one orientation.
type BandResult struct {
	Orientation  l2zones.Variant
	NearBlack    int
	CenterBlack  int
	FarBlack     int
	Samples      int
	ContentRatio float64
}

// Bars reports whether both edge bands are entirely black while the centre
// band has content.
func (r BandResult) Bars() bool {
	return r.NearBlack == r.Samples && r.FarBlack == r.Samples && r.CenterBlack < r.Samples
}

func (r BandResult) String() string {
	return fmt.Sprintf("%s near=%d/%d centre=%d/%d far=%d/%d content=%.2f",
		r.Orientation, r.NearBlack, r.Samples, r.CenterBlack, r.Samples, r.FarBlack, r.Samples, r.ContentRatio)
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Switch bool
	From   l2zones.Variant
	To     l2zones.Variant
	Reason string
}

// Classifier samples border bands to classify framing.
type Classifier struct {
	cfg Config
}

// New creates a Classifier. Zero fields in cfg take their defaults.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Evaluate decides whether the active variant should change. Letterbox is
// checked first and pillarbox only if letterbox did not match. When neither
// matches and forceFullscreen is set, a non-fullscreen active variant
// returns to fullscreen. Every switch requires enough centre content, so a
// black or nearly black frame never switches.
func (c *Classifier) Evaluate(buf *l1frames.PixelBuffer, active l2zones.Variant, forceFullscreen bool) Decision {
	keep := Decision{From: active, To: active}
	if buf == nil || buf.Width < 3 || buf.Height < 3 {
		keep.Reason = "buffer too small"
		return keep
	}

	for _, v := range [...]l2zones.Variant{l2zones.Letterbox, l2zones.Pillarbox} {
		res := c.Sample(buf, v)
		tracef("%s", res)
		if !res.Bars() {
			continue
		}
		if res.ContentRatio <= c.cfg.MinContentRatio {
			keep.Reason = fmt.Sprintf("%s bars but too little content (%.2f)", v, res.ContentRatio)
			return keep
		}
		if active == v {
			keep.Reason = fmt.Sprintf("%s confirmed", v)
			return keep
		}
		return Decision{Switch: true, From: active, To: v, Reason: fmt.Sprintf("%s detected (%.2f content)", v, res.ContentRatio)}
	}

	if !forceFullscreen || active == l2zones.Fullscreen {
		keep.Reason = "no bars"
		return keep
	}
	res := c.Sample(buf, l2zones.Letterbox)
	if res.ContentRatio <= c.cfg.MinContentRatio {
		keep.Reason = fmt.Sprintf("no bars but too little content (%.2f)", res.ContentRatio)
		return keep
	}
	return Decision{Switch: true, From: active, To: l2zones.Fullscreen, Reason: "bars gone"}
}

// Sample reads the near-edge, centre and far-edge bands for one
// orientation. Letterbox bands are rows read left to right; pillarbox bands
// are columns read top to bottom.
func (c *Classifier) Sample(buf *l1frames.PixelBuffer, orientation l2zones.Variant) BandResult {
	n := c.cfg.Samples
	res := BandResult{Orientation: orientation, Samples: n}

	along, across := buf.Width, buf.Height
	if orientation == l2zones.Pillarbox {
		along, across = buf.Height, buf.Width
	}
	margin := c.cfg.BorderMargin(across)
	near, center, far := margin, across/2, across-1-margin

	at := func(a, b int) (uint8, uint8, uint8) {
		if orientation == l2zones.Pillarbox {
			return buf.At(b, a)
		}
		return buf.At(a, b)
	}

	for i := 0; i < n; i++ {
		a := (2*i + 1) * along / (2 * n)
		if c.black(at(a, near)) {
			res.NearBlack++
		}
		if c.black(at(a, center)) {
			res.CenterBlack++
		}
		if c.black(at(a, far)) {
			res.FarBlack++
		}
	}
	res.ContentRatio = float64(n-res.CenterBlack) / float64(n)
	return res
}

func (c *Classifier) black(r, g, b uint8) bool {
	t := c.cfg.BlackTolerance
	return r <= t && g <= t && b <= t
}
