package l4color

import (
	"fmt"
	"sync/atomic"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/timeutil"
)

// Settings is the full correction configuration for one pass.
type Settings struct {
	HueMap         HueMap
	GreyTolerance  float64
	BlendTolerance float64

	// Gamma of 1 (or 0) skips the stage.
	Gamma float64

	// LuminosityThreshold is the brightness floor as a percentage; 0
	// disables the stage.
	LuminosityThreshold int

	NightLight NightLight

	// BrightnessLimiter is the lightness ceiling in (0,1); 0 or 1 disables
	// the stage.
	BrightnessLimiter float64
}

// DefaultSettings returns a neutral chain: every stage disabled.
func DefaultSettings() Settings {
	return Settings{
		GreyTolerance:  DefaultGreyTolerance,
		BlendTolerance: DefaultBlendTolerance,
		Gamma:          1,
		NightLight:     DefaultNightLight(),
	}
}

// Validate checks ranges.
func (s Settings) Validate() error {
	if s.Gamma < 0 || s.Gamma > 10 {
		return fmt.Errorf("gamma must be between 0 and 10, got %v", s.Gamma)
	}
	if s.LuminosityThreshold < 0 || s.LuminosityThreshold > 100 {
		return fmt.Errorf("luminosity threshold must be between 0 and 100, got %d", s.LuminosityThreshold)
	}
	if s.BrightnessLimiter < 0 || s.BrightnessLimiter > 1 {
		return fmt.Errorf("brightness limiter must be between 0 and 1, got %v", s.BrightnessLimiter)
	}
	if s.GreyTolerance < 0 || s.GreyTolerance > 1 {
		return fmt.Errorf("grey tolerance must be between 0 and 1, got %v", s.GreyTolerance)
	}
	if s.BlendTolerance < 0 || s.BlendTolerance > 30 {
		return fmt.Errorf("blend tolerance must be between 0 and 30 degrees, got %v", s.BlendTolerance)
	}
	if s.NightLight.Mode != NightLightDisabled && !s.NightLight.Level.Valid() {
		return fmt.Errorf("night light level must be between %d and %d, got %d",
			MinNightLightLevel, MaxNightLightLevel, s.NightLight.Level)
	}
	return nil
}

// compiled is Settings reduced to the stages that actually run.
type compiled struct {
	settings Settings
	hue      *hueStage
	gamma    *gammaTable
	floor    float64
	ceiling  float64
}

func compile(s Settings) *compiled {
	c := &compiled{settings: s}
	if !s.HueMap.IsZero() {
		m := s.HueMap
		c.hue = &hueStage{m: &m, greyTolerance: s.GreyTolerance, blendTolerance: s.BlendTolerance}
	}
	if s.Gamma > 0 && s.Gamma != 1 {
		c.gamma = newGammaTable(s.Gamma)
	}
	if s.LuminosityThreshold > 0 {
		c.floor = float64(s.LuminosityThreshold) / 100
	}
	if s.BrightnessLimiter > 0 && s.BrightnessLimiter < 1 {
		c.ceiling = s.BrightnessLimiter
	}
	return c
}

// Chain applies the correction stages in their fixed order. Settings can be
// replaced between passes from any goroutine.
type Chain struct {
	clock timeutil.Clock
	cur   atomic.Pointer[compiled]
}

// NewChain validates s and builds a chain. A nil clock uses wall time.
func NewChain(s Settings, clock timeutil.Clock) (*Chain, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	c := &Chain{clock: clock}
	if err := c.Update(s); err != nil {
		return nil, err
	}
	return c, nil
}

// Update swaps in new settings. The next pass uses them.
func (c *Chain) Update(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.cur.Store(compile(s))
	diagf("correction settings updated: gamma=%.2f floor=%d%% limiter=%.2f night=%s/%d hue=%v",
		s.Gamma, s.LuminosityThreshold, s.BrightnessLimiter, s.NightLight.Mode, s.NightLight.Level, !s.HueMap.IsZero())
	return nil
}

// Settings returns the active settings.
func (c *Chain) Settings() Settings {
	return c.cur.Load().settings
}

// Apply corrects every colour in place and returns colors.
func (c *Chain) Apply(colors []l1frames.ColorRGB) []l1frames.ColorRGB {
	cc := c.cur.Load()
	night := cc.settings.NightLight.ActiveAt(c.clock.Now())
	for i, col := range colors {
		colors[i] = cc.correct(col, night)
	}
	return colors
}

// Correct runs one colour through the chain.
func (c *Chain) Correct(col l1frames.ColorRGB) l1frames.ColorRGB {
	cc := c.cur.Load()
	return cc.correct(col, cc.settings.NightLight.ActiveAt(c.clock.Now()))
}

func (cc *compiled) correct(col l1frames.ColorRGB, night bool) l1frames.ColorRGB {
	if cc.hue != nil {
		col = cc.hue.apply(col)
	}
	if cc.gamma != nil {
		col = cc.gamma.apply(col)
	}
	if cc.floor > 0 {
		col = LuminosityFloor(col, cc.floor)
	}
	if night {
		col = WarmShiftColor(col, cc.settings.NightLight.Level)
	}
	if cc.ceiling > 0 {
		col = BrightnessLimit(col, cc.ceiling)
	}
	return col
}
