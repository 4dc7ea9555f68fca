package pipeline

import (
	"fmt"

	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
	"github.com/banshee-data/ambilight/internal/ambient/l3aspect"
	"github.com/banshee-data/ambilight/internal/ambient/l4color"
	"github.com/banshee-data/ambilight/internal/ambient/l5smooth"
	"github.com/banshee-data/ambilight/internal/config"
	"github.com/banshee-data/ambilight/internal/timeutil"
)

// LayoutFromConfig converts the geometry keys into a zone layout.
func LayoutFromConfig(cfg *config.PipelineConfig) (l2zones.Layout, error) {
	orient, err := l2zones.ParseOrientation(cfg.GetOrientation())
	if err != nil {
		return l2zones.Layout{}, err
	}
	return l2zones.Layout{
		Width:       cfg.GetCaptureWidth(),
		Height:      cfg.GetCaptureHeight(),
		Top:         cfg.GetLEDTop(),
		Right:       cfg.GetLEDRight(),
		Bottom:      cfg.GetLEDBottom(),
		Left:        cfg.GetLEDLeft(),
		Orientation: orient,
		GroupBy:     cfg.GetGroupBy(),
		DepthRatio:  cfg.GetDepthRatio(),
	}, nil
}

// SettingsFromConfig converts the correction keys into chain settings.
func SettingsFromConfig(cfg *config.PipelineConfig) (l4color.Settings, error) {
	s := l4color.DefaultSettings()
	s.Gamma = cfg.GetGamma()
	s.BrightnessLimiter = cfg.GetBrightnessLimiter()
	s.LuminosityThreshold = cfg.GetLuminosityThreshold()
	s.GreyTolerance = cfg.GetGreyTolerance()
	s.BlendTolerance = cfg.GetBlendTolerance()

	mode, err := l4color.ParseNightLightMode(cfg.GetNightLightMode())
	if err != nil {
		return s, err
	}
	start, err := l4color.ParseClockTime(cfg.GetNightLightStart())
	if err != nil {
		return s, fmt.Errorf("night light start: %w", err)
	}
	end, err := l4color.ParseClockTime(cfg.GetNightLightEnd())
	if err != nil {
		return s, fmt.Errorf("night light end: %w", err)
	}
	s.NightLight = l4color.NightLight{
		Mode:  mode,
		Level: l4color.NightLightLevel(cfg.GetNightLightLevel()),
		Start: start,
		End:   end,
	}

	for name, adj := range cfg.HueMap {
		sector, err := l4color.ParseSector(name)
		if err != nil {
			return s, err
		}
		s.HueMap.Set(sector, l4color.HueCorrection{
			HueShift:   adj.Hue,
			Saturation: adj.Saturation,
			Lightness:  adj.Lightness,
		})
	}
	return s, s.Validate()
}

// ClassifierFromConfig returns nil when black bar detection is off.
func ClassifierFromConfig(cfg *config.PipelineConfig) *l3aspect.Classifier {
	if !cfg.GetAutoDetectBlackBars() {
		return nil
	}
	return l3aspect.New(l3aspect.Config{
		Samples:         cfg.GetAspectSamples(),
		BlackTolerance:  uint8(cfg.GetBlackTolerance()),
		MinContentRatio: cfg.GetAspectMinContentRatio(),
		ScreenHeight:    cfg.GetScreenHeight(),
	})
}

// SmootherFromConfig builds the EMA and interpolation stages. Either may be
// disabled by config.
func SmootherFromConfig(cfg *config.PipelineConfig, clock timeutil.Clock) (*l5smooth.Smoother, error) {
	var ema *l5smooth.EMA
	if alpha := cfg.GetEMAAlpha(); alpha > 0 {
		var err error
		if ema, err = l5smooth.NewEMA(alpha); err != nil {
			return nil, err
		}
	}

	var ip *l5smooth.Interpolator
	if cfg.GetTargetFPS() > cfg.GetCaptureFPS() {
		var err error
		ip, err = l5smooth.NewInterpolator(l5smooth.InterpolatorConfig{
			SourceFPS: cfg.GetCaptureFPS(),
			TargetFPS: cfg.GetTargetFPS(),
			Headroom:  cfg.GetInterpolationHeadroom(),
			Clock:     clock,
		})
		if err != nil {
			return nil, err
		}
	}
	return l5smooth.NewSmoother(ema, ip), nil
}

// FromConfig builds a complete orchestrator from a loaded configuration.
func FromConfig(cfg *config.PipelineConfig, pub Publisher, listeners []VariantListener, clock timeutil.Clock) (*Orchestrator, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	layout, err := LayoutFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	zones, err := layout.Build()
	if err != nil {
		return nil, fmt.Errorf("zone layout: %w", err)
	}

	algo, err := l2zones.ParseAlgo(cfg.GetAlgo())
	if err != nil {
		return nil, err
	}
	averager := l2zones.NewAverager(algo)
	if lanes, ok := cfg.GetWideLanes(); ok {
		averager.WideLanes = lanes && l2zones.LanesSupported()
	}

	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("colour settings: %w", err)
	}
	chain, err := l4color.NewChain(settings, clock)
	if err != nil {
		return nil, err
	}

	smoother, err := SmootherFromConfig(cfg, clock)
	if err != nil {
		return nil, fmt.Errorf("smoothing: %w", err)
	}

	diagf("built pipeline: %d zones, algo=%s, lanes=%v, ema=%.2f, fps %d->%d",
		zones.Active().Len(), algo, averager.WideLanes, cfg.GetEMAAlpha(), cfg.GetCaptureFPS(), cfg.GetTargetFPS())

	return New(Config{
		Zones:      zones,
		Averager:   averager,
		Chain:      chain,
		Smoother:   smoother,
		Classifier: ClassifierFromConfig(cfg),
		Publisher:  pub,
		Listeners:  listeners,
		LEDOffset:  cfg.GetLEDOffset(),
		Clock:      clock,
	})
}
