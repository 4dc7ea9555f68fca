package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// HueAdjust is one hue sector's correction as it appears in JSON. Hue is in
// degrees; saturation and lightness are fractions added to the HSL values.
type HueAdjust struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`
}

// PipelineConfig is the root configuration of the ambient-light daemon.
// Every field is optional; the Get* accessors supply defaults, so partial
// files are safe.
type PipelineConfig struct {
	// Averaging
	Algo      *string `json:"algo,omitempty"` // "per-zone" or "whole-frame-average"
	WideLanes *bool   `json:"wide_lanes,omitempty"`

	// Correction chain
	Gamma               *float64             `json:"gamma,omitempty"`
	BrightnessLimiter   *float64             `json:"brightness_limiter,omitempty"`
	LuminosityThreshold *int                 `json:"luminosity_threshold,omitempty"`
	NightLightMode      *string              `json:"night_light_mode,omitempty"`
	NightLightLevel     *int                 `json:"night_light_level,omitempty"`
	NightLightStart     *string              `json:"night_light_start,omitempty"` // "HH:MM"
	NightLightEnd       *string              `json:"night_light_end,omitempty"`
	HueMap              map[string]HueAdjust `json:"hue_map,omitempty"`
	GreyTolerance       *float64             `json:"grey_tolerance,omitempty"`
	BlendTolerance      *float64             `json:"blend_tolerance,omitempty"`

	// Smoothing
	EMAAlpha              *float64 `json:"ema_alpha,omitempty"` // 0 disables
	CaptureFPS            *int     `json:"capture_fps,omitempty"`
	TargetFPS             *int     `json:"target_fps,omitempty"` // 0 disables interpolation
	InterpolationHeadroom *string  `json:"interpolation_headroom,omitempty"`

	// Aspect ratio
	AutoDetectBlackBars   *bool    `json:"auto_detect_black_bars,omitempty"`
	BlackTolerance        *int     `json:"black_tolerance,omitempty"`
	AspectSamples         *int     `json:"aspect_samples,omitempty"`
	AspectMinContentRatio *float64 `json:"aspect_min_content_ratio,omitempty"`
	AspectCheckInterval   *string  `json:"aspect_check_interval,omitempty"`

	// Geometry
	ScreenWidth   *int     `json:"screen_width,omitempty"`
	ScreenHeight  *int     `json:"screen_height,omitempty"`
	CaptureWidth  *int     `json:"capture_width,omitempty"`
	CaptureHeight *int     `json:"capture_height,omitempty"`
	LEDTop        *int     `json:"led_top,omitempty"`
	LEDRight      *int     `json:"led_right,omitempty"`
	LEDBottom     *int     `json:"led_bottom,omitempty"`
	LEDLeft       *int     `json:"led_left,omitempty"`
	GroupBy       *int     `json:"group_by,omitempty"`
	LEDOffset     *int     `json:"led_offset,omitempty"`
	Orientation   *string  `json:"orientation,omitempty"`
	DepthRatio    *float64 `json:"depth_ratio,omitempty"`

	// Output
	Output       *string `json:"output,omitempty"` // "serial", "udp", "both" or "none"
	SerialPort   *string `json:"serial_port,omitempty"`
	BaudRate     *int    `json:"baud_rate,omitempty"`
	UDPHost      *string `json:"udp_host,omitempty"`
	UDPPort      *int    `json:"udp_port,omitempty"`
	UDPQueueSize *int    `json:"udp_queue_size,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPipelineConfig returns a PipelineConfig with every field unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a config with every commonly tuned field
// populated, matching config/pipeline.defaults.json.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Algo:                  ptrString("per-zone"),
		Gamma:                 ptrFloat64(1.0),
		BrightnessLimiter:     ptrFloat64(0),
		LuminosityThreshold:   ptrInt(0),
		NightLightMode:        ptrString("disabled"),
		NightLightLevel:       ptrInt(5),
		NightLightStart:       ptrString("20:00"),
		NightLightEnd:         ptrString("07:00"),
		GreyTolerance:         ptrFloat64(0.05),
		BlendTolerance:        ptrFloat64(20),
		EMAAlpha:              ptrFloat64(0),
		CaptureFPS:            ptrInt(30),
		TargetFPS:             ptrInt(0),
		InterpolationHeadroom: ptrString("2ms"),
		AutoDetectBlackBars:   ptrBool(false),
		BlackTolerance:        ptrInt(6),
		AspectSamples:         ptrInt(50),
		AspectCheckInterval:   ptrString("100ms"),
		CaptureWidth:          ptrInt(192),
		CaptureHeight:         ptrInt(108),
		LEDTop:                ptrInt(32),
		LEDRight:              ptrInt(18),
		LEDBottom:             ptrInt(32),
		LEDLeft:               ptrInt(18),
		GroupBy:               ptrInt(1),
		Orientation:           ptrString("clockwise"),
		Output:                ptrString("none"),
	}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file. The file
// must have a .json extension and be at most 1 MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParsePipelineConfig(data)
}

// ParsePipelineConfig decodes and validates JSON config bytes.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. It panics if the file cannot be found; it is meant for
// tests and tools run from inside the repository.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from the repository")
}

// JSON returns the config re-encoded, for recording alongside a session.
func (c *PipelineConfig) JSON() string {
	data, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(data)
}

var hueSectors = map[string]bool{
	"red": true, "yellow": true, "green": true, "cyan": true,
	"blue": true, "magenta": true, "grey": true, "master": true,
}

// Validate checks the values that are set.
func (c *PipelineConfig) Validate() error {
	if c.Algo != nil {
		switch strings.ToLower(*c.Algo) {
		case "per-zone", "whole-frame-average":
		default:
			return fmt.Errorf("algo must be per-zone or whole-frame-average, got %q", *c.Algo)
		}
	}
	if c.Gamma != nil && (*c.Gamma < 0 || *c.Gamma > 10) {
		return fmt.Errorf("gamma must be between 0 and 10, got %f", *c.Gamma)
	}
	if c.BrightnessLimiter != nil && (*c.BrightnessLimiter < 0 || *c.BrightnessLimiter > 1) {
		return fmt.Errorf("brightness_limiter must be between 0 and 1, got %f", *c.BrightnessLimiter)
	}
	if c.LuminosityThreshold != nil && (*c.LuminosityThreshold < 0 || *c.LuminosityThreshold > 100) {
		return fmt.Errorf("luminosity_threshold must be between 0 and 100, got %d", *c.LuminosityThreshold)
	}
	if c.NightLightMode != nil {
		switch strings.ToLower(*c.NightLightMode) {
		case "disabled", "auto", "enabled":
		default:
			return fmt.Errorf("night_light_mode must be disabled, auto or enabled, got %q", *c.NightLightMode)
		}
	}
	if c.NightLightLevel != nil && (*c.NightLightLevel < 1 || *c.NightLightLevel > 10) {
		return fmt.Errorf("night_light_level must be between 1 and 10, got %d", *c.NightLightLevel)
	}
	for name, v := range map[string]*string{"night_light_start": c.NightLightStart, "night_light_end": c.NightLightEnd} {
		if v != nil {
			if _, err := time.Parse("15:04", *v); err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, *v, err)
			}
		}
	}
	for sector := range c.HueMap {
		if !hueSectors[strings.ToLower(sector)] {
			return fmt.Errorf("hue_map has unknown sector %q", sector)
		}
	}
	if c.EMAAlpha != nil && (*c.EMAAlpha < 0 || *c.EMAAlpha >= 1) {
		return fmt.Errorf("ema_alpha must be in [0,1), got %f", *c.EMAAlpha)
	}
	if c.CaptureFPS != nil && (*c.CaptureFPS < 1 || *c.CaptureFPS > 240) {
		return fmt.Errorf("capture_fps must be between 1 and 240, got %d", *c.CaptureFPS)
	}
	if c.TargetFPS != nil && (*c.TargetFPS < 0 || *c.TargetFPS > 240) {
		return fmt.Errorf("target_fps must be between 0 and 240, got %d", *c.TargetFPS)
	}
	for name, v := range map[string]*string{"interpolation_headroom": c.InterpolationHeadroom, "aspect_check_interval": c.AspectCheckInterval} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}
	if c.BlackTolerance != nil && (*c.BlackTolerance < 0 || *c.BlackTolerance > 255) {
		return fmt.Errorf("black_tolerance must be between 0 and 255, got %d", *c.BlackTolerance)
	}
	if c.AspectMinContentRatio != nil && (*c.AspectMinContentRatio <= 0 || *c.AspectMinContentRatio >= 1) {
		return fmt.Errorf("aspect_min_content_ratio must be in (0,1), got %f", *c.AspectMinContentRatio)
	}
	for name, v := range map[string]*int{
		"led_top": c.LEDTop, "led_right": c.LEDRight, "led_bottom": c.LEDBottom, "led_left": c.LEDLeft,
		"group_by": c.GroupBy, "aspect_samples": c.AspectSamples,
		"capture_width": c.CaptureWidth, "capture_height": c.CaptureHeight,
		"screen_width": c.ScreenWidth, "screen_height": c.ScreenHeight,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}
	if c.Orientation != nil {
		switch strings.ToLower(*c.Orientation) {
		case "clockwise", "anticlockwise":
		default:
			return fmt.Errorf("orientation must be clockwise or anticlockwise, got %q", *c.Orientation)
		}
	}
	if c.Output != nil {
		switch strings.ToLower(*c.Output) {
		case "serial", "udp", "both", "none":
		default:
			return fmt.Errorf("output must be serial, udp, both or none, got %q", *c.Output)
		}
	}
	if c.UDPPort != nil && (*c.UDPPort < 0 || *c.UDPPort > 65535) {
		return fmt.Errorf("udp_port must be between 0 and 65535, got %d", *c.UDPPort)
	}
	return nil
}

func getString(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getDuration(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}

// GetAlgo returns the averaging algorithm name.
func (c *PipelineConfig) GetAlgo() string { return getString(c.Algo, "per-zone") }

// GetWideLanes returns the wide-lane override. ok is false when unset, in
// which case the CPU decides.
func (c *PipelineConfig) GetWideLanes() (enabled, ok bool) {
	if c.WideLanes == nil {
		return false, false
	}
	return *c.WideLanes, true
}

// GetGamma returns the gamma exponent; 1 leaves colours unchanged.
func (c *PipelineConfig) GetGamma() float64 { return getFloat(c.Gamma, 1.0) }

// GetBrightnessLimiter returns the lightness ceiling; 0 disables it.
func (c *PipelineConfig) GetBrightnessLimiter() float64 { return getFloat(c.BrightnessLimiter, 0) }

// GetLuminosityThreshold returns the brightness floor percentage.
func (c *PipelineConfig) GetLuminosityThreshold() int { return getInt(c.LuminosityThreshold, 0) }

func (c *PipelineConfig) GetNightLightMode() string  { return getString(c.NightLightMode, "disabled") }
func (c *PipelineConfig) GetNightLightLevel() int    { return getInt(c.NightLightLevel, 5) }
func (c *PipelineConfig) GetNightLightStart() string { return getString(c.NightLightStart, "20:00") }
func (c *PipelineConfig) GetNightLightEnd() string   { return getString(c.NightLightEnd, "07:00") }
func (c *PipelineConfig) GetGreyTolerance() float64  { return getFloat(c.GreyTolerance, 0.05) }
func (c *PipelineConfig) GetBlendTolerance() float64 { return getFloat(c.BlendTolerance, 20) }

// GetEMAAlpha returns the EMA weight; 0 disables the EMA.
func (c *PipelineConfig) GetEMAAlpha() float64 { return getFloat(c.EMAAlpha, 0) }

func (c *PipelineConfig) GetCaptureFPS() int { return getInt(c.CaptureFPS, 30) }

// GetTargetFPS returns the interpolation target; 0 disables interpolation.
func (c *PipelineConfig) GetTargetFPS() int { return getInt(c.TargetFPS, 0) }

func (c *PipelineConfig) GetInterpolationHeadroom() time.Duration {
	return getDuration(c.InterpolationHeadroom, 2*time.Millisecond)
}

// GetAutoDetectBlackBars reports whether the aspect classifier runs.
func (c *PipelineConfig) GetAutoDetectBlackBars() bool {
	if c.AutoDetectBlackBars == nil {
		return false
	}
	return *c.AutoDetectBlackBars
}

func (c *PipelineConfig) GetBlackTolerance() int { return getInt(c.BlackTolerance, 6) }
func (c *PipelineConfig) GetAspectSamples() int  { return getInt(c.AspectSamples, 50) }
func (c *PipelineConfig) GetAspectMinContentRatio() float64 {
	return getFloat(c.AspectMinContentRatio, 0.15)
}
func (c *PipelineConfig) GetAspectCheckInterval() time.Duration {
	return getDuration(c.AspectCheckInterval, 100*time.Millisecond)
}

func (c *PipelineConfig) GetScreenWidth() int  { return getInt(c.ScreenWidth, 1920) }
func (c *PipelineConfig) GetScreenHeight() int { return getInt(c.ScreenHeight, 1080) }

// GetCaptureWidth returns the width of the (usually downscaled) capture
// buffer the zones are laid out on.
func (c *PipelineConfig) GetCaptureWidth() int  { return getInt(c.CaptureWidth, 192) }
func (c *PipelineConfig) GetCaptureHeight() int { return getInt(c.CaptureHeight, 108) }

func (c *PipelineConfig) GetLEDTop() int    { return getInt(c.LEDTop, 32) }
func (c *PipelineConfig) GetLEDRight() int  { return getInt(c.LEDRight, 18) }
func (c *PipelineConfig) GetLEDBottom() int { return getInt(c.LEDBottom, 32) }
func (c *PipelineConfig) GetLEDLeft() int   { return getInt(c.LEDLeft, 18) }

// GetLEDCount returns the total number of LEDs on the strip.
func (c *PipelineConfig) GetLEDCount() int {
	return c.GetLEDTop() + c.GetLEDRight() + c.GetLEDBottom() + c.GetLEDLeft()
}

func (c *PipelineConfig) GetGroupBy() int           { return getInt(c.GroupBy, 1) }
func (c *PipelineConfig) GetLEDOffset() int         { return getInt(c.LEDOffset, 0) }
func (c *PipelineConfig) GetOrientation() string    { return getString(c.Orientation, "clockwise") }
func (c *PipelineConfig) GetDepthRatio() float64    { return getFloat(c.DepthRatio, 0.15) }
func (c *PipelineConfig) GetOutput() string         { return getString(c.Output, "none") }
func (c *PipelineConfig) GetSerialPort() string     { return getString(c.SerialPort, "/dev/ttyUSB0") }
func (c *PipelineConfig) GetBaudRate() int          { return getInt(c.BaudRate, 115200) }
func (c *PipelineConfig) GetUDPHost() string        { return getString(c.UDPHost, "127.0.0.1") }
func (c *PipelineConfig) GetUDPPort() int           { return getInt(c.UDPPort, 21324) }
func (c *PipelineConfig) GetUDPQueueSize() int      { return getInt(c.UDPQueueSize, 4) }
