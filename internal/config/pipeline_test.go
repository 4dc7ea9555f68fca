package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyPipelineConfig()

	assert.Equal(t, "per-zone", cfg.GetAlgo())
	assert.Equal(t, 1.0, cfg.GetGamma())
	assert.Equal(t, 0.0, cfg.GetEMAAlpha())
	assert.Equal(t, 30, cfg.GetCaptureFPS())
	assert.Equal(t, 0, cfg.GetTargetFPS())
	assert.Equal(t, 2*time.Millisecond, cfg.GetInterpolationHeadroom())
	assert.Equal(t, 100*time.Millisecond, cfg.GetAspectCheckInterval())
	assert.Equal(t, 100, cfg.GetLEDCount())
	assert.Equal(t, "clockwise", cfg.GetOrientation())
	assert.Equal(t, "none", cfg.GetOutput())
	assert.Equal(t, 115200, cfg.GetBaudRate())

	_, ok := cfg.GetWideLanes()
	assert.False(t, ok, "unset wide_lanes defers to the CPU")
}

func TestDefaultPipelineConfigMatchesGetters(t *testing.T) {
	cfg := DefaultPipelineConfig()
	require.NoError(t, cfg.Validate())

	empty := EmptyPipelineConfig()
	assert.Equal(t, empty.GetAlgo(), cfg.GetAlgo())
	assert.Equal(t, empty.GetGamma(), cfg.GetGamma())
	assert.Equal(t, empty.GetNightLightLevel(), cfg.GetNightLightLevel())
	assert.Equal(t, empty.GetLEDCount(), cfg.GetLEDCount())
	assert.Equal(t, empty.GetInterpolationHeadroom(), cfg.GetInterpolationHeadroom())
}

func TestLoadPipelineConfig(t *testing.T) {
	path := writeConfig(t, "ambilight.json", `{
  "algo": "whole-frame-average",
  "gamma": 2.2,
  "ema_alpha": 0.2,
  "target_fps": 60,
  "night_light_mode": "auto",
  "night_light_start": "21:30",
  "hue_map": {"red": {"hue": 10, "saturation": 0.1, "lightness": 0}},
  "led_top": 10,
  "wide_lanes": false,
  "aspect_check_interval": "250ms"
}`)

	cfg, err := LoadPipelineConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "whole-frame-average", cfg.GetAlgo())
	assert.Equal(t, 2.2, cfg.GetGamma())
	assert.Equal(t, 0.2, cfg.GetEMAAlpha())
	assert.Equal(t, 60, cfg.GetTargetFPS())
	assert.Equal(t, "auto", cfg.GetNightLightMode())
	assert.Equal(t, "21:30", cfg.GetNightLightStart())
	assert.Equal(t, "07:00", cfg.GetNightLightEnd(), "unset keys keep defaults")
	assert.Equal(t, HueAdjust{Hue: 10, Saturation: 0.1}, cfg.HueMap["red"])
	assert.Equal(t, 10, cfg.GetLEDTop())
	assert.Equal(t, 250*time.Millisecond, cfg.GetAspectCheckInterval())

	lanes, ok := cfg.GetWideLanes()
	assert.True(t, ok)
	assert.False(t, lanes)
}

func TestLoadPipelineConfig_Errors(t *testing.T) {
	t.Run("extension", func(t *testing.T) {
		path := writeConfig(t, "ambilight.yaml", `{}`)
		_, err := LoadPipelineConfig(path)
		assert.ErrorContains(t, err, ".json")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadPipelineConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		path := writeConfig(t, "big.json", `{"algo":"per-zone","pad":"`+strings.Repeat("x", 1024*1024)+`"}`)
		_, err := LoadPipelineConfig(path)
		assert.ErrorContains(t, err, "too large")
	})

	t.Run("bad json", func(t *testing.T) {
		path := writeConfig(t, "bad.json", `{"gamma": `)
		_, err := LoadPipelineConfig(path)
		assert.ErrorContains(t, err, "parse")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"algo", `{"algo": "median"}`},
		{"gamma", `{"gamma": -1}`},
		{"limiter", `{"brightness_limiter": 1.5}`},
		{"threshold", `{"luminosity_threshold": 101}`},
		{"night mode", `{"night_light_mode": "sometimes"}`},
		{"night level", `{"night_light_level": 11}`},
		{"night start", `{"night_light_start": "25:00"}`},
		{"hue sector", `{"hue_map": {"orange": {"hue": 5}}}`},
		{"alpha", `{"ema_alpha": 1}`},
		{"capture fps", `{"capture_fps": 0}`},
		{"target fps", `{"target_fps": -1}`},
		{"headroom", `{"interpolation_headroom": "soon"}`},
		{"black tolerance", `{"black_tolerance": 300}`},
		{"content ratio", `{"aspect_min_content_ratio": 1}`},
		{"led count", `{"led_left": -1}`},
		{"orientation", `{"orientation": "widdershins"}`},
		{"output", `{"output": "dmx"}`},
		{"udp port", `{"udp_port": 70000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePipelineConfig([]byte(tt.json))
			assert.Error(t, err)
		})
	}

	_, err := ParsePipelineConfig([]byte(`{"orientation": "Anticlockwise", "output": "BOTH"}`))
	assert.NoError(t, err, "enum values are case-insensitive")
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultPipelineConfig().GetLEDCount(), cfg.GetLEDCount())
	assert.Equal(t, "per-zone", cfg.GetAlgo())
}

func TestJSONRoundTrip(t *testing.T) {
	cfg := DefaultPipelineConfig()
	again, err := ParsePipelineConfig([]byte(cfg.JSON()))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
