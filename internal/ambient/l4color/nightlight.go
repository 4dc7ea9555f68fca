package l4color

import (
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// NightLightMode selects when the warm shift is applied.
type NightLightMode int

const (
	NightLightDisabled NightLightMode = iota
	// NightLightAuto applies the shift inside the configured daily window.
	NightLightAuto
	NightLightEnabled
)

func (m NightLightMode) String() string {
	switch m {
	case NightLightDisabled:
		return "disabled"
	case NightLightAuto:
		return "auto"
	case NightLightEnabled:
		return "enabled"
	}
	return fmt.Sprintf("nightlight(%d)", int(m))
}

// ParseNightLightMode converts a configuration name into a mode.
func ParseNightLightMode(s string) (NightLightMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off", "":
		return NightLightDisabled, nil
	case "auto":
		return NightLightAuto, nil
	case "enabled", "on":
		return NightLightEnabled, nil
	}
	return NightLightDisabled, fmt.Errorf("unknown night light mode %q", s)
}

// NightLightLevel is a strength from 1 (mild) to 10 (strongest).
type NightLightLevel int

const (
	MinNightLightLevel NightLightLevel = 1
	MaxNightLightLevel NightLightLevel = 10
)

// Valid reports whether the level is in range.
func (l NightLightLevel) Valid() bool {
	return l >= MinNightLightLevel && l <= MaxNightLightLevel
}

// WarmShift is the fixed adjustment for one level. All fields are fractions.
type WarmShift struct {
	BlueReduction  float64
	RedBoost       float64
	GreenReduction float64
}

var warmShifts = [MaxNightLightLevel]WarmShift{
	{BlueReduction: 0.10, RedBoost: 0.02, GreenReduction: 0.02},
	{BlueReduction: 0.18, RedBoost: 0.04, GreenReduction: 0.04},
	{BlueReduction: 0.26, RedBoost: 0.06, GreenReduction: 0.06},
	{BlueReduction: 0.34, RedBoost: 0.08, GreenReduction: 0.08},
	{BlueReduction: 0.42, RedBoost: 0.10, GreenReduction: 0.10},
	{BlueReduction: 0.50, RedBoost: 0.12, GreenReduction: 0.13},
	{BlueReduction: 0.58, RedBoost: 0.14, GreenReduction: 0.16},
	{BlueReduction: 0.66, RedBoost: 0.16, GreenReduction: 0.19},
	{BlueReduction: 0.74, RedBoost: 0.18, GreenReduction: 0.22},
	{BlueReduction: 0.82, RedBoost: 0.20, GreenReduction: 0.25},
}

// Shift returns the table entry for l. Out-of-range levels are clamped.
func (l NightLightLevel) Shift() WarmShift {
	l = min(max(l, MinNightLightLevel), MaxNightLightLevel)
	return warmShifts[l-1]
}

// WarmShiftColor applies the level's warm shift: blue always drops, and a
// colour still brighter than half after that is pushed towards red.
func WarmShiftColor(c l1frames.ColorRGB, level NightLightLevel) l1frames.ColorRGB {
	ws := level.Shift()
	r, g, b := channels(c)
	b *= 1 - ws.BlueReduction
	if (r+g+b)/3 > 0.5 {
		r *= 1 + ws.RedBoost
		g *= 1 - ws.GreenReduction
	}
	return l1frames.ColorRGB{R: toByte(r), G: toByte(g), B: toByte(b)}
}

// ClockTime is a time of day with minute resolution.
type ClockTime struct {
	Hour, Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

// NightLight configures the warm shift stage.
type NightLight struct {
	Mode  NightLightMode
	Level NightLightLevel
	// Start and End bound the auto window in local time. The window may
	// wrap past midnight.
	Start ClockTime
	End   ClockTime
}

// DefaultNightLight is disabled with a 20:00-07:00 auto window at level 5.
func DefaultNightLight() NightLight {
	return NightLight{
		Mode:  NightLightDisabled,
		Level: 5,
		Start: ClockTime{Hour: 20},
		End:   ClockTime{Hour: 7},
	}
}

// ActiveAt reports whether the shift applies at now.
func (n NightLight) ActiveAt(now time.Time) bool {
	switch n.Mode {
	case NightLightEnabled:
		return true
	case NightLightAuto:
		m := now.Hour()*60 + now.Minute()
		start, end := n.Start.minutes(), n.End.minutes()
		if start == end {
			return false
		}
		if start < end {
			return m >= start && m < end
		}
		return m >= start || m < end
	}
	return false
}
