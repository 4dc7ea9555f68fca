package l2zones

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Variant names a framing of the captured content.
type Variant int

const (
	Fullscreen Variant = iota
	Letterbox
	Pillarbox
)

// Variants lists every framing in evaluation order.
var Variants = [...]Variant{Fullscreen, Letterbox, Pillarbox}

func (v Variant) String() string {
	switch v {
	case Fullscreen:
		return "fullscreen"
	case Letterbox:
		return "letterbox"
	case Pillarbox:
		return "pillarbox"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseVariant converts a configuration name into a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fullscreen", "":
		return Fullscreen, nil
	case "letterbox":
		return Letterbox, nil
	case "pillarbox":
		return Pillarbox, nil
	}
	return Fullscreen, fmt.Errorf("unknown zone map variant %q", s)
}

// ZoneRect is the capture rectangle for one LED. Index is 1-based and equals
// the LED's position along the strip. GroupedAlias zones reuse the colour of
// index-1 instead of sampling.
type ZoneRect struct {
	Index        int
	X            int
	Y            int
	Width        int
	Height       int
	GroupedAlias bool
}

// Area returns the unclamped pixel count.
func (r ZoneRect) Area() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// ZoneMap is an ordered, immutable set of zone rectangles for one variant.
type ZoneMap struct {
	Variant Variant
	Rects   []ZoneRect
}

// Len returns the number of zones (and LEDs).
func (m *ZoneMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Rects)
}

// Validate checks the ordering invariants: indices run 1..n in order and the
// first zone is never an alias.
func (m *ZoneMap) Validate() error {
	if m == nil || len(m.Rects) == 0 {
		return fmt.Errorf("empty zone map")
	}
	for i, r := range m.Rects {
		if r.Index != i+1 {
			return fmt.Errorf("%s zone %d has index %d, want %d", m.Variant, i, r.Index, i+1)
		}
	}
	if m.Rects[0].GroupedAlias {
		return fmt.Errorf("%s zone 1 cannot be a grouped alias", m.Variant)
	}
	return nil
}

// ZoneSet holds every configured variant and the active one. Switching
// replaces the whole active map with one atomic pointer store, so the next
// averaging pass on any goroutine sees either the old map or the new one.
type ZoneSet struct {
	maps   [len(Variants)]*ZoneMap
	active atomic.Pointer[ZoneMap]
}

// NewZoneSet builds a set from maps. A fullscreen map is required and is
// the initial active variant.
func NewZoneSet(maps ...*ZoneMap) (*ZoneSet, error) {
	s := &ZoneSet{}
	for _, m := range maps {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if m.Variant < 0 || int(m.Variant) >= len(s.maps) {
			return nil, fmt.Errorf("zone map has unknown variant %d", int(m.Variant))
		}
		if s.maps[m.Variant] != nil {
			return nil, fmt.Errorf("duplicate %s zone map", m.Variant)
		}
		s.maps[m.Variant] = m
	}
	if s.maps[Fullscreen] == nil {
		return nil, fmt.Errorf("zone set requires a fullscreen map")
	}
	s.active.Store(s.maps[Fullscreen])
	return s, nil
}

// Active returns the current map.
func (s *ZoneSet) Active() *ZoneMap {
	return s.active.Load()
}

// Map returns the map for v, if configured.
func (s *ZoneSet) Map(v Variant) (*ZoneMap, bool) {
	if v < 0 || int(v) >= len(s.maps) || s.maps[v] == nil {
		return nil, false
	}
	return s.maps[v], true
}

// Activate makes v the active variant. It reports the previously active map
// and whether anything changed; activating the current variant is a no-op.
func (s *ZoneSet) Activate(v Variant) (prev *ZoneMap, changed bool, err error) {
	next, ok := s.Map(v)
	if !ok {
		return s.Active(), false, fmt.Errorf("no %s zone map configured", v)
	}
	prev = s.active.Swap(next)
	return prev, prev != next, nil
}
