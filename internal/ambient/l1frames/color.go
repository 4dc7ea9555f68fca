package l1frames

import "fmt"

// ColorRGB is one 8-bit colour, the unit every later layer works in.
type ColorRGB struct {
	R, G, B uint8
}

// Black is the zero colour.
var Black = ColorRGB{}

func (c ColorRGB) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.R, c.G, c.B)
}

// IsBlack reports whether every channel is at or below tolerance.
func (c ColorRGB) IsBlack(tolerance uint8) bool {
	return c.R <= tolerance && c.G <= tolerance && c.B <= tolerance
}

// ClampByte clamps an integer channel into [0,255].
func ClampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
