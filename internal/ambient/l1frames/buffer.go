package l1frames

import (
	"errors"
	"fmt"
	"time"
)

// ErrShortBuffer is returned when the backing store cannot hold the rows the
// buffer claims to have.
var ErrShortBuffer = errors.New("pixel buffer smaller than width x height")

// Format describes how one sample is packed in PixelBuffer.Pix.
type Format int

const (
	// FormatRGB packs three bytes per sample: R, G, B.
	FormatRGB Format = iota
	// FormatRGBX packs four bytes per sample: R, G, B, padding.
	FormatRGBX
	// FormatBGRX packs four bytes per sample: B, G, R, padding (desktop
	// duplication APIs hand these out).
	FormatBGRX
)

func (f Format) String() string {
	switch f {
	case FormatRGB:
		return "rgb"
	case FormatRGBX:
		return "rgbx"
	case FormatBGRX:
		return "bgrx"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// BytesPerPixel returns the size of one packed sample.
func (f Format) BytesPerPixel() int {
	if f == FormatRGB {
		return 3
	}
	return 4
}

// Offsets returns the byte offsets of the red, green and blue channels
// within one sample.
func (f Format) Offsets() (r, g, b int) {
	if f == FormatBGRX {
		return 2, 1, 0
	}
	return 0, 1, 2
}

// PixelBuffer is a captured frame borrowed from a Source. The pipeline never
// writes to Pix.
type PixelBuffer struct {
	Width  int
	Height int
	Format Format

	// StrideHint is the row pitch in samples reported by the capture
	// backend. Zero means the backend did not say and the stride is
	// inferred from len(Pix).
	StrideHint int

	Pix        []byte
	CapturedAt time.Time
	Sequence   uint64
}

// NewPixelBuffer allocates a zeroed buffer with no row padding.
func NewPixelBuffer(width, height int, format Format) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]byte, width*height*format.BytesPerPixel()),
	}
}

// Capacity returns the number of whole samples in the backing store.
func (b *PixelBuffer) Capacity() int {
	return len(b.Pix) / b.Format.BytesPerPixel()
}

// Stride returns the row pitch in samples. A positive StrideHint wins;
// otherwise the pitch is inferred from the backing store size.
func (b *PixelBuffer) Stride() int {
	if b.StrideHint >= b.Width && b.StrideHint > 0 {
		return b.StrideHint
	}
	return InferStride(b.Capacity(), b.Width, b.Height)
}

// InferStride derives the padded row pitch from a backing store of capacity
// samples. When capacity equals width*height there is no padding; otherwise
// the surplus is spread evenly over the rows:
//
//	stride = width + (capacity - width*height) / height
func InferStride(capacity, width, height int) int {
	if height <= 0 || capacity <= width*height {
		return width
	}
	return width + (capacity-width*height)/height
}

// Validate checks that every row the buffer claims can be read.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("nil pixel buffer")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid pixel buffer size %dx%d", b.Width, b.Height)
	}
	stride := b.Stride()
	need := (stride*(b.Height-1) + b.Width) * b.Format.BytesPerPixel()
	if len(b.Pix) < need {
		return fmt.Errorf("%w: have %d bytes, need %d (%dx%d stride %d %s)",
			ErrShortBuffer, len(b.Pix), need, b.Width, b.Height, stride, b.Format)
	}
	return nil
}

// Offset returns the byte offset of sample (x, y). Coordinates are clamped
// to the last valid row and column.
func (b *PixelBuffer) Offset(x, y int) int {
	x = clamp(x, 0, b.Width-1)
	y = clamp(y, 0, b.Height-1)
	return (y*b.Stride() + x) * b.Format.BytesPerPixel()
}

// At returns the channels of sample (x, y), clamped to the buffer edge.
func (b *PixelBuffer) At(x, y int) (r, g, bl uint8) {
	off := b.Offset(x, y)
	ro, gro, bo := b.Format.Offsets()
	return b.Pix[off+ro], b.Pix[off+gro], b.Pix[off+bo]
}

// Set writes sample (x, y). Only sources and tests call it; the pipeline
// treats buffers as read-only.
func (b *PixelBuffer) Set(x, y int, r, g, bl uint8) {
	off := b.Offset(x, y)
	ro, gro, bo := b.Format.Offsets()
	b.Pix[off+ro] = r
	b.Pix[off+gro] = g
	b.Pix[off+bo] = bl
}

// Fill paints the rectangle [x0,x1) x [y0,y1) with one colour.
func (b *PixelBuffer) Fill(x0, y0, x1, y1 int, r, g, bl uint8) {
	for y := max(y0, 0); y < min(y1, b.Height); y++ {
		for x := max(x0, 0); x < min(x1, b.Width); x++ {
			b.Set(x, y, r, g, bl)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
