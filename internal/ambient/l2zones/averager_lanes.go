package l2zones

import (
	"github.com/ajroetker/go-highway/hwy"
	"golang.org/x/sys/cpu"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// LanesSupported reports whether the CPU has a vector unit the wide-lane
// path benefits from. The path is correct everywhere; this only picks the
// default.
func LanesSupported() bool {
	return cpu.X86.HasSSE2 || cpu.ARM64.HasASIMD
}

// planes holds one row of the zone split into per-channel int32 slices.
type planes struct {
	r, g, b []int32
}

func (p *planes) grow(n int) {
	if cap(p.r) < n {
		p.r = make([]int32, n)
		p.g = make([]int32, n)
		p.b = make([]int32, n)
	}
	p.r, p.g, p.b = p.r[:n], p.g[:n], p.b[:n]
}

// sumLanes adds up every channel of the range using vector accumulators.
// Each row is deinterleaved into channel planes, full lanes are summed with
// vector adds and the tail that does not fill a lane is summed one sample at
// a time. A row of 8-bit samples cannot overflow an int32 lane, and rows are
// reduced into uint64 totals, so the result matches sumScalar exactly.
func (a *Averager) sumLanes(buf *l1frames.PixelBuffer, x0, y0, x1, y1 int) (r, g, b uint64) {
	bpp := buf.Format.BytesPerPixel()
	ro, gro, bo := buf.Format.Offsets()
	rowBytes := buf.Stride() * bpp
	width := x1 - x0
	lanes := hwy.MaxLanes[int32]()

	a.grow(width)
	for y := y0; y < y1; y++ {
		row := buf.Pix[y*rowBytes+x0*bpp:]
		for i := 0; i < width; i++ {
			off := i * bpp
			a.planes.r[i] = int32(row[off+ro])
			a.planes.g[i] = int32(row[off+gro])
			a.planes.b[i] = int32(row[off+bo])
		}

		accR := hwy.Zero[int32]()
		accG := hwy.Zero[int32]()
		accB := hwy.Zero[int32]()
		i := 0
		for ; i+lanes <= width; i += lanes {
			accR = hwy.Add(accR, hwy.Load(a.planes.r[i:]))
			accG = hwy.Add(accG, hwy.Load(a.planes.g[i:]))
			accB = hwy.Add(accB, hwy.Load(a.planes.b[i:]))
		}
		rowR := uint64(hwy.ReduceSum(accR))
		rowG := uint64(hwy.ReduceSum(accG))
		rowB := uint64(hwy.ReduceSum(accB))
		for ; i < width; i++ {
			rowR += uint64(a.planes.r[i])
			rowG += uint64(a.planes.g[i])
			rowB += uint64(a.planes.b[i])
		}
		r += rowR
		g += rowG
		b += rowB
	}
	return r, g, b
}
