// Package l1frames owns Layer 1 (Frames) of the ambient-light data model.
//
// Responsibilities: the borrowed capture buffer (PixelBuffer), row stride
// inference for padded backing stores, and the capture Source capability
// that every screen-grab backend is reduced to.
// Key types: PixelBuffer, Format, Source.
//
// Dependency rule: L1 depends on nothing above it. Buffers handed out by a
// Source are read-only for the duration of one pipeline pass.
package l1frames
