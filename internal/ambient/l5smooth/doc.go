// Package l5smooth owns Layer 5 (Smoothing) of the ambient-light data model.
//
// Responsibilities: temporal filtering of corrected colour arrays. An
// exponential moving average damps flicker; frame interpolation synthesises
// paced intermediate frames between slow captures. Both read and write only
// the State they are handed.
// Key types: State, EMA, Interpolator, Smoother.
//
// Dependency rule: L5 may depend on L1, but never on the pipeline.
package l5smooth
