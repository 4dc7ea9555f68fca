// Package pipeline orchestrates the ambient-light transform.
//
// It wires the layer packages (L1 frames, L2 zones, L3 aspect, L4 colour,
// L5 smoothing) into one pass per captured frame and hands the result to a
// Publisher. The orchestrator owns every piece of mutable state the pass
// needs; there are no package-level registries. A frame that arrives while
// a pass is running is dropped, never queued.
package pipeline
