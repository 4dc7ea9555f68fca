// Package l4color owns Layer 4 (Color) of the ambient-light data model.
//
// Responsibilities: the fixed photometric correction chain applied to every
// zone average. Stages run in order: hue/saturation/lightness correction,
// gamma, luminosity floor, night-light warm shift and brightness limiter.
// Optional stages are skipped outright when disabled.
// Key types: Settings, Chain, HueMap, NightLight.
//
// Dependency rule: L4 may depend on L1, but never on L5+.
package l4color
