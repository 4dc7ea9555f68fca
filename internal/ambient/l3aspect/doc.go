// Package l3aspect owns Layer 3 (Aspect) of the ambient-light data model.
//
// Responsibilities: deciding from border samples whether captured content is
// letterboxed, pillarboxed or fullscreen, and requesting at most one zone map
// switch per evaluation.
// Key types: Classifier, Config, Decision.
//
// Dependency rule: L3 may depend on L1/L2, but never on L4+.
package l3aspect
