// Package l2zones owns Layer 2 (Zones) of the ambient-light data model.
//
// Responsibilities: the zone map (one capture rectangle per physical LED,
// in strip order), the named framing variants and the atomically swapped
// active variant, the layout generator, and reduction of each zone to a
// single average colour.
// Key types: ZoneRect, ZoneMap, ZoneSet, Variant, Averager.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2zones
