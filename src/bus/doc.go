// Package bus implements the identity layer of a node on a shared multi-drop
// bus.
//
// Every node owns a slot, its logical address on the bus, and a 32-bit unique
// identifier derived from its hardware. Nodes broadcast periodic heartbeats
// carrying their unique identifier, stamped with their slot. When a node hears
// a heartbeat for its own slot but with a different unique identifier, two
// nodes are claiming the same address. Both raise a conflict anomaly. A node
// yields when the competing identifier is greater than or equal to its own, so
// the node with the smaller identifier moves to the next slot and persists it,
// and the conflict resolves without any central arbiter.
//
// Heartbeats also feed the per-slot loss trackers of package peers.
package bus
