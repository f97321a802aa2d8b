// Package peers tracks what this node knows about the other nodes on the bus.
//
// Peers are identified by their slot, the logical bus address carried in the
// header of every packet. For each slot the package keeps a Tracker which
// infers lost, duplicate and late packets from the 8-bit sequence numbers the
// peer stamps on its packets. Trackers only remember the last two sequence
// numbers they observed, so their memory footprint is constant and a full
// table for every possible slot fits in a few hundred bytes.
package peers
