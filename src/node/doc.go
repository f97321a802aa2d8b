// Package node runs a bus node.
//
// A Node owns the single logical thread of execution. Its Run loop waits for
// either a packet from the transport or a tick of its timer:
//
//   - every inbound packet goes through the bus layer (liveness, loss
//     tracking, slot conflict resolution) and then through the shared
//     variable registry, in arrival order.
//   - every tick lets the bus layer emit a heartbeat when one is due, and
//     optionally a test packet.
//
// Nothing else mutates the bus or the registry. Readers on other goroutines,
// such as the HTTP service, go through the Node accessors, which serialize
// with the Run loop.
package node
