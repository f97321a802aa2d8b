// Package hwid provides the 32-bit unique identifier a node announces in its
// heartbeats. On real hardware it comes from the microcontroller's serial
// number. Off-hardware, it is derived from a secp256k1 key kept in the data
// directory, so that it is stable across restarts and unique across machines.
package hwid

// Provider returns the node's unique identifier. The value must not change for
// the lifetime of the process.
type Provider interface {
	Unique() uint32
}

// Static is a fixed identifier, for tests and for explicit overrides.
type Static uint32

// Unique implements Provider.
func (s Static) Unique() uint32 { return uint32(s) }
