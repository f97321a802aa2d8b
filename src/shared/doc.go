// Package shared replicates small typed values across the bus.
//
// A Variable is a local mirror of a value published by some node. It is
// identified by the id of the packets carrying it, the type of the entry
// holding it inside those packets, and optionally the routing tag of the node
// publishing it. Variables are registered once in a Registry, which is offered
// every inbound packet and copies matching entries into the mirrors.
//
// A mirror is valid once it has been updated, and for as long as its timeout
// has not elapsed since. Reading an invalid mirror returns its last value;
// callers check IsValid before trusting it.
//
//	temp := shared.NewVariable[float32]()
//	reg.MustAdd(temp, 't', 'f', shared.From(2), shared.Timeout(3*time.Second))
//	...
//	if temp.IsValid() {
//		use(temp.Value())
//	}
package shared
