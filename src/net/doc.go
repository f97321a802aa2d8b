// Package net implements the transports a node uses to reach the shared bus.
//
// The bus is a broadcast medium: every packet a node sends reaches every other
// node, in order, or not at all. There is no addressing below the packet
// header and no retransmission. There are three implementations of the
// Transport interface:
//
// - Inmem: an in-memory bus used for testing and simulation. Packets go
// through the wire encoding, and an optional drop function simulates a noisy
// line.
//
// - Stream: packets framed over any byte stream, such as a serial device or a
// TCP connection.
//
// - TCP: a Stream transport connected to a Hub, a small relay which plays the
// role of the physical medium for nodes running on ordinary computers.
package net
