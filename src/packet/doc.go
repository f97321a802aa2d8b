// Package packet defines the bus packet container shared by every node and its
// compact wire encoding.
//
// A packet is a 4-byte header followed by a list of typed entries:
//
//	byte 0: kind (1 bit) | message id (7 bits)
//	byte 1: from (3 bits) | source slot (5 bits)
//	byte 2: dest (3 bits) | entry count (5 bits)
//	byte 3: sequence number
//
// Each entry is one type byte, whose two high bits encode the payload length
// (0, 1, 2 or 4 bytes) and whose six low bits hold the ASCII entry type minus
// 64, followed by the little-endian payload.
package packet
