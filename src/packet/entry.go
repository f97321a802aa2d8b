package packet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Payload is the raw value of an entry: up to four little-endian bytes.
type Payload struct {
	buf [4]byte
	len uint8
}

// Len is the number of significant payload bytes (0, 1, 2 or 4).
func (p Payload) Len() int { return int(p.len) }

// Bytes returns the significant payload bytes.
func (p Payload) Bytes() []byte { return p.buf[:p.len] }

// Word returns the payload as a zero-extended 32-bit word.
func (p Payload) Word() uint32 { return binary.LittleEndian.Uint32(p.buf[:]) }

func (p Payload) Int8() int8       { return int8(p.buf[0]) }
func (p Payload) Uint8() uint8     { return p.buf[0] }
func (p Payload) Int16() int16     { return int16(binary.LittleEndian.Uint16(p.buf[:])) }
func (p Payload) Uint16() uint16   { return binary.LittleEndian.Uint16(p.buf[:]) }
func (p Payload) Int32() int32     { return int32(p.Word()) }
func (p Payload) Uint32() uint32   { return p.Word() }
func (p Payload) Float32() float32 { return math.Float32frombits(p.Word()) }

// WordPayload builds a payload from a 32-bit word, using the shortest length
// code able to hold it.
func WordPayload(w uint32) Payload {
	var p Payload
	binary.LittleEndian.PutUint32(p.buf[:], w)
	switch {
	case w == 0:
		p.len = 0
	case w <= math.MaxUint8:
		p.len = 1
	case w <= math.MaxUint16:
		p.len = 2
	default:
		p.len = 4
	}
	return p
}

// FullPayload builds a payload which always occupies four bytes on the wire.
// Signed and floating point values use it so that their sign survives.
func FullPayload(w uint32) Payload {
	var p Payload
	binary.LittleEndian.PutUint32(p.buf[:], w)
	p.len = 4
	return p
}

// BytesPayload builds a payload from a short string of at most four bytes.
// Longer input is truncated.
func BytesPayload(b []byte) Payload {
	var p Payload
	n := copy(p.buf[:], b)
	switch {
	case n == 3:
		p.len = 4
	default:
		p.len = uint8(n)
	}
	return p
}

// Entry is a single typed field of a packet.
type Entry struct {
	Type    byte
	Payload Payload
}

// Uint32Entry ...
func Uint32Entry(t byte, v uint32) Entry { return Entry{Type: t, Payload: WordPayload(v)} }

// Int32Entry ...
func Int32Entry(t byte, v int32) Entry { return Entry{Type: t, Payload: FullPayload(uint32(v))} }

// Float32Entry ...
func Float32Entry(t byte, v float32) Entry {
	return Entry{Type: t, Payload: FullPayload(math.Float32bits(v))}
}

// StringEntry stores up to four bytes of s.
func StringEntry(t byte, s string) Entry { return Entry{Type: t, Payload: BytesPayload([]byte(s))} }

// String ...
func (e Entry) String() string {
	return fmt.Sprintf("%c %d %.6E %x", e.Type, e.Payload.Int32(), e.Payload.Float32(), e.Payload.Bytes())
}

// anomalyString renders an anomaly entry: a code byte, then the info bytes.
func (e Entry) anomalyString() string {
	var info []byte
	if b := e.Payload.Bytes(); len(b) > 1 {
		info = b[1:]
	}
	return fmt.Sprintf("%c %d %q", e.Type, e.Payload.Uint8(), info)
}

// sanityString renders a sanity entry: a count byte, then the upper 24 bits
// as a bit field.
func (e Entry) sanityString() string {
	return fmt.Sprintf("%c %d 0b%b", e.Type, e.Payload.Uint8(), e.Payload.Uint32()>>8)
}
