package packet

import (
	"errors"
	"fmt"
)

var (
	// ErrShortPacket is returned when a buffer ends before the header or one of
	// the announced entries.
	ErrShortPacket = errors.New("packet: buffer too short")

	lenCodes = [4]uint8{0, 1, 2, 4}
)

func lenCode(n uint8) byte {
	switch n {
	case 0:
		return 0
	case 1:
		return 1
	case 2:
		return 2
	default:
		return 3
	}
}

// Encode serializes the packet. Fields wider than their header slot are
// masked.
func (p *Packet) Encode() ([]byte, error) {
	if len(p.Entries) > MaxEntries {
		return nil, fmt.Errorf("packet: %d entries, max %d", len(p.Entries), MaxEntries)
	}

	buf := make([]byte, 0, p.Size())
	buf = append(buf,
		byte(p.Kind&1)<<7|p.ID&0x7F,
		(p.From&0x07)<<5|p.Node&0x1F,
		(p.Dest&0x07)<<5|byte(len(p.Entries))&0x1F,
		p.Seq,
	)

	for _, e := range p.Entries {
		if e.Type < 64 || e.Type > 127 {
			return nil, fmt.Errorf("packet: entry type %q out of range", e.Type)
		}
		buf = append(buf, lenCode(e.Payload.len)<<6|(e.Type-64)&0x3F)
		buf = append(buf, e.Payload.Bytes()...)
	}

	return buf, nil
}

// Decode parses a packet produced by Encode.
func Decode(buf []byte) (*Packet, error) {
	if len(buf) < HeaderSize {
		return nil, ErrShortPacket
	}

	size := int(buf[2] & 0x1F)
	p := &Packet{
		Kind:    Kind(buf[0] >> 7),
		ID:      buf[0] & 0x7F,
		From:    buf[1] >> 5,
		Node:    buf[1] & 0x1F,
		Dest:    buf[2] >> 5,
		Seq:     buf[3],
		Entries: make([]Entry, size),
	}

	i := HeaderSize
	for n := 0; n < size; n++ {
		if i >= len(buf) {
			return nil, ErrShortPacket
		}
		l := lenCodes[buf[i]>>6]
		if i+1+int(l) > len(buf) {
			return nil, ErrShortPacket
		}
		e := &p.Entries[n]
		e.Type = buf[i]&0x3F + 64
		copy(e.Payload.buf[:], buf[i+1:i+1+int(l)])
		e.Payload.len = l
		i += 1 + int(l)
	}

	return p, nil
}
