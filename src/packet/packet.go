package packet

import (
	"fmt"
	"strings"
)

// Kind distinguishes commands from telemetry.
type Kind uint8

const (
	// Command packets ask a node to do something
	Command Kind = iota
	// Telemetry packets report state
	Telemetry
)

// String ...
func (k Kind) String() string {
	if k == Command {
		return "cmd"
	}
	return "tlm"
}

// Message ids used by the bus layer.
const (
	IDHeartbeat byte = 'h'
	IDAnomaly   byte = '!'
	IDSanity    byte = '?'
	IDTest      byte = 'z'
)

// Routing tags.
const (
	FromLocal uint8 = 0
	ToLocal   uint8 = 0
	// FromAny is the wildcard source filter. It never appears on the wire.
	FromAny uint8 = 0xFF
)

// Header field limits.
const (
	NodeMax    = 32
	MaxEntries = 31
	MaxRoute   = 8
	HeaderSize = 4
)

// Packet is a decoded bus packet.
type Packet struct {
	Kind    Kind
	ID      byte
	From    uint8
	Node    uint8
	Dest    uint8
	Seq     uint8
	Entries []Entry
}

// New returns a packet with room for size entries. Entries are zero-valued
// until set.
func New(kind Kind, id byte, from, dest uint8, size int) *Packet {
	if size > MaxEntries {
		size = MaxEntries
	}
	return &Packet{
		Kind:    kind,
		ID:      id,
		From:    from,
		Dest:    dest,
		Entries: make([]Entry, size),
	}
}

// Append adds an entry at the end of the packet. It returns false when the
// packet is full.
func (p *Packet) Append(e Entry) bool {
	if len(p.Entries) >= MaxEntries {
		return false
	}
	p.Entries = append(p.Entries, e)
	return true
}

// Find returns the index-th entry of the given type.
func (p *Packet) Find(entryType byte, index int) (Entry, bool) {
	i := 0
	for _, e := range p.Entries {
		if e.Type == entryType {
			if i == index {
				return e, true
			}
			i++
		}
	}
	return Entry{}, false
}

// Size is the encoded length of the packet in bytes.
func (p *Packet) Size() int {
	n := HeaderSize
	for _, e := range p.Entries {
		n += 1 + e.Payload.Len()
	}
	return n
}

// String renders the packet on one line, followed by one line per entry.
// Anomaly and sanity entries have their own layout.
func (p *Packet) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s '%c' %d.%d -> %d [%d] #%d",
		p.Kind, p.ID, p.From, p.Node, p.Dest, len(p.Entries), p.Seq)
	for _, e := range p.Entries {
		b.WriteString("\n  ")
		switch p.ID {
		case IDAnomaly:
			b.WriteString(e.anomalyString())
		case IDSanity:
			b.WriteString(e.sanityString())
		default:
			b.WriteString(e.String())
		}
	}
	return b.String()
}
