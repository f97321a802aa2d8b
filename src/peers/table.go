package peers

import (
	"github.com/benbjohnson/clock"
	"github.com/mosaicnetworks/uartbus/src/packet"
)

// NodeMax is the number of addressable slots on the bus.
const NodeMax = packet.NodeMax

// Table holds one Tracker per slot.
type Table struct {
	trackers [NodeMax]Tracker
}

// NewTable returns a table of fresh trackers sharing clock c.
func NewTable(c clock.Clock) *Table {
	t := &Table{}
	for i := range t.trackers {
		t.trackers[i].clock = c
	}
	return t
}

// Get returns the tracker of slot, which must be below NodeMax.
func (t *Table) Get(slot uint8) *Tracker {
	return &t.trackers[slot%NodeMax]
}

// Reset clears the tracker of slot.
func (t *Table) Reset(slot uint8) {
	t.Get(slot).Reset()
}

// Snapshot returns the stats of every slot that has been heard from.
func (t *Table) Snapshot() []Stats {
	res := make([]Stats, 0, NodeMax)
	for i := range t.trackers {
		if t.trackers[i].Seen() {
			res = append(res, t.trackers[i].Stats(i))
		}
	}
	return res
}
