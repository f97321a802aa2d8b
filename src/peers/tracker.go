package peers

import (
	"time"

	"github.com/benbjohnson/clock"
)

// window is the forward distance, in 8-bit sequence space, within which a
// sequence number counts as newer than the last one.
const window = 128

// Tracker follows the sequence numbers of a single peer.
type Tracker struct {
	FirstSeq      uint8
	SecondSeq     uint8
	FirstAt       time.Time
	SecondAt      time.Time
	ReceivedCount uint32
	LostCount     uint32

	clock clock.Clock
}

// NewTracker returns a tracker reading time from c.
func NewTracker(c clock.Clock) *Tracker {
	return &Tracker{clock: c}
}

// Received records a packet with sequence number seq. It returns true when
// the packet is a new delivery, and false when it is a duplicate or a late
// arrival, in which case only the secondary slot is updated.
func (t *Tracker) Received(seq uint8) bool {
	never := t.FirstAt.IsZero()

	if !never && seq-t.FirstSeq >= window {
		t.SecondSeq = seq
		t.SecondAt = t.clock.Now()
		return false
	}

	if t.FirstSeq == 255 {
		if seq != 0 {
			t.LostCount += uint32(seq)
		}
	} else if !never && seq != t.FirstSeq+1 {
		t.LostCount += uint32(seq - t.FirstSeq)
	}

	t.ReceivedCount++

	t.FirstSeq = seq
	t.FirstAt = t.clock.Now()

	return true
}

// Reset forgets everything about the peer.
func (t *Tracker) Reset() {
	t.FirstSeq = 0
	t.SecondSeq = 0
	t.ReceivedCount = 0
	t.LostCount = 0
	t.FirstAt = time.Time{}
	t.SecondAt = time.Time{}
}

// Seen reports whether at least one packet was received since the last reset.
func (t *Tracker) Seen() bool {
	return !t.FirstAt.IsZero()
}

// Stats is a point-in-time copy of a Tracker.
type Stats struct {
	Slot     int           `json:"slot"`
	LastSeq  uint8         `json:"last_seq"`
	Received uint32        `json:"received"`
	Lost     uint32        `json:"lost"`
	LossRate float64       `json:"loss_rate"`
	Age      time.Duration `json:"age"`
}

// Stats returns a snapshot of the tracker. Age is the time since the last new
// delivery.
func (t *Tracker) Stats(slot int) Stats {
	s := Stats{
		Slot:     slot,
		LastSeq:  t.FirstSeq,
		Received: t.ReceivedCount,
		Lost:     t.LostCount,
	}
	if total := t.ReceivedCount + t.LostCount; total > 0 {
		s.LossRate = float64(t.LostCount) / float64(total)
	}
	if t.Seen() {
		s.Age = t.clock.Since(t.FirstAt)
	}
	return s
}
