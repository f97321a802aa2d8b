package peers

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func newTestTracker() (*Tracker, *clock.Mock) {
	c := clock.NewMock()
	return NewTracker(c), c
}

func TestTrackerContiguousSequence(t *testing.T) {
	tr, c := newTestTracker()

	calls := 0
	for round := 0; round < 3; round++ {
		for seq := 0; seq < 256; seq++ {
			c.Add(time.Millisecond)
			if !tr.Received(uint8(seq)) {
				t.Fatalf("seq %d of round %d should be new", seq, round)
			}
			calls++
		}
	}

	if tr.LostCount != 0 {
		t.Fatalf("LostCount should be 0, not %d", tr.LostCount)
	}
	if tr.ReceivedCount != uint32(calls) {
		t.Fatalf("ReceivedCount should be %d, not %d", calls, tr.ReceivedCount)
	}
}

func TestTrackerGap(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Received(0)
	tr.Received(5)

	if tr.LostCount != 5 {
		t.Fatalf("LostCount should be 5, not %d", tr.LostCount)
	}
	if tr.ReceivedCount != 2 {
		t.Fatalf("ReceivedCount should be 2, not %d", tr.ReceivedCount)
	}
	if tr.FirstSeq != 5 {
		t.Fatalf("FirstSeq should be 5, not %d", tr.FirstSeq)
	}
}

func TestTrackerFirstPacketIsNotLoss(t *testing.T) {
	tr, _ := newTestTracker()

	if !tr.Received(77) {
		t.Fatalf("first packet should be new")
	}
	if tr.LostCount != 0 {
		t.Fatalf("first packet should not count losses, got %d", tr.LostCount)
	}
}

func TestTrackerWraparound(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Received(254)
	tr.Received(255)
	tr.Received(0)
	if tr.LostCount != 0 {
		t.Fatalf("255 -> 0 should not count losses, got %d", tr.LostCount)
	}

	tr2, _ := newTestTracker()
	tr2.Received(254)
	tr2.Received(255)
	if !tr2.Received(3) {
		t.Fatalf("3 after 255 should be new")
	}
	if tr2.LostCount != 3 {
		t.Fatalf("LostCount should be 3, not %d", tr2.LostCount)
	}
}

func TestTrackerOutOfWindow(t *testing.T) {
	tr, c := newTestTracker()

	tr.Received(10)
	firstAt := tr.FirstAt
	c.Add(5 * time.Millisecond)

	// 9 - 10 wraps to 255
	if tr.Received(9) {
		t.Fatalf("late packet should not be new")
	}
	// 138 - 10 == 128
	if tr.Received(138) {
		t.Fatalf("packet at half range should not be new")
	}

	if tr.SecondSeq != 138 {
		t.Fatalf("SecondSeq should be 138, not %d", tr.SecondSeq)
	}
	if !tr.SecondAt.Equal(c.Now()) {
		t.Fatalf("SecondAt should be stamped")
	}
	if tr.FirstSeq != 10 || !tr.FirstAt.Equal(firstAt) {
		t.Fatalf("first slot should be untouched")
	}
	if tr.ReceivedCount != 1 || tr.LostCount != 0 {
		t.Fatalf("counters should be untouched: received %d lost %d",
			tr.ReceivedCount, tr.LostCount)
	}

	// 137 - 10 == 127 is still in the window
	if !tr.Received(137) {
		t.Fatalf("packet just inside the window should be new")
	}
}

func TestTrackerDuplicateOfLast(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Received(4)
	if !tr.Received(4) {
		t.Fatalf("repeated sequence number is inside the window")
	}
	if tr.LostCount != 0 || tr.ReceivedCount != 2 {
		t.Fatalf("received %d lost %d", tr.ReceivedCount, tr.LostCount)
	}
}

func TestTrackerReset(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Received(0)
	tr.Received(50)
	tr.Received(3)
	tr.Reset()

	if tr.Seen() || tr.ReceivedCount != 0 || tr.LostCount != 0 ||
		tr.FirstSeq != 0 || tr.SecondSeq != 0 || !tr.SecondAt.IsZero() {
		t.Fatalf("tracker not reset: %+v", tr)
	}

	tr.Received(100)
	if tr.LostCount != 0 {
		t.Fatalf("first packet after reset should not count losses")
	}
}

func TestTableSnapshot(t *testing.T) {
	c := clock.NewMock()
	table := NewTable(c)

	table.Get(3).Received(0)
	table.Get(3).Received(2)
	table.Get(7).Received(9)
	c.Add(time.Second)

	snap := table.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot should have 2 entries, not %d", len(snap))
	}
	if snap[0].Slot != 3 || snap[0].Lost != 2 || snap[0].Received != 2 {
		t.Fatalf("unexpected stats %+v", snap[0])
	}
	if snap[0].LossRate != 0.5 {
		t.Fatalf("LossRate should be 0.5, not %f", snap[0].LossRate)
	}
	if snap[1].Age != time.Second {
		t.Fatalf("Age should be 1s, not %v", snap[1].Age)
	}

	table.Reset(3)
	if len(table.Snapshot()) != 1 {
		t.Fatalf("reset slot should disappear from snapshot")
	}
}
