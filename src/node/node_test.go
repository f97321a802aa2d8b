package node

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mosaicnetworks/uartbus/src/bus"
	"github.com/mosaicnetworks/uartbus/src/hwid"
	"github.com/mosaicnetworks/uartbus/src/net"
	"github.com/mosaicnetworks/uartbus/src/packet"
	"github.com/mosaicnetworks/uartbus/src/shared"
	"github.com/mosaicnetworks/uartbus/src/store"
)

type testNode struct {
	*Node
	store    *store.InmemStore
	trans    *net.InmemTransport
	registry *shared.Registry
}

func newTestNode(t *testing.T, unique uint32, slot uint8, testPackets bool) *testNode {
	conf := TestConfig(t)
	conf.Bus.HeartbeatFreq = 100
	conf.TickInterval = 2 * time.Millisecond
	conf.TestPackets = testPackets

	s := store.NewInmemStore()
	if err := s.Write(bus.NodeIDAddr, slot); err != nil {
		t.Fatal(err)
	}

	_, trans := net.NewInmemTransport("")
	registry := shared.NewRegistry(clock.New(), 16)

	node := NewNode(conf, s, hwid.Static(unique), trans, registry)
	if err := node.Init(); err != nil {
		t.Fatal(err)
	}

	return &testNode{
		Node:     node,
		store:    s,
		trans:    trans,
		registry: registry,
	}
}

func connect(nodes ...*testNode) {
	transports := make([]*net.InmemTransport, len(nodes))
	for i, n := range nodes {
		transports[i] = n.trans
	}
	net.ConnectAll(transports...)
}

func runNodes(nodes ...*testNode) {
	for _, n := range nodes {
		n.RunAsync()
	}
}

func shutdownNodes(nodes ...*testNode) {
	for _, n := range nodes {
		n.Shutdown()
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSlotCollisionResolves(t *testing.T) {
	n100 := newTestNode(t, 100, 0, false)
	n200 := newTestNode(t, 200, 0, false)
	connect(n100, n200)
	runNodes(n100, n200)
	defer shutdownNodes(n100, n200)

	waitFor(t, 3*time.Second, "a node to leave slot 0", func() bool {
		return n100.Slot() != 0 || n200.Slot() != 0
	})

	// let a few more heartbeats go by; the situation must be stable
	time.Sleep(100 * time.Millisecond)

	if n100.Slot() != 1 {
		t.Fatalf("node 100 should have moved to slot 1, it is on %d", n100.Slot())
	}
	if n200.Slot() != 0 {
		t.Fatalf("node 200 should have kept slot 0, it is on %d", n200.Slot())
	}

	if v, _ := n100.store.Read(bus.NodeIDAddr); v != 1 {
		t.Fatalf("persisted slot should be 1, not %d", v)
	}
	if v, _ := n200.store.Read(bus.NodeIDAddr); v != 0 {
		t.Fatalf("persisted slot should still be 0, not %d", v)
	}

	if c := n100.BusStats().Collisions; c == 0 {
		t.Fatalf("node 100 should have detected the collision")
	}

	waitFor(t, 3*time.Second, "nodes to see each other", func() bool {
		return n100.Alive(0) && n200.Alive(1)
	})
}

func TestDistinctSlotsDoNotMove(t *testing.T) {
	nodes := []*testNode{
		newTestNode(t, 300, 2, false),
		newTestNode(t, 100, 3, false),
		newTestNode(t, 200, 4, false),
	}
	connect(nodes...)
	runNodes(nodes...)
	defer shutdownNodes(nodes...)

	waitFor(t, 3*time.Second, "heartbeats from every peer", func() bool {
		for _, n := range nodes {
			if len(n.Peers()) != 2 {
				return false
			}
		}
		return true
	})

	for i, n := range nodes {
		if n.Slot() != uint8(i+2) {
			t.Fatalf("node %d moved to slot %d", i, n.Slot())
		}
		if n.BusStats().Collisions != 0 {
			t.Fatalf("node %d saw a collision", i)
		}
	}
}

func TestSharedVariablePropagates(t *testing.T) {
	sender := newTestNode(t, 1, 5, false)
	receiver := newTestNode(t, 2, 6, false)

	temperature := shared.NewVariable[float32]()
	receiver.registry.MustAdd(temperature, 't', 'T', shared.Named("temperature"))

	counter := shared.NewVariable[uint16]()
	receiver.registry.MustAdd(counter, 't', 'C', shared.From(3))

	connect(sender, receiver)
	runNodes(sender, receiver)
	defer shutdownNodes(sender, receiver)

	p := packet.New(packet.Telemetry, 't', 4, packet.ToLocal, 0)
	p.Append(shared.Entry[float32]('T', 21.5))
	p.Append(shared.Entry[uint16]('C', 7))
	sender.Send(p)

	waitFor(t, 3*time.Second, "temperature update", func() bool {
		var valid bool
		receiver.WithLock(func() { valid = temperature.IsValid() })
		return valid
	})

	receiver.WithLock(func() {
		if temperature.Value() != 21.5 {
			t.Fatalf("temperature should be 21.5, not %v", temperature.Value())
		}
		// wrong source tag
		if counter.IsValid() {
			t.Fatalf("counter accepted a packet from source 4")
		}
	})

	stats := receiver.GetStats()
	if stats["valid_variables"] != "1" {
		t.Fatalf("expected 1 valid variable, got %s", stats["valid_variables"])
	}
}

func TestTestPackets(t *testing.T) {
	sender := newTestNode(t, 1, 0, true)
	receiver := newTestNode(t, 2, 1, false)
	connect(sender, receiver)
	runNodes(sender, receiver)
	defer shutdownNodes(sender, receiver)

	waitFor(t, 3*time.Second, "test packets", func() bool {
		n := 0
		receiver.WithLock(func() { n = receiver.packetsReceived })
		return n > 10
	})
}

func TestShutdown(t *testing.T) {
	n := newTestNode(t, 1, 0, false)
	n.RunAsync()

	waitFor(t, time.Second, "running state", func() bool {
		return n.GetState() == Running
	})

	n.Shutdown()
	if n.GetState() != Shutdown {
		t.Fatalf("state should be Shutdown, not %v", n.GetState())
	}

	// second call is a no-op
	n.Shutdown()

	if err := n.trans.Send(packet.New(packet.Telemetry, 'x', 0, 0, 0)); err != net.ErrTransportShutdown {
		t.Fatalf("transport should be closed, got %v", err)
	}
}
