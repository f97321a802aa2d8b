package node

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/uartbus/src/bus"
	"github.com/mosaicnetworks/uartbus/src/hwid"
	"github.com/mosaicnetworks/uartbus/src/net"
	"github.com/mosaicnetworks/uartbus/src/packet"
	"github.com/mosaicnetworks/uartbus/src/peers"
	"github.com/mosaicnetworks/uartbus/src/shared"
	"github.com/mosaicnetworks/uartbus/src/store"
	"github.com/sirupsen/logrus"
)

// Node drives the bus layer and the shared variable registry from a single
// goroutine.
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	// busLock serializes the Run loop with external readers and senders.
	busLock  sync.Mutex
	bus      *bus.Bus
	registry *shared.Registry

	trans net.Transport
	netCh <-chan *packet.Packet

	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	start           time.Time
	packetsReceived int
	variableUpdates int
	ticks           int
}

// NewNode is a factory method that returns a Node instance. The transport is
// also the bus layer's sender.
func NewNode(conf *Config,
	s store.Store,
	hardware hwid.Provider,
	trans net.Transport,
	registry *shared.Registry,
) *Node {
	if conf.Bus.Logger == nil {
		conf.Bus.Logger = logrus.NewEntry(conf.Logger)
	}

	node := Node{
		conf:       conf,
		logger:     conf.Bus.Logger.WithField("addr", trans.LocalAddr()),
		bus:        bus.NewBus(conf.Bus, s, hardware, trans),
		registry:   registry,
		trans:      trans,
		netCh:      trans.Consumer(),
		shutdownCh: make(chan struct{}),
	}

	return &node
}

// Init loads the bus identity.
func (n *Node) Init() error {
	n.busLock.Lock()
	defer n.busLock.Unlock()

	n.bus.Begin()
	n.logger = n.logger.WithField("unique", n.bus.Unique())

	return nil
}

// RunAsync calls Run in a separate goroutine.
func (n *Node) RunAsync() {
	n.logger.Debug("runasync")
	n.goFunc(n.Run)
}

// Run is the main loop of the node. It returns after Shutdown.
func (n *Node) Run() {
	n.busLock.Lock()
	n.start = n.conf.Bus.Clock.Now()
	n.busLock.Unlock()

	if n.getState() == Shutdown {
		return
	}
	n.setState(Running)

	ticker := n.conf.Bus.Clock.Ticker(n.tickInterval())
	defer ticker.Stop()

	n.logger.WithField("tick", n.tickInterval()).Debug("Run loop")

	for {
		select {
		case p := <-n.netCh:
			n.process(p)
		case <-ticker.C:
			n.tick()
		case <-n.shutdownCh:
			return
		}
	}
}

func (n *Node) tickInterval() time.Duration {
	if n.conf.TickInterval <= 0 {
		return DefaultTickInterval
	}
	return n.conf.TickInterval
}

func (n *Node) process(p *packet.Packet) {
	n.busLock.Lock()
	defer n.busLock.Unlock()

	n.packetsReceived++
	n.bus.Process(p)
	if updated := n.registry.Update(p); updated > 0 {
		n.variableUpdates += updated
		n.logger.WithFields(logrus.Fields{
			"id":      string(p.ID),
			"updated": updated,
		}).Debug("Shared variables updated")
	}
}

func (n *Node) tick() {
	n.busLock.Lock()
	defer n.busLock.Unlock()

	n.ticks++
	n.bus.Update()
	if n.conf.TestPackets {
		n.bus.SendTestPacket()
	}
}

// Send transmits an application packet on the bus, stamped with this node's
// slot and sequence number.
func (n *Node) Send(p *packet.Packet) {
	n.busLock.Lock()
	defer n.busLock.Unlock()
	n.bus.Send(p)
}

// Slot returns the current slot of this node.
func (n *Node) Slot() uint8 {
	n.busLock.Lock()
	defer n.busLock.Unlock()
	return n.bus.Slot()
}

// BusStats returns a snapshot of the bus layer.
func (n *Node) BusStats() bus.Stats {
	n.busLock.Lock()
	defer n.busLock.Unlock()
	return n.bus.Stats()
}

// Peers returns the loss statistics of every slot heard from.
func (n *Node) Peers() []peers.Stats {
	n.busLock.Lock()
	defer n.busLock.Unlock()
	return n.bus.Peers().Snapshot()
}

// Alive reports whether slot was heard from recently.
func (n *Node) Alive(slot uint8) bool {
	n.busLock.Lock()
	defer n.busLock.Unlock()
	return n.bus.Alive(slot)
}

// Variables returns a snapshot of the shared variable registry.
func (n *Node) Variables() []shared.Info {
	n.busLock.Lock()
	defer n.busLock.Unlock()
	return n.registry.Snapshot()
}

// WithLock runs f while the Run loop is held, so that f can read shared
// variables consistently.
func (n *Node) WithLock(f func()) {
	n.busLock.Lock()
	defer n.busLock.Unlock()
	f()
}

// GetState returns the state of the node.
func (n *Node) GetState() State {
	return n.getState()
}

// Shutdown stops the main loop and closes the transport. It does not close
// the store, which belongs to the caller.
func (n *Node) Shutdown() {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if n.getState() != Shutdown {
		n.logger.Debug("Shutdown")

		n.setState(Shutdown)

		close(n.shutdownCh)

		n.waitRoutines()

		n.logStats()

		if err := n.trans.Close(); err != nil {
			n.logger.WithError(err).Error("Closing transport")
		}
	}
}

// Done is closed when the node starts shutting down.
func (n *Node) Done() <-chan struct{} {
	return n.shutdownCh
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	n.busLock.Lock()
	defer n.busLock.Unlock()

	bs := n.bus.Stats()

	alive := 0
	for slot := 0; slot < packet.NodeMax; slot++ {
		if uint8(slot) != bs.Slot && n.bus.Alive(uint8(slot)) {
			alive++
		}
	}

	valid := 0
	for _, v := range n.registry.Snapshot() {
		if v.Valid {
			valid++
		}
	}

	var uptime time.Duration
	if !n.start.IsZero() {
		uptime = n.conf.Bus.Clock.Since(n.start)
	}

	s := map[string]string{
		"slot":             strconv.Itoa(int(bs.Slot)),
		"unique":           fmt.Sprint(bs.Unique),
		"state":            n.getState().String(),
		"heartbeats_sent":  strconv.Itoa(bs.HeartbeatsSent),
		"collisions":       strconv.Itoa(bs.Collisions),
		"alive_peers":      strconv.Itoa(alive),
		"tracked_peers":    strconv.Itoa(len(bs.Peers)),
		"packets_received": strconv.Itoa(n.packetsReceived),
		"variable_updates": strconv.Itoa(n.variableUpdates),
		"variables":        strconv.Itoa(n.registry.Len()),
		"valid_variables":  strconv.Itoa(valid),
		"ticks":            strconv.Itoa(n.ticks),
		"uptime":           uptime.String(),
	}
	return s
}

func (n *Node) logStats() {
	stats := n.GetStats()

	n.logger.WithFields(logrus.Fields{
		"slot":             stats["slot"],
		"state":            stats["state"],
		"heartbeats_sent":  stats["heartbeats_sent"],
		"collisions":       stats["collisions"],
		"alive_peers":      stats["alive_peers"],
		"packets_received": stats["packets_received"],
		"valid_variables":  stats["valid_variables"],
	}).Debug("Stats")
}
