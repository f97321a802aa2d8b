package bus

import (
	"time"

	"github.com/mosaicnetworks/uartbus/src/bloom"
	"github.com/mosaicnetworks/uartbus/src/hwid"
	"github.com/mosaicnetworks/uartbus/src/packet"
	"github.com/mosaicnetworks/uartbus/src/peers"
	"github.com/mosaicnetworks/uartbus/src/store"
	"github.com/sirupsen/logrus"
)

// Anomaly categories and messages.
const (
	CategoryBus  byte = 'B'
	InfoConflict      = "CFLT"
)

// uniqueEntry is the entry type carrying the unique id in heartbeats and test
// packets.
const (
	uniqueEntry byte = 'u'
	testEntry   byte = 'I'
)

// Sender is the outbound half of a transport.
type Sender interface {
	Send(p *packet.Packet) error
	AvailableForSend(p *packet.Packet) bool
}

// Bus is the identity layer of a node. It is not safe for concurrent use; the
// owner drives it from a single goroutine.
type Bus struct {
	conf     *Config
	logger   *logrus.Entry
	identity *Identity
	hardware hwid.Provider
	sender   Sender
	nodes    *peers.Table

	heartbeatAt  time.Time
	heartbeatSeq uint8
	seq          uint8
	testSize     int

	// slots heard from in the current and previous heartbeat windows
	alive     *bloom.Filter
	wasAlive  *bloom.Filter
	anomalies map[string]int

	heartbeatsSent int
	collisions     int
	lastCollision  time.Time
}

// NewBus ...
func NewBus(conf *Config, s store.Store, hardware hwid.Provider, sender Sender) *Bus {
	return &Bus{
		conf:      conf,
		logger:    conf.Logger,
		identity:  NewIdentity(s, conf.Logger),
		hardware:  hardware,
		sender:    sender,
		nodes:     peers.NewTable(conf.Clock),
		alive:     bloom.New(2),
		wasAlive:  bloom.New(2),
		anomalies: make(map[string]int),
	}
}

// Begin loads the persisted slot and reads the unique identifier.
func (b *Bus) Begin() {
	b.identity.Load()
	b.identity.Unique = b.hardware.Unique()

	b.logger = b.conf.Logger.WithFields(logrus.Fields{
		"slot":   b.identity.Slot,
		"unique": b.identity.Unique,
	})
	b.logger.Info("Bus identity loaded")
}

// Update sends a heartbeat when the heartbeat period has elapsed. It is meant
// to be called on every iteration of the main loop.
func (b *Bus) Update() {
	if b.conf.Clock.Since(b.heartbeatAt) > b.conf.HeartbeatPeriod() {
		b.SendHeartbeat()
		b.heartbeatAt = b.conf.Clock.Now()

		b.wasAlive, b.alive = b.alive, b.wasAlive
		b.alive.ClearAll()
	}
}

// SendHeartbeat broadcasts this node's unique identifier.
func (b *Bus) SendHeartbeat() {
	hb := packet.New(packet.Telemetry, packet.IDHeartbeat, packet.FromLocal, packet.ToLocal, 0)
	hb.Append(packet.Uint32Entry(uniqueEntry, b.identity.Unique))
	hb.Seq = b.heartbeatSeq
	b.heartbeatSeq++

	b.heartbeatsSent++
	b.send(hb)
}

// SendAnomaly reports a problem. It is always logged, and broadcast when
// sendBus is true. info is truncated to four bytes on the wire.
func (b *Bus) SendAnomaly(category byte, info string, sendBus bool) {
	b.anomalies[string(category)+":"+info]++

	b.logger.WithFields(logrus.Fields{
		"category": string(category),
		"info":     info,
	}).Warn("Anomaly")

	if !sendBus {
		return
	}

	anomaly := packet.New(packet.Telemetry, packet.IDAnomaly, packet.FromLocal, packet.ToLocal, 0)
	anomaly.Append(packet.StringEntry(category, info))
	b.stamp(anomaly)
	b.send(anomaly)
}

// Process handles a packet received from the bus. Heartbeats are attributed to
// the tracker of their slot, then checked for conflicts.
func (b *Bus) Process(p *packet.Packet) {
	b.alive.Set(uint32(p.Node))

	if p.Kind != packet.Telemetry || p.ID != packet.IDHeartbeat {
		return
	}

	if !b.nodes.Get(p.Node).Received(p.Seq) {
		b.logger.WithFields(logrus.Fields{
			"from_slot": p.Node,
			"seq":       p.Seq,
		}).Debug("Late or duplicate heartbeat")
	}

	b.ReceivedHeartbeat(p)
}

// ReceivedHeartbeat resolves slot conflicts. When another node claims this
// node's slot with a unique identifier greater than or equal to this node's,
// this node moves to the next slot and forgets what it knew about its new
// slot's previous occupant. The node with the smaller identifier moves.
func (b *Bus) ReceivedHeartbeat(p *packet.Packet) {
	if len(p.Entries) == 0 {
		b.logger.WithField("from_slot", p.Node).Debug("Heartbeat without unique id")
		return
	}

	unique := p.Entries[0].Payload.Uint32()
	if p.Node != b.identity.Slot || unique == b.identity.Unique {
		return
	}

	b.collisions++
	b.lastCollision = b.conf.Clock.Now()
	b.SendAnomaly(CategoryBus, InfoConflict, true)

	if unique >= b.identity.Unique {
		old := b.identity.Slot
		slot := b.identity.Advance()
		b.nodes.Reset(slot)

		b.logger = b.conf.Logger.WithFields(logrus.Fields{
			"slot":   slot,
			"unique": b.identity.Unique,
		})
		b.logger.WithFields(logrus.Fields{
			"old_slot":   old,
			"competitor": unique,
		}).Info("Slot conflict lost, moved to next slot")
	}
}

// SendTestPacket sends a packet with a growing number of entries, cycling from
// 0 to 31, to exercise packet size handling. Nothing is sent while the
// transport has no room for the packet.
func (b *Bus) SendTestPacket() {
	test := packet.New(packet.Telemetry, packet.IDTest, b.conf.System, packet.ToLocal, b.testSize)

	if !b.sender.AvailableForSend(test) {
		return
	}

	for i := range test.Entries {
		test.Entries[i] = packet.Uint32Entry(testEntry, b.identity.Unique)
	}

	b.stamp(test)
	b.send(test)

	b.testSize = (b.testSize + 1) % 32
}

// Send stamps an application packet with this node's slot and the next
// sequence number, then transmits it.
func (b *Bus) Send(p *packet.Packet) {
	b.stamp(p)
	b.send(p)
}

func (b *Bus) stamp(p *packet.Packet) {
	p.Seq = b.seq
	b.seq++
}

func (b *Bus) send(p *packet.Packet) {
	p.Node = b.identity.Slot
	if err := b.sender.Send(p); err != nil {
		b.logger.WithError(err).WithField("id", string(p.ID)).Debug("Send failed")
	}
}

// Slot returns the current slot.
func (b *Bus) Slot() uint8 { return b.identity.Slot }

// Unique returns the unique identifier.
func (b *Bus) Unique() uint32 { return b.identity.Unique }

// Peers returns the per-slot trackers.
func (b *Bus) Peers() *peers.Table { return b.nodes }

// Alive reports whether a packet from slot was heard during the current or
// the previous heartbeat window. False positives are possible.
func (b *Bus) Alive(slot uint8) bool {
	return b.alive.IsSet(uint32(slot)) || b.wasAlive.IsSet(uint32(slot))
}

// Stats is a snapshot of the bus layer.
type Stats struct {
	Slot           uint8          `json:"slot"`
	Unique         uint32         `json:"unique"`
	HeartbeatsSent int            `json:"heartbeats_sent"`
	Collisions     int            `json:"collisions"`
	LastCollision  time.Time      `json:"last_collision"`
	Anomalies      map[string]int `json:"anomalies"`
	Peers          []peers.Stats  `json:"peers"`
}

// Stats ...
func (b *Bus) Stats() Stats {
	anomalies := make(map[string]int, len(b.anomalies))
	for k, v := range b.anomalies {
		anomalies[k] = v
	}
	return Stats{
		Slot:           b.identity.Slot,
		Unique:         b.identity.Unique,
		HeartbeatsSent: b.heartbeatsSent,
		Collisions:     b.collisions,
		LastCollision:  b.lastCollision,
		Anomalies:      anomalies,
		Peers:          b.nodes.Snapshot(),
	}
}
