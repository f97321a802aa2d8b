package bus

import (
	"github.com/mosaicnetworks/uartbus/src/peers"
	"github.com/mosaicnetworks/uartbus/src/store"
	"github.com/sirupsen/logrus"
)

// NodeIDAddr is the store address of the persisted slot.
const NodeIDAddr uint16 = 0

// Identity is this node's slot and unique identifier. Only the slot is
// persisted.
type Identity struct {
	Slot   uint8
	Unique uint32

	store  store.Store
	logger *logrus.Entry
}

// NewIdentity returns an identity persisted in s.
func NewIdentity(s store.Store, logger *logrus.Entry) *Identity {
	return &Identity{
		store:  s,
		logger: logger,
	}
}

// Load reads the slot from the store. The stored byte is reduced modulo
// NodeMax; a read error leaves the node on slot 0.
func (i *Identity) Load() {
	v, err := i.store.Read(NodeIDAddr)
	if err != nil {
		i.logger.WithError(err).Error("Reading slot, defaulting to 0")
		v = 0
	}
	i.Slot = v % peers.NodeMax
}

// Save persists the slot. Failures are logged and otherwise ignored: the node
// keeps using its in-memory slot.
func (i *Identity) Save() {
	if err := i.store.Write(NodeIDAddr, i.Slot); err != nil {
		i.logger.WithError(err).WithField("slot", i.Slot).Error("Persisting slot")
	}
}

// Advance moves to the next slot, wrapping at NodeMax, and persists it.
func (i *Identity) Advance() uint8 {
	i.Slot = (i.Slot + 1) % peers.NodeMax
	i.Save()
	return i.Slot
}
