package net

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/mosaicnetworks/uartbus/src/packet"
)

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return generateUUID()
}

// generateUUID is used to generate a random UUID.
func generateUUID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%12x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16])
}

// DropFunc decides whether the copy of a packet travelling from one address to
// another is lost.
type DropFunc func(from, to string, p *packet.Packet) bool

// InmemTransport Implements the Transport interface, to allow nodes to be
// tested in-memory without a physical bus. Every packet is encoded and decoded
// again for each receiver, so receivers never share memory with the sender.
type InmemTransport struct {
	sync.RWMutex
	consumerCh chan *packet.Packet
	localAddr  string
	peers      map[string]*InmemTransport
	drop       DropFunc
	dropped    int
	shutdown   bool
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		consumerCh: make(chan *packet.Packet, 16),
		localAddr:  addr,
		peers:      make(map[string]*InmemTransport),
	}
	return addr, trans
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan *packet.Packet {
	return i.consumerCh
}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// SetDrop installs a loss simulator on outbound packets.
func (i *InmemTransport) SetDrop(drop DropFunc) {
	i.Lock()
	defer i.Unlock()
	i.drop = drop
}

// Dropped is the number of outbound copies lost to the drop function or to
// full receive queues.
func (i *InmemTransport) Dropped() int {
	i.RLock()
	defer i.RUnlock()
	return i.dropped
}

// Send implements the Transport interface. It never blocks: a receiver whose
// queue is full misses the packet.
func (i *InmemTransport) Send(p *packet.Packet) error {
	buf, err := p.Encode()
	if err != nil {
		return err
	}

	i.RLock()
	if i.shutdown {
		i.RUnlock()
		return ErrTransportShutdown
	}
	peers := make(map[string]*InmemTransport, len(i.peers))
	for addr, peer := range i.peers {
		peers[addr] = peer
	}
	drop := i.drop
	i.RUnlock()

	lost := 0
	for addr, peer := range peers {
		if drop != nil && drop(i.localAddr, addr, p) {
			lost++
			continue
		}
		// decoding our own encoding cannot fail
		cp, _ := packet.Decode(buf)
		if !peer.deliver(cp) {
			lost++
		}
	}

	if lost > 0 {
		i.Lock()
		i.dropped += lost
		i.Unlock()
	}

	return nil
}

func (i *InmemTransport) deliver(p *packet.Packet) bool {
	i.RLock()
	defer i.RUnlock()

	if i.shutdown {
		return false
	}

	select {
	case i.consumerCh <- p:
		return true
	default:
		return false
	}
}

// AvailableForSend implements the Transport interface. It checks that every
// connected receiver has room in its queue.
func (i *InmemTransport) AvailableForSend(p *packet.Packet) bool {
	if p.Size() > MaxFrame {
		return false
	}

	i.RLock()
	defer i.RUnlock()

	if i.shutdown {
		return false
	}

	for _, peer := range i.peers {
		if len(peer.consumerCh) >= cap(peer.consumerCh) {
			return false
		}
	}
	return true
}

// Connect is used to connect this transport to another transport for
// a given peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t Transport) {
	trans := t.(*InmemTransport)
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = trans
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
	i.shutdown = true
	return nil
}

// ConnectAll wires every transport to every other one, forming a single
// in-memory bus.
func ConnectAll(transports ...*InmemTransport) {
	for _, a := range transports {
		for _, b := range transports {
			if a != b {
				a.Connect(b.LocalAddr(), b)
			}
		}
	}
}
