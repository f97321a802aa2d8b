package net

import (
	"errors"

	"github.com/mosaicnetworks/uartbus/src/packet"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrFrameTooLarge is returned for packets which do not fit in a frame.
	ErrFrameTooLarge = errors.New("frame too large")
)

// MaxFrame is the largest encoded packet a transport carries.
const MaxFrame = 255

// Transport connects a node to the bus.
type Transport interface {

	// Send broadcasts a packet. Delivery is best-effort.
	Send(p *packet.Packet) error

	// AvailableForSend reports whether the transport can take p right now
	// without dropping it locally.
	AvailableForSend(p *packet.Packet) bool

	// Consumer returns the channel of decoded inbound packets.
	Consumer() <-chan *packet.Packet

	// LocalAddr is used to return our local address
	LocalAddr() string

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
