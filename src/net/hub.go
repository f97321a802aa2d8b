package net

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hub relays every frame it receives from one connection to all the other
// connections, emulating a multi-drop bus over TCP.
type Hub struct {
	sync.Mutex

	listener net.Listener
	conns    map[net.Conn]struct{}
	timeout  time.Duration
	logger   *logrus.Entry
	frames   int

	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewHub listens on bindAddr. A node that does not accept a frame within
// timeout is disconnected.
func NewHub(bindAddr string, timeout time.Duration, logger *logrus.Entry) (*Hub, error) {
	l, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Hub{
		listener:   l,
		conns:      make(map[net.Conn]struct{}),
		timeout:    timeout,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}, nil
}

// Addr returns the listening address.
func (h *Hub) Addr() string {
	return h.listener.Addr().String()
}

// Serve accepts connections until Close is called. This is a blocking call.
func (h *Hub) Serve() {
	h.logger.WithField("bind_address", h.Addr()).Info("Serving bus hub")
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			select {
			case <-h.shutdownCh:
				return
			default:
			}
			h.logger.WithError(err).Error("Accept")
			continue
		}

		h.Lock()
		h.conns[conn] = struct{}{}
		h.Unlock()

		h.logger.WithField("remote", conn.RemoteAddr().String()).Debug("Node connected")

		h.wg.Add(1)
		go h.relay(conn)
	}
}

func (h *Hub) relay(conn net.Conn) {
	defer h.wg.Done()
	defer h.drop(conn)

	r := bufio.NewReader(conn)
	for {
		buf, err := readFrame(r)
		if err != nil {
			if err != io.EOF {
				h.logger.WithError(err).Debug("Connection closed")
			}
			return
		}
		h.broadcast(conn, buf)
	}
}

func (h *Hub) broadcast(from net.Conn, buf []byte) {
	h.Lock()
	defer h.Unlock()

	h.frames++
	for c := range h.conns {
		if c == from {
			continue
		}
		if h.timeout > 0 {
			c.SetWriteDeadline(time.Now().Add(h.timeout))
		}
		if err := writeFrame(c, buf); err != nil {
			h.logger.WithError(err).WithField("remote", c.RemoteAddr().String()).Debug("Relay failed, disconnecting")
			// the relay goroutine of c drops it once its read fails
			c.Close()
		}
	}
}

func (h *Hub) drop(conn net.Conn) {
	h.Lock()
	defer h.Unlock()
	delete(h.conns, conn)
	conn.Close()
}

// Frames is the number of frames relayed so far.
func (h *Hub) Frames() int {
	h.Lock()
	defer h.Unlock()
	return h.frames
}

// Close stops the hub and disconnects every node.
func (h *Hub) Close() error {
	close(h.shutdownCh)
	err := h.listener.Close()

	h.Lock()
	for c := range h.conns {
		c.Close()
	}
	h.Unlock()

	h.wg.Wait()
	return err
}
