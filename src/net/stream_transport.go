package net

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mosaicnetworks/uartbus/src/packet"
	"github.com/sirupsen/logrus"
)

// writeFrame writes buf prefixed with its length.
func writeFrame(w io.Writer, buf []byte) error {
	if len(buf) > MaxFrame {
		return ErrFrameTooLarge
	}
	frame := make([]byte, 0, len(buf)+1)
	frame = append(frame, byte(len(buf)))
	frame = append(frame, buf...)
	_, err := w.Write(frame)
	return err
}

// readFrame reads one length-prefixed frame.
func readFrame(r *bufio.Reader) ([]byte, error) {
	n, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// StreamTransport implements the Transport interface over a byte stream, such
// as a serial port or a TCP connection. Each packet is preceded by a single
// length byte.
type StreamTransport struct {
	logger *logrus.Entry

	conn      io.ReadWriteCloser
	localAddr string
	timeout   time.Duration

	writeLock sync.Mutex

	consumeCh chan *packet.Packet

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex
}

// NewStreamTransport starts reading packets from conn.
func NewStreamTransport(conn io.ReadWriteCloser, localAddr string, timeout time.Duration, logger *logrus.Entry) *StreamTransport {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	trans := &StreamTransport{
		logger:     logger,
		conn:       conn,
		localAddr:  localAddr,
		timeout:    timeout,
		consumeCh:  make(chan *packet.Packet, 16),
		shutdownCh: make(chan struct{}),
	}

	go trans.listen()

	return trans
}

// NewTCPTransport dials a Hub and returns a StreamTransport over the
// connection.
func NewTCPTransport(hubAddr string, timeout time.Duration, logger *logrus.Entry) (*StreamTransport, error) {
	conn, err := net.DialTimeout("tcp", hubAddr, timeout)
	if err != nil {
		return nil, err
	}
	return NewStreamTransport(conn, conn.LocalAddr().String(), timeout, logger), nil
}

func (s *StreamTransport) listen() {
	r := bufio.NewReader(s.conn)
	for {
		buf, err := readFrame(r)
		if err != nil {
			if !s.IsShutdown() && err != io.EOF {
				s.logger.WithError(err).Error("Reading frame")
			}
			return
		}

		p, err := packet.Decode(buf)
		if err != nil {
			s.logger.WithError(err).Debug("Dropping malformed frame")
			continue
		}

		select {
		case s.consumeCh <- p:
		case <-s.shutdownCh:
			return
		}
	}
}

// Send implements the Transport interface.
func (s *StreamTransport) Send(p *packet.Packet) error {
	if s.IsShutdown() {
		return ErrTransportShutdown
	}

	buf, err := p.Encode()
	if err != nil {
		return err
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if c, ok := s.conn.(net.Conn); ok && s.timeout > 0 {
		c.SetWriteDeadline(time.Now().Add(s.timeout))
	}

	return writeFrame(s.conn, buf)
}

// AvailableForSend implements the Transport interface.
func (s *StreamTransport) AvailableForSend(p *packet.Packet) bool {
	return !s.IsShutdown() && p.Size() <= MaxFrame
}

// Consumer implements the Transport interface.
func (s *StreamTransport) Consumer() <-chan *packet.Packet {
	return s.consumeCh
}

// LocalAddr implements the Transport interface.
func (s *StreamTransport) LocalAddr() string {
	return s.localAddr
}

// IsShutdown is used to check if the transport is shutdown.
func (s *StreamTransport) IsShutdown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

// Close implements the Transport interface.
func (s *StreamTransport) Close() error {
	s.shutdownLock.Lock()
	defer s.shutdownLock.Unlock()

	if !s.shutdown {
		close(s.shutdownCh)
		s.shutdown = true
		return s.conn.Close()
	}
	return nil
}
