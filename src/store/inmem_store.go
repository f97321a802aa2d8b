package store

import (
	"strconv"
	"sync"

	cm "github.com/mosaicnetworks/uartbus/src/common"
)

// InmemStore is a volatile Store, for tests and for nodes which should pick a
// fresh slot on every start.
type InmemStore struct {
	sync.Mutex
	mem    [Size]byte
	writes int
	closed bool
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{}
}

// Read implements the Store interface.
func (s *InmemStore) Read(addr uint16) (byte, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return 0, cm.NewStoreErr("EEPROM", cm.Closed, strconv.Itoa(int(addr)))
	}

	return s.mem[addr], nil
}

// Write implements the Store interface.
func (s *InmemStore) Write(addr uint16, value byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return cm.NewStoreErr("EEPROM", cm.Closed, strconv.Itoa(int(addr)))
	}

	s.mem[addr] = value
	s.writes++

	return nil
}

// Writes returns the number of successful writes, which lets tests assert
// that a value was persisted rather than merely held in memory.
func (s *InmemStore) Writes() int {
	s.Lock()
	defer s.Unlock()
	return s.writes
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}
