package store

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/uartbus/src/common"
	"github.com/sirupsen/logrus"
)

const eepromPrefix = "eeprom"

// BadgerStore persists bytes in a Badger database, one key per address.
type BadgerStore struct {
	sync.RWMutex
	db     *badger.DB
	path   string
	closed bool
}

// NewBadgerStore opens the database in path, creating it if necessary.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithTruncate(true)

	if logger != nil {
		opts = opts.WithLogger(logger.WithField("ns", "badger"))
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

func addrKey(addr uint16) []byte {
	return []byte(fmt.Sprintf("%s_%04d", eepromPrefix, addr))
}

// Read implements the Store interface.
func (s *BadgerStore) Read(addr uint16) (byte, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}

	s.RLock()
	defer s.RUnlock()

	if s.closed {
		return 0, closedErr(addr)
	}

	var value byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(addrKey(addr))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if len(data) != 1 {
			return fmt.Errorf("corrupt value at %d: %d bytes", addr, len(data))
		}
		value = data[0]
		return nil
	})

	if isDBKeyNotFound(err) {
		return 0, nil
	}

	return value, err
}

// Write implements the Store interface.
func (s *BadgerStore) Write(addr uint16, value byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}

	s.RLock()
	defer s.RUnlock()

	if s.closed {
		return closedErr(addr)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(addrKey(addr), []byte{value})
	})
}

// Path returns the database directory.
func (s *BadgerStore) Path() string {
	return s.path
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func closedErr(addr uint16) error {
	return cm.NewStoreErr("EEPROM", cm.Closed, strconv.Itoa(int(addr)))
}
