// Package store provides the small byte-addressed persistent memory a node
// uses to remember its slot across restarts, in the manner of an EEPROM.
package store

import (
	"strconv"

	cm "github.com/mosaicnetworks/uartbus/src/common"
)

// Size is the number of addressable bytes.
const Size = 1024

// Store reads and writes single bytes at fixed addresses. Addresses that were
// never written read as 0.
type Store interface {
	Read(addr uint16) (byte, error)
	Write(addr uint16, value byte) error
	Close() error
}

func checkAddr(addr uint16) error {
	if int(addr) >= Size {
		return cm.NewStoreErr("EEPROM", cm.OutOfRange, strconv.Itoa(int(addr)))
	}
	return nil
}
