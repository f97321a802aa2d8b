package common

import (
	"errors"
	"testing"
)

func TestIsStore(t *testing.T) {
	err := NewStoreErr("EEPROM", OutOfRange, "4096")

	if !IsStore(err, OutOfRange) {
		t.Fatalf("expected OutOfRange StoreErr")
	}

	if IsStore(err, KeyNotFound) {
		t.Fatalf("OutOfRange should not match KeyNotFound")
	}

	if IsStore(errors.New("other"), OutOfRange) {
		t.Fatalf("plain errors are not StoreErr")
	}

	if got := err.Error(); got != "EEPROM, 4096, Out Of Range" {
		t.Fatalf("unexpected message %q", got)
	}
}
