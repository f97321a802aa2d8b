package bloom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoFalseNegatives(t *testing.T) {
	for k := uint8(1); k <= 4; k++ {
		f := New(k)
		keys := []uint32{0, 1, 7, 31, 32, 255, 1024, 0xDEADBEEF}
		for _, key := range keys {
			f.Set(key)
		}
		for _, key := range keys {
			assert.True(t, f.IsSet(key), "k=%d key=%d", k, key)
		}
	}
}

func TestProbePositions(t *testing.T) {
	f := New(2)
	// key 1: positions 3 and 5
	f.Set(1)
	assert.Equal(t, uint32(1<<3|1<<5), f.Field())

	f.ClearAll()
	// key 11: 33 -> 1, 55 -> 23
	f.Set(11)
	assert.Equal(t, uint32(1<<1|1<<23), f.Field())
}

func TestZeroKeyOnlyTouchesBitZero(t *testing.T) {
	f := New(3)
	f.Set(0)
	assert.Equal(t, uint32(1), f.Field())
	assert.True(t, f.IsSet(0))
	assert.True(t, f.IsSet(32))
}

func TestClearAll(t *testing.T) {
	f := New(2)
	for key := uint32(0); key < 64; key++ {
		f.Set(key)
	}
	f.ClearAll()
	for key := uint32(0); key < 256; key++ {
		assert.False(t, f.IsSet(key), "key %d", key)
	}
}

func TestSetAll(t *testing.T) {
	f := New(4)
	f.SetAll()
	for key := uint32(0); key < 256; key++ {
		assert.True(t, f.IsSet(key), "key %d", key)
	}
}

func TestEmptyFilterFalseForNonZeroProbes(t *testing.T) {
	f := New(1)
	assert.False(t, f.IsSet(5))
	f.Set(5)
	// 15 mod 32 is shared by every key congruent to 5 modulo 32
	assert.True(t, f.IsSet(37))
	assert.False(t, f.IsSet(6))
}

func TestZeroProbesPanics(t *testing.T) {
	assert.Panics(t, func() { New(0) })
}
