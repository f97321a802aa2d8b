// Package bloom implements a k-probe bloom filter packed into a single 32-bit
// word. It is small enough to keep one per peer or per time window and is used
// to pre-filter keys before a more expensive lookup.
package bloom

// Filter is a 32-bit bloom filter. The zero value is not usable; create
// filters with New.
type Filter struct {
	k     uint8
	field uint32
}

// New returns an empty filter testing k bit positions per key. k must be
// positive.
func New(k uint8) *Filter {
	if k == 0 {
		panic("bloom: filter needs at least one probe")
	}
	return &Filter{k: k}
}

// probes calls fn with the k bit positions of key. Positions follow the
// recurrence p0 = 3*key, p(i) = p(i-1) + 2*key, taken modulo 32. It stops
// early when fn returns false.
func (f *Filter) probes(key uint32, fn func(bit uint32) bool) {
	step := key << 1
	pos := key + step
	for n := uint8(0); n < f.k; n++ {
		if !fn(uint32(1) << (pos & 0x1F)) {
			return
		}
		pos += step
	}
}

// Set marks key as present.
func (f *Filter) Set(key uint32) {
	f.probes(key, func(bit uint32) bool {
		f.field |= bit
		return true
	})
}

// IsSet reports whether key may have been set. False positives are possible,
// false negatives are not.
func (f *Filter) IsSet(key uint32) bool {
	set := true
	f.probes(key, func(bit uint32) bool {
		set = f.field&bit != 0
		return set
	})
	return set
}

// SetAll saturates the filter: every key reads as present.
func (f *Filter) SetAll() { f.field = 0xFFFFFFFF }

// ClearAll empties the filter.
func (f *Filter) ClearAll() { f.field = 0 }

// Field returns the raw bit field.
func (f *Filter) Field() uint32 { return f.field }

// K is the number of probes per key.
func (f *Filter) K() uint8 { return f.k }
