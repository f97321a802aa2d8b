package shared

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mosaicnetworks/uartbus/src/packet"
)

// Never is the age of a variable that was never updated, and the timeout of a
// variable that does not expire.
const Never = time.Duration(math.MaxInt64)

// Word lists the types a Variable can hold. They all fit in the 32-bit payload
// of a packet entry.
type Word interface {
	int8 | int16 | int32 | uint8 | uint16 | uint32 | float32 | bool
}

// binding is the untyped part of a variable, the part the Registry handles.
type binding struct {
	name       string
	kindID     byte
	entryType  byte
	from       uint8
	timeout    time.Duration
	value      uint32
	updatedAt  time.Time
	registered bool
	clock      clock.Clock
	// reports whether a payload word converts to the variable's type
	fits func(uint32) bool
}

func (b *binding) bound() *binding { return b }

func (b *binding) assign(w uint32, at time.Time) {
	b.value = w
	b.updatedAt = at
}

// Age is the time since the last update, or Never.
func (b *binding) Age() time.Duration {
	if b.updatedAt.IsZero() {
		return Never
	}
	return b.clock.Since(b.updatedAt)
}

// IsValid reports whether the variable was updated and has not expired.
func (b *binding) IsValid() bool {
	if b.updatedAt.IsZero() {
		return false
	}
	if b.timeout == Never {
		return true
	}
	return b.Age() < b.timeout
}

// PacketID is the id of the packets carrying the variable.
func (b *binding) PacketID() byte { return b.kindID }

// EntryType is the type of the entry carrying the variable.
func (b *binding) EntryType() byte { return b.entryType }

// Source is the routing tag the variable accepts updates from, or
// packet.FromAny.
func (b *binding) Source() uint8 { return b.from }

// Name is the optional label given at registration.
func (b *binding) Name() string { return b.name }

// SetTimeout changes the expiry. Never disables it.
func (b *binding) SetTimeout(d time.Duration) { b.timeout = d }

// Handle is implemented by every Variable. It lets a Registry hold variables of
// different types.
type Handle interface {
	bound() *binding
}

// Variable is a typed mirror of a value replicated over the bus.
type Variable[T Word] struct {
	binding
}

// NewVariable returns a variable which is invalid until its first update.
func NewVariable[T Word]() *Variable[T] {
	return &Variable[T]{
		binding: binding{
			from:    packet.FromAny,
			timeout: Never,
			clock:   clock.New(),
			fits:    fits[T],
		},
	}
}

// NewVariableWith returns a variable holding an initial value. The initial
// value counts as an update made when the variable is registered.
func NewVariableWith[T Word](initial T) *Variable[T] {
	v := NewVariable[T]()
	v.value = toWord(initial)
	v.updatedAt = v.clock.Now()
	return v
}

// Value returns the current value, valid or not.
func (v *Variable[T]) Value() T {
	return fromWord[T](v.value)
}

// SetValue overwrites the value locally. It does not refresh the variable's
// age.
func (v *Variable[T]) SetValue(x T) T {
	v.value = toWord(x)
	return v.Value()
}

// AppendIfValid appends the value to p, as an entry of type entryType, when
// the variable is valid.
func (v *Variable[T]) AppendIfValid(p *packet.Packet, entryType byte) bool {
	if !v.IsValid() {
		return false
	}
	return p.Append(Entry(entryType, v.Value()))
}

// Entry builds a packet entry holding x. Signed and floating point values
// always use a four byte payload.
func Entry[T Word](entryType byte, x T) packet.Entry {
	w := toWord(x)
	switch any(x).(type) {
	case int8, int16, int32, float32:
		return packet.Entry{Type: entryType, Payload: packet.FullPayload(w)}
	default:
		return packet.Uint32Entry(entryType, w)
	}
}

func toWord[T Word](x T) uint32 {
	switch v := any(x).(type) {
	case int8:
		return uint32(int32(v))
	case int16:
		return uint32(int32(v))
	case int32:
		return uint32(v)
	case uint8:
		return uint32(v)
	case uint16:
		return uint32(v)
	case uint32:
		return v
	case float32:
		return math.Float32bits(v)
	case bool:
		if v {
			return 1
		}
		return 0
	}
	panic("shared: unsupported type")
}

func fromWord[T Word](w uint32) T {
	var zero T
	var r any
	switch any(zero).(type) {
	case int8:
		r = int8(w)
	case int16:
		r = int16(w)
	case int32:
		r = int32(w)
	case uint8:
		r = uint8(w)
	case uint16:
		r = uint16(w)
	case uint32:
		r = w
	case float32:
		r = math.Float32frombits(w)
	case bool:
		r = w != 0
	}
	return r.(T)
}

// fits accepts w when it converts to T and back unchanged. Signed types also
// accept a word no wider than the type, as sent in a short payload.
func fits[T Word](w uint32) bool {
	if toWord(fromWord[T](w)) == w {
		return true
	}
	var zero T
	switch any(zero).(type) {
	case int8:
		return w <= math.MaxUint8
	case int16:
		return w <= math.MaxUint16
	}
	return false
}
