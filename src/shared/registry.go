package shared

import (
	"errors"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mosaicnetworks/uartbus/src/bloom"
	"github.com/mosaicnetworks/uartbus/src/packet"
	"github.com/sirupsen/logrus"
)

// DefaultCapacity is the number of variables a Registry holds unless told
// otherwise.
const DefaultCapacity = 64

var (
	// ErrAlreadyRegistered is returned when a variable is added twice.
	ErrAlreadyRegistered = errors.New("shared: variable already registered")
	// ErrRegistryFull is returned when the registry has no free slot left.
	ErrRegistryFull = errors.New("shared: registry full")
)

// Option configures a variable at registration.
type Option func(*binding)

// From restricts updates to packets whose From routing tag is source.
func From(source uint8) Option {
	return func(b *binding) { b.from = source }
}

// Timeout sets the duration after which an update goes stale.
func Timeout(d time.Duration) Option {
	return func(b *binding) { b.timeout = d }
}

// Named labels the variable in snapshots.
func Named(name string) Option {
	return func(b *binding) { b.name = name }
}

type groupKey struct {
	kindID    byte
	entryType byte
}

// Registry routes packet entries to the variables registered for them. It is
// not safe for concurrent use.
type Registry struct {
	clock  clock.Clock
	logger *logrus.Entry

	// arena of registered variables, in registration order
	vars []*binding
	// indices into vars, grouped by (packet id, entry type)
	groups map[groupKey][]int
	// packet ids with at least one variable
	ids *bloom.Filter
}

// NewRegistry returns a registry holding up to capacity variables.
func NewRegistry(c clock.Clock, capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	discard := logrus.New()
	discard.Out = ioutil.Discard

	return &Registry{
		clock:  c,
		logger: logrus.NewEntry(discard),
		vars:   make([]*binding, 0, capacity),
		groups: make(map[groupKey][]int),
		ids:    bloom.New(2),
	}
}

// SetLogger sets the logger rejected updates are reported to.
func (r *Registry) SetLogger(logger *logrus.Entry) {
	r.logger = logger
}

// Add registers v for entries of type entryType in packets with id kindID.
// Without options the variable accepts updates from any source and never
// expires.
func (r *Registry) Add(v Handle, kindID, entryType byte, opts ...Option) error {
	b := v.bound()
	if b.registered {
		return ErrAlreadyRegistered
	}
	if len(r.vars) == cap(r.vars) {
		return ErrRegistryFull
	}

	b.kindID = kindID
	b.entryType = entryType
	b.from = packet.FromAny
	b.timeout = Never
	for _, opt := range opts {
		opt(b)
	}

	b.clock = r.clock
	if !b.updatedAt.IsZero() {
		b.updatedAt = r.clock.Now()
	}
	b.registered = true

	key := groupKey{kindID, entryType}
	r.groups[key] = append(r.groups[key], len(r.vars))
	r.vars = append(r.vars, b)
	r.ids.Set(uint32(kindID))

	return nil
}

// MustAdd is like Add but panics on error. Registration happens at start-up,
// where an error is a programming mistake.
func (r *Registry) MustAdd(v Handle, kindID, entryType byte, opts ...Option) {
	if err := r.Add(v, kindID, entryType, opts...); err != nil {
		panic(fmt.Sprintf("%v (packet %q entry %q)", err, kindID, entryType))
	}
}

// Update copies the entries of p into the matching variables and returns the
// number of variables updated. An entry whose payload does not convert to a
// variable's type leaves that variable untouched.
func (r *Registry) Update(p *packet.Packet) int {
	if !r.ids.IsSet(uint32(p.ID)) {
		return 0
	}

	now := r.clock.Now()
	updated := 0

	for _, e := range p.Entries {
		for _, i := range r.groups[groupKey{p.ID, e.Type}] {
			b := r.vars[i]
			if b.from != packet.FromAny && b.from != p.From {
				continue
			}
			w := e.Payload.Word()
			if b.fits != nil && !b.fits(w) {
				r.logger.WithFields(logrus.Fields{
					"packet_id":  string(p.ID),
					"entry_type": string(e.Type),
					"word":       w,
				}).Debug("Entry does not fit variable")
				continue
			}
			b.assign(w, now)
			updated++
		}
	}

	return updated
}

// Len is the number of registered variables.
func (r *Registry) Len() int { return len(r.vars) }

// Info describes a registered variable.
type Info struct {
	Name      string        `json:"name"`
	PacketID  string        `json:"packet_id"`
	EntryType string        `json:"entry_type"`
	Source    uint8         `json:"source"`
	Raw       uint32        `json:"raw"`
	Valid     bool          `json:"valid"`
	Age       time.Duration `json:"age"`
	Timeout   time.Duration `json:"timeout"`
}

// Snapshot describes every registered variable, in registration order.
func (r *Registry) Snapshot() []Info {
	res := make([]Info, 0, len(r.vars))
	for _, b := range r.vars {
		res = append(res, Info{
			Name:      b.name,
			PacketID:  string(b.kindID),
			EntryType: string(b.entryType),
			Source:    b.from,
			Raw:       b.value,
			Valid:     b.IsValid(),
			Age:       b.Age(),
			Timeout:   b.timeout,
		})
	}
	return res
}
