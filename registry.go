package docqa

import (
	"errors"
	"slices"
	"sync"

	"github.com/flarexio/docqa/vector"
)

// Registry holds the indexes of registered documents by name. The number of
// entries plus outstanding reservations never exceeds its capacity, and an
// index becomes visible only once it is fully built.
type Registry struct {
	capacity int

	mu       sync.RWMutex
	entries  map[string]vector.Index
	order    []string
	reserved int
}

func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Registry{
		capacity: capacity,
		entries:  make(map[string]vector.Index),
		order:    make([]string, 0, capacity),
	}
}

// TryRegister inserts idx under name, or replaces the index already
// registered under that name. The capacity check and the insert happen
// under one lock.
func (r *Registry) TryRegister(name string, idx vector.Index) error {
	old, err := r.register(name, idx, false)
	if err != nil {
		return err
	}

	if old != nil {
		old.Close()
	}

	return nil
}

func (r *Registry) register(name string, idx vector.Index, reserved bool) (vector.Index, error) {
	if name == "" {
		return nil, ErrNameRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.entries[name]

	switch {
	case exists:
		// replacement keeps the entry count; a held slot goes back
		if reserved {
			r.reserved--
		}

	case reserved:
		r.reserved--
		r.order = append(r.order, name)

	default:
		if len(r.entries)+r.reserved >= r.capacity {
			return nil, ErrCapacityExceeded
		}

		r.order = append(r.order, name)
	}

	r.entries[name] = idx

	return old, nil
}

// Reserve atomically holds n slots for a batch that is about to be
// processed.
func (r *Registry) Reserve(n int) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || len(r.entries)+r.reserved+n > r.capacity {
		return nil, ErrCapacityExceeded
	}

	r.reserved += n

	return &Reservation{
		registry:  r,
		remaining: n,
	}, nil
}

func (r *Registry) Lookup(name string) (vector.Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.entries[name]
	return idx, ok
}

// Remove unregisters name and closes its index.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()

	idx, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return ErrDocumentNotFound
	}

	delete(r.entries, name)
	if i := slices.Index(r.order, name); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}

	r.mu.Unlock()

	return idx.Close()
}

// Names returns registered names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

func (r *Registry) Capacity() int {
	return r.capacity
}

// Close drops and closes every registered index.
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]vector.Index)
	r.order = r.order[:0]
	r.mu.Unlock()

	var errs []error
	for _, idx := range entries {
		if err := idx.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Reservation is a set of registry slots held for one upload batch.
type Reservation struct {
	registry *Registry

	mu        sync.Mutex
	remaining int
}

// Commit registers idx into one of the held slots.
func (res *Reservation) Commit(name string, idx vector.Index) error {
	res.mu.Lock()
	defer res.mu.Unlock()

	if res.remaining == 0 {
		return ErrReservationSpent
	}

	old, err := res.registry.register(name, idx, true)
	if err != nil {
		return err
	}

	res.remaining--

	if old != nil {
		old.Close()
	}

	return nil
}

// Release gives back every slot that was not committed.
func (res *Reservation) Release() {
	res.mu.Lock()
	defer res.mu.Unlock()

	if res.remaining == 0 {
		return
	}

	res.registry.mu.Lock()
	res.registry.reserved -= res.remaining
	res.registry.mu.Unlock()

	res.remaining = 0
}

func (res *Reservation) Remaining() int {
	res.mu.Lock()
	defer res.mu.Unlock()

	return res.remaining
}
