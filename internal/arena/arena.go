// Package arena stores values behind generation-checked handles.
//
// A Key stays valid until its value is removed. Removing bumps the slot
// generation, so a stale Key never resolves to a value inserted later in the
// same slot.
package arena

import (
	"fmt"

	"fortio.org/safecast"
)

// Key is an opaque handle to a value in an Arena. The zero Key is never valid.
type Key struct {
	index uint32
	gen   uint32
}

// IsZero reports whether k is the zero (null) key.
func (k Key) IsZero() bool { return k.gen == 0 }

func (k Key) String() string {
	if k.IsZero() {
		return "key(nil)"
	}
	return fmt.Sprintf("key(%d/%d)", k.index, k.gen)
}

type slot[T any] struct {
	gen      uint32
	occupied bool
	value    *T
}

// Arena owns values of type T addressed by Key.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// New returns an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert stores v and returns its key.
func (a *Arena[T]) Insert(v *T) Key {
	a.count++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.occupied = true
		s.value = v
		return Key{index: idx, gen: s.gen}
	}
	idx, err := safecast.Conv[uint32](len(a.slots))
	if err != nil {
		panic(fmt.Sprintf("arena: slot index overflow: %v", err))
	}
	a.slots = append(a.slots, slot[T]{gen: 1, occupied: true, value: v})
	return Key{index: idx, gen: 1}
}

// Get resolves k, returning false for stale or zero keys.
func (a *Arena[T]) Get(k Key) (*T, bool) {
	if k.IsZero() || int(k.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[k.index]
	if !s.occupied || s.gen != k.gen {
		return nil, false
	}
	return s.value, true
}

// MustGet resolves k and panics on a stale key.
func (a *Arena[T]) MustGet(k Key) *T {
	v, ok := a.Get(k)
	if !ok {
		panic(fmt.Sprintf("arena: stale or unknown %s", k))
	}
	return v
}

// Replace swaps the value behind k, keeping the key valid.
func (a *Arena[T]) Replace(k Key, v *T) (*T, bool) {
	old, ok := a.Get(k)
	if !ok {
		return nil, false
	}
	a.slots[k.index].value = v
	return old, true
}

// Remove deletes the value behind k and invalidates k.
func (a *Arena[T]) Remove(k Key) (*T, bool) {
	old, ok := a.Get(k)
	if !ok {
		return nil, false
	}
	s := &a.slots[k.index]
	s.occupied = false
	s.value = nil
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, k.index)
	a.count--
	return old, true
}

// Len returns the number of stored values.
func (a *Arena[T]) Len() int { return a.count }

// Each calls fn for every stored value in slot order until fn returns false.
func (a *Arena[T]) Each(fn func(Key, *T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.occupied {
			continue
		}
		if !fn(Key{index: uint32(i), gen: s.gen}, s.value) { //nolint:gosec // Insert keeps len(a.slots) within uint32
			return
		}
	}
}

// Keys returns all live keys in slot order.
func (a *Arena[T]) Keys() []Key {
	keys := make([]Key, 0, a.count)
	a.Each(func(k Key, _ *T) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}
