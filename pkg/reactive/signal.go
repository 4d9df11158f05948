// Package reactive provides observable value holders.
//
// A Signal holds a single value and notifies its subscribers when the value
// changes. The router uses signals as the parameter and content holders of
// live matches, layouts and catch boundaries, so that an already mounted
// wrapper can observe new parameters or new inner content without being
// re-created.
package reactive

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// signalIDCounter is the source of unique signal and subscription IDs.
var signalIDCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&signalIDCounter, 1)
}

// subscriber is a registered change callback.
type subscriber struct {
	id uint64
	fn func()
}

// Signal is a concurrency-safe observable value.
type Signal[T any] struct {
	id uint64

	// value is the current signal value.
	value   T
	version uint64
	mu      sync.RWMutex

	// subs are the callbacks notified after a change.
	subs  []subscriber
	subMu sync.RWMutex

	// equal decides whether a Set is a change. If nil, defaultEquals is used.
	equal func(T, T) bool
}

// NewSignal creates a new signal with the given initial value.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		id:    nextID(),
		value: initial,
	}
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.id
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Version returns a counter incremented on every change.
func (s *Signal[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the current value and its version atomically.
func (s *Signal[T]) Snapshot() (T, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.version
}

// Set updates the value and notifies subscribers if it changed.
// It reports whether a change happened.
func (s *Signal[T]) Set(value T) bool {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
		s.version++
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return changed
}

// Update atomically reads and replaces the value.
func (s *Signal[T]) Update(fn func(T) T) bool {
	s.mu.Lock()
	next := fn(s.value)
	changed := !s.equals(s.value, next)
	if changed {
		s.value = next
		s.version++
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return changed
}

// WithEquals configures a custom equality function and returns the signal.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// AlwaysNotify makes every Set a change, regardless of the value.
// Content holders use it because streams have no meaningful equality.
func (s *Signal[T]) AlwaysNotify() *Signal[T] {
	return s.WithEquals(func(T, T) bool { return false })
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription. Callbacks run on the goroutine that
// performed the change and must not block.
func (s *Signal[T]) Subscribe(fn func()) (unsubscribe func()) {
	sub := subscriber{id: nextID(), fn: fn}

	s.subMu.Lock()
	s.subs = append(s.subs, sub)
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(sub.id) })
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Signal[T]) Subscribers() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subs)
}

func (s *Signal[T]) unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for i, existing := range s.subs {
		if existing.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// notify calls every subscriber. Subscribers are copied first so no lock is
// held while callbacks run.
func (s *Signal[T]) notify() {
	s.subMu.RLock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	for _, sub := range subs {
		sub.fn()
	}
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals uses == for common comparable kinds and reflect.DeepEqual
// for everything else. Values of different dynamic types are never equal.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case int64:
		bv, ok := any(b).(int64)
		return ok && av == bv
	case uint64:
		bv, ok := any(b).(uint64)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}
