package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// scopeIDCounter is the source of unique scope IDs.
var scopeIDCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&scopeIDCounter, 1)
}

// Finalizer releases a resource owned by a scope.
// A non-nil error is collected and returned from Close.
type Finalizer func() error

// Scope is a lifetime boundary that releases everything it owns, in reverse
// acquisition order, when it is closed.
type Scope struct {
	id uint64

	// parent is nil for root scopes.
	parent *Scope

	ctx    context.Context
	cancel context.CancelFunc

	// finalizers holds cleanups and child closures in acquisition order.
	// Child entries are removed when a child is closed on its own.
	mu         sync.Mutex
	finalizers []finalizerEntry

	closed atomic.Bool
}

type finalizerEntry struct {
	fn    Finalizer
	child *Scope
}

// New creates a root scope whose context derives from ctx.
func New(ctx context.Context) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}
	sctx, cancel := context.WithCancel(ctx)
	return &Scope{
		id:     nextID(),
		ctx:    sctx,
		cancel: cancel,
	}
}

// Fork creates a child scope. The child is closed when the parent closes,
// unless it has been closed earlier. Forking a closed scope returns a
// child that is already closed.
func (s *Scope) Fork() *Scope {
	cctx, cancel := context.WithCancel(s.ctx)
	child := &Scope{
		id:     nextID(),
		parent: s,
		ctx:    cctx,
		cancel: cancel,
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		child.closed.Store(true)
		cancel()
		return child
	}
	s.finalizers = append(s.finalizers, finalizerEntry{child: child})
	s.mu.Unlock()

	return child
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Context returns the scope's context. It is cancelled when the scope closes.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// IsClosed reports whether Close has been called.
func (s *Scope) IsClosed() bool {
	return s.closed.Load()
}

// Defer registers a fallible finalizer. If the scope is already closed the
// finalizer runs immediately and its error is returned.
func (s *Scope) Defer(fn Finalizer) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return runFinalizer(fn)
	}
	s.finalizers = append(s.finalizers, finalizerEntry{fn: fn})
	s.mu.Unlock()
	return nil
}

// OnCleanup registers an infallible cleanup function.
func (s *Scope) OnCleanup(fn func()) {
	_ = s.Defer(func() error {
		fn()
		return nil
	})
}

// Close cancels the scope's context and then runs every finalizer, newest
// first, including the closure of child scopes. It returns the joined errors
// of all finalizers that failed. Only the first call does any work.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed.Swap(true) {
		s.mu.Unlock()
		return nil
	}
	finalizers := s.finalizers
	s.finalizers = nil
	s.mu.Unlock()

	s.cancel()

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	var errs []error
	for i := len(finalizers) - 1; i >= 0; i-- {
		entry := finalizers[i]
		var err error
		if entry.child != nil {
			err = entry.child.Close()
		} else {
			err = runFinalizer(entry.fn)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// removeChild drops a child that closed independently so the parent does
// not hold on to it.
func (s *Scope) removeChild(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.finalizers {
		if entry.child == child {
			s.finalizers = append(s.finalizers[:i], s.finalizers[i+1:]...)
			return
		}
	}
}

// Len returns the number of pending finalizers, child scopes included.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.finalizers)
}

// runFinalizer invokes fn, converting a panic into an error.
func runFinalizer(fn Finalizer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scope: finalizer panicked: %v", r)
		}
	}()
	return fn()
}
