package scope

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestScopeBasic(t *testing.T) {
	s := New(context.Background())

	if s.ID() == 0 {
		t.Error("scope should have non-zero ID")
	}
	if s.Parent() != nil {
		t.Error("root scope should have nil parent")
	}
	if s.IsClosed() {
		t.Error("new scope should not be closed")
	}
	if err := s.Context().Err(); err != nil {
		t.Errorf("context err = %v, want nil", err)
	}
}

func TestScopeCloseCancelsContext(t *testing.T) {
	s := New(context.Background())
	child := s.Fork()

	if err := s.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	if s.Context().Err() == nil {
		t.Error("root context should be cancelled")
	}
	if child.Context().Err() == nil {
		t.Error("child context should be cancelled")
	}
	if !child.IsClosed() {
		t.Error("child should be closed with its parent")
	}
}

func TestScopeCancelBeforeFinalizers(t *testing.T) {
	s := New(context.Background())

	var sawCancelled bool
	s.OnCleanup(func() {
		sawCancelled = s.Context().Err() != nil
	})
	s.Close()

	if !sawCancelled {
		t.Error("context should be cancelled before finalizers run")
	}
}

func TestScopeReverseAcquisitionOrder(t *testing.T) {
	root := New(context.Background())

	var order []string
	record := func(name string) func() {
		return func() { order = append(order, name) }
	}

	root.OnCleanup(record("first"))
	a := root.Fork()
	a.OnCleanup(record("a"))
	root.OnCleanup(record("second"))
	b := root.Fork()
	b.OnCleanup(record("b1"))
	b.OnCleanup(record("b2"))

	root.Close()

	want := []string{"b2", "b1", "second", "a", "first"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestScopeCloseIdempotent(t *testing.T) {
	s := New(context.Background())

	count := 0
	s.OnCleanup(func() { count++ })

	s.Close()
	s.Close()

	if count != 1 {
		t.Errorf("cleanup ran %d times, want 1", count)
	}
}

func TestScopeChildClosedIndependently(t *testing.T) {
	root := New(context.Background())
	child := root.Fork()

	count := 0
	child.OnCleanup(func() { count++ })

	child.Close()
	if root.Len() != 0 {
		t.Errorf("root.Len() = %d after child close, want 0", root.Len())
	}
	if root.IsClosed() {
		t.Error("closing a child must not close the parent")
	}

	root.Close()
	if count != 1 {
		t.Errorf("child cleanup ran %d times, want 1", count)
	}
}

func TestScopeDeferErrorsJoined(t *testing.T) {
	s := New(context.Background())
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	s.Defer(func() error { return errA })
	child := s.Fork()
	child.Defer(func() error { return errB })

	err := s.Close()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Close() = %v, want both errors joined", err)
	}
}

func TestScopeFinalizerPanic(t *testing.T) {
	s := New(context.Background())

	ran := false
	s.OnCleanup(func() { ran = true })
	s.OnCleanup(func() { panic("boom") })

	err := s.Close()
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Close() = %v, want panic converted to error", err)
	}
	if !ran {
		t.Error("finalizers after a panicking one should still run")
	}
}

func TestScopeForkAfterClose(t *testing.T) {
	s := New(context.Background())
	s.Close()

	child := s.Fork()
	if !child.IsClosed() {
		t.Error("fork of closed scope should be closed")
	}
	if child.Context().Err() == nil {
		t.Error("fork of closed scope should have a cancelled context")
	}
}

func TestScopeDeferAfterClose(t *testing.T) {
	s := New(context.Background())
	s.Close()

	ran := false
	err := s.Defer(func() error {
		ran = true
		return errors.New("late")
	})
	if !ran {
		t.Error("finalizer registered after close should run immediately")
	}
	if err == nil {
		t.Error("error from immediate finalizer should be returned")
	}
}

func TestScopeParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx)
	child := s.Fork()

	cancel()

	if child.Context().Err() == nil {
		t.Error("child context should follow the parent context")
	}
	if child.IsClosed() {
		t.Error("context cancellation alone does not run finalizers")
	}
}
