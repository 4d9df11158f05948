package router

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/liveroute/pkg/scope"
	"github.com/vango-dev/liveroute/pkg/stream"
)

func TestWrapManagerKeepsSharedInstances(t *testing.T) {
	root := scope.New(context.Background())
	defer root.Close()
	obs := &recordingObserver{}
	m := newWrapManager(MountLayout, root, obs)

	var mounts atomic.Int32
	shell := layoutWrapDef(1, NewLayout("shell", frame("shell", &mounts)))
	users := layoutWrapDef(2, NewLayout("users", frame("users", &mounts)))
	admin := layoutWrapDef(3, NewLayout("admin", frame("admin", &mounts)))

	inner := stream.Hold[Content]("a")
	if _, _, err := m.apply([]wrapDef{shell, users}, inner, inner, nil, true); err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if diff := cmp.Diff([]string{"shell", "users"}, m.mounted()); diff != "" {
		t.Errorf("mounted mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := m.apply([]wrapDef{shell, admin}, inner, inner, nil, true); err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if diff := cmp.Diff([]string{"shell", "admin"}, m.mounted()); diff != "" {
		t.Errorf("mounted mismatch (-want +got):\n%s", diff)
	}
	if n := mounts.Load(); n != 3 {
		t.Errorf("layouts mounted %d times, want 3", n)
	}

	if err := m.close(); err != nil {
		t.Fatalf("close() error = %v", err)
	}
	if got := m.mounted(); len(got) != 0 {
		t.Errorf("mounted after close = %v, want none", got)
	}
	want := []string{"layout:users", "layout:admin", "layout:shell"}
	if diff := cmp.Diff(want, obs.unmounts()); diff != "" {
		t.Errorf("unmounts mismatch (-want +got):\n%s", diff)
	}
}
