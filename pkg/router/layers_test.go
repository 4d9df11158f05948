package router

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/liveroute/pkg/scope"
)

func newTestLayerManager() (*layerManager, *scope.Scope) {
	root := scope.New(context.Background())
	return newLayerManager(root, noop.NewTracerProvider().Tracer("test"), NopObserver{}), root
}

func TestLayerSetDiffing(t *testing.T) {
	lc := newLifecycle()
	a, b, c, d := lc.layer("A"), lc.layer("B"), lc.layer("C"), lc.layer("D")
	m, _ := newTestLayerManager()
	ctx := context.Background()

	first, err := m.prepare(ctx, []*Layer{a, b, c})
	if err != nil {
		t.Fatalf("prepare() error = %v", err)
	}
	if err := first.commit(); err != nil {
		t.Fatalf("commit() error = %v", err)
	}

	second, err := m.prepare(ctx, []*Layer{b, c, d})
	if err != nil {
		t.Fatalf("prepare() error = %v", err)
	}
	if err := second.commit(); err != nil {
		t.Fatalf("commit() error = %v", err)
	}

	want := []string{
		"build:A", "build:B", "build:C",
		"build:D", "release:A",
	}
	if diff := cmp.Diff(want, lc.log()); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B", "C", "D"}, m.activeNames()); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
}

func TestLayerIdempotence(t *testing.T) {
	lc := newLifecycle()
	a := lc.layer("A")
	m, _ := newTestLayerManager()

	for i := 0; i < 3; i++ {
		attempt, err := m.prepare(context.Background(), []*Layer{a})
		if err != nil {
			t.Fatalf("prepare() error = %v", err)
		}
		if err := attempt.commit(); err != nil {
			t.Fatalf("commit() error = %v", err)
		}
	}

	if builds, releases := lc.counts("A"); builds != 1 || releases != 0 {
		t.Errorf("builds = %d, releases = %d, want 1 and 0", builds, releases)
	}
}

func TestLayerOrderedDependencies(t *testing.T) {
	configKey := NewKey[string]("config")
	clientKey := NewKey[string]("client")

	config := ValueLayer(configKey, "dsn://primary")
	client := NewLayer("client", func(_ context.Context, _ *scope.Scope, deps Services) (Services, error) {
		dsn, ok := Lookup(deps, configKey)
		if !ok {
			return Services{}, errors.New("config not provided")
		}
		return Provide(Services{}, clientKey, "client for "+dsn), nil
	})

	m, _ := newTestLayerManager()
	attempt, err := m.prepare(context.Background(), []*Layer{config, client})
	if err != nil {
		t.Fatalf("prepare() error = %v", err)
	}
	defer attempt.rollback()

	if got := MustLookup(attempt.services, clientKey); got != "client for dsn://primary" {
		t.Errorf("client = %q", got)
	}
	if got := MustLookup(attempt.services, configKey); got != "dsn://primary" {
		t.Errorf("config = %q", got)
	}
}

func TestLayerBuildFailureRollsBack(t *testing.T) {
	lc := newLifecycle()
	boom := errors.New("boom")
	a, b := lc.layer("A"), lc.layer("B")
	broken := NewLayer("broken", func(_ context.Context, sc *scope.Scope, _ Services) (Services, error) {
		sc.OnCleanup(func() { lc.record("release:broken", lc.releases, "broken") })
		return Services{}, boom
	})

	m, _ := newTestLayerManager()
	_, err := m.prepare(context.Background(), []*Layer{a, b, broken})
	if !errors.Is(err, boom) {
		t.Fatalf("prepare() error = %v, want %v", err, boom)
	}

	want := []string{"build:A", "build:B", "release:broken", "release:B", "release:A"}
	if diff := cmp.Diff(want, lc.log()); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
	if got := m.activeNames(); len(got) != 0 {
		t.Errorf("active = %v, want none", got)
	}
}

func TestLayerRollbackKeepsActive(t *testing.T) {
	lc := newLifecycle()
	a, b := lc.layer("A"), lc.layer("B")
	m, _ := newTestLayerManager()

	first, _ := m.prepare(context.Background(), []*Layer{a})
	first.commit()

	attempt, err := m.prepare(context.Background(), []*Layer{a, b})
	if err != nil {
		t.Fatalf("prepare() error = %v", err)
	}
	if err := attempt.rollback(); err != nil {
		t.Fatalf("rollback() error = %v", err)
	}
	if err := attempt.commit(); err != nil {
		t.Fatalf("commit() after rollback error = %v", err)
	}

	if diff := cmp.Diff([]string{"A"}, m.activeNames()); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
	if builds, releases := lc.counts("B"); builds != 1 || releases != 1 {
		t.Errorf("B builds = %d, releases = %d, want 1 and 1", builds, releases)
	}
	if _, releases := lc.counts("A"); releases != 0 {
		t.Errorf("A released %d times, want 0", releases)
	}
}

func TestLayerPanicBecomesError(t *testing.T) {
	panicky := NewLayer("panicky", func(context.Context, *scope.Scope, Services) (Services, error) {
		panic("kaboom")
	})
	m, _ := newTestLayerManager()
	if _, err := m.prepare(context.Background(), []*Layer{panicky}); err == nil {
		t.Fatal("prepare() should fail when a build panics")
	}
}

func TestLayerTeardownErrors(t *testing.T) {
	cleanupErr := errors.New("flush failed")
	leaky := NewLayer("leaky", func(_ context.Context, sc *scope.Scope, _ Services) (Services, error) {
		sc.Defer(func() error { return cleanupErr })
		return Services{}, nil
	})
	other := NewLayer("other", nil)

	m, _ := newTestLayerManager()
	first, _ := m.prepare(context.Background(), []*Layer{leaky})
	first.commit()

	second, _ := m.prepare(context.Background(), []*Layer{other})
	if err := second.commit(); !errors.Is(err, cleanupErr) {
		t.Errorf("commit() error = %v, want %v", err, cleanupErr)
	}
}

func TestLayerManagerClose(t *testing.T) {
	lc := newLifecycle()
	a, b := lc.layer("A"), lc.layer("B")
	m, _ := newTestLayerManager()

	attempt, _ := m.prepare(context.Background(), []*Layer{a, b})
	attempt.commit()

	if err := m.close(); err != nil {
		t.Fatalf("close() error = %v", err)
	}
	want := []string{"build:A", "build:B", "release:B", "release:A"}
	if diff := cmp.Diff(want, lc.log()); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

func TestLayerPrepareCancelled(t *testing.T) {
	lc := newLifecycle()
	ctx, cancel := context.WithCancel(context.Background())
	a := lc.layer("A")
	stopper := NewLayer("stopper", func(context.Context, *scope.Scope, Services) (Services, error) {
		cancel()
		return Services{}, nil
	})
	b := lc.layer("B")

	m, _ := newTestLayerManager()
	_, err := m.prepare(ctx, []*Layer{a, stopper, b})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("prepare() error = %v, want context.Canceled", err)
	}
	if builds, _ := lc.counts("B"); builds != 0 {
		t.Error("B should not be built after cancellation")
	}
	if _, releases := lc.counts("A"); releases != 1 {
		t.Error("A should be released after cancellation")
	}
}
