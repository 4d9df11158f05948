package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/liveroute/pkg/pattern"
	"github.com/vango-dev/liveroute/pkg/reactive"
	"github.com/vango-dev/liveroute/pkg/scope"
	"github.com/vango-dev/liveroute/pkg/stream"
)

const waitTimeout = 2 * time.Second

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// testLocation is a Location backed by a signal.
type testLocation struct {
	path *reactive.Signal[string]

	mu        sync.Mutex
	redirects []string
}

func newTestLocation(path string) *testLocation {
	return &testLocation{path: reactive.NewSignal(path)}
}

func (l *testLocation) Path() *reactive.Signal[string] { return l.path }

func (l *testLocation) Redirect(path string) error {
	l.mu.Lock()
	l.redirects = append(l.redirects, path)
	l.mu.Unlock()
	l.path.Set(path)
	return nil
}

func (l *testLocation) navigate(path string) { l.path.Set(path) }

func (l *testLocation) redirected() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.redirects...)
}

// contentRecorder collects emitted content.
type contentRecorder struct {
	mu     sync.Mutex
	values []Content
	notify chan struct{}
}

func newContentRecorder() *contentRecorder {
	return &contentRecorder{notify: make(chan struct{}, 1)}
}

func (r *contentRecorder) emit(v Content) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *contentRecorder) snapshot() []Content {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Content(nil), r.values...)
}

func (r *contentRecorder) last() Content {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return nil
	}
	return r.values[len(r.values)-1]
}

// waitLast blocks until the most recent value equals want.
func (r *contentRecorder) waitLast(t *testing.T, want Content) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		if r.last() == want {
			return
		}
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %v, got %v", want, r.snapshot())
		}
	}
}

// running is a Run subscription under test.
type running struct {
	rec    *contentRecorder
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, r *Router, loc Location) *running {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	run := &running{rec: newContentRecorder(), cancel: cancel, done: make(chan error, 1)}
	go func() {
		run.done <- stream.Run(ctx, r.Run(loc), run.rec.emit)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-run.done:
		case <-time.After(waitTimeout):
			t.Error("router did not stop")
		}
	})
	return run
}

// stop cancels the subscription and returns its result.
func (run *running) stop(t *testing.T) error {
	t.Helper()
	run.cancel()
	select {
	case err := <-run.done:
		run.done <- err
		return err
	case <-time.After(waitTimeout):
		t.Fatal("router did not stop")
		return nil
	}
}

// wait returns the result of a subscription that ends on its own.
func (run *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-run.done:
		run.done <- err
		return err
	case <-time.After(waitTimeout):
		t.Fatal("router did not finish")
		return nil
	}
}

func mustNew(t *testing.T, m Matcher, opts ...Option) *Router {
	t.Helper()
	r, err := New(m, append([]Option{WithLogger(quietLogger)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

// text renders a fixed string for as long as the route is live.
func text(s string) Handler {
	return func(*RouteContext) stream.Stream[Content] {
		return stream.Hold[Content](s)
	}
}

// paramText renders name=value for a path parameter, following updates.
func paramText(name string) Handler {
	return func(rc *RouteContext) stream.Stream[Content] {
		return stream.Map(rc.ParamsStream(), func(v any) Content {
			return fmt.Sprintf("%s=%s", name, v.(pattern.Values)[name])
		})
	}
}

// allowAll accepts every value unchanged.
func allowAll(context.Context, GuardInput) (any, bool, error) {
	return nil, true, nil
}

// frame is a layout that brackets its content and counts mounts.
func frame(name string, mounts *atomic.Int32) LayoutFunc {
	return func(lc *LayoutContext) stream.Stream[Content] {
		mounts.Add(1)
		return stream.Map(lc.Inner(), func(c Content) Content {
			return fmt.Sprintf("%s[%v]", name, c)
		})
	}
}

// lifecycle counts layer builds and releases by name.
type lifecycle struct {
	mu       sync.Mutex
	events   []string
	builds   map[string]int
	releases map[string]int
}

func newLifecycle() *lifecycle {
	return &lifecycle{builds: map[string]int{}, releases: map[string]int{}}
}

func (lc *lifecycle) layer(name string) *Layer {
	return NewLayer(name, func(_ context.Context, sc *scope.Scope, _ Services) (Services, error) {
		lc.record("build:"+name, lc.builds, name)
		sc.OnCleanup(func() { lc.record("release:"+name, lc.releases, name) })
		return Services{}, nil
	})
}

func (lc *lifecycle) record(event string, counts map[string]int, name string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.events = append(lc.events, event)
	counts[name]++
}

func (lc *lifecycle) counts(name string) (builds, releases int) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.builds[name], lc.releases[name]
}

func (lc *lifecycle) log() []string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return append([]string(nil), lc.events...)
}

// recordingObserver records lifecycle events.
type recordingObserver struct {
	NopObserver

	mu          sync.Mutex
	transitions []TransitionEvent
	mounted     []string
	unmounted   []string
	caught      []error
}

func (o *recordingObserver) TransitionFinished(ev TransitionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, ev)
}

func (o *recordingObserver) Mounted(kind MountKind, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mounted = append(o.mounted, string(kind)+":"+name)
}

func (o *recordingObserver) Unmounted(kind MountKind, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unmounted = append(o.unmounted, string(kind)+":"+name)
}

func (o *recordingObserver) Caught(boundary string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.caught = append(o.caught, err)
}

func (o *recordingObserver) outcomes() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Outcome, len(o.transitions))
	for i, ev := range o.transitions {
		out[i] = ev.Outcome
	}
	return out
}

func (o *recordingObserver) unmounts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.unmounted...)
}

// eventually polls cond until it holds.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
