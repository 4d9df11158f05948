package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/liveroute/pkg/reactive"
	"github.com/vango-dev/liveroute/pkg/scope"
	"github.com/vango-dev/liveroute/pkg/stream"
)

// Location is the source of the current path. navigation.Navigation
// implements it.
type Location interface {
	// Path holds the current location, including any query string.
	Path() *reactive.Signal[string]

	// Redirect replaces the current location.
	Redirect(path string) error
}

// Router is a compiled route tree ready to run. A Router is immutable and
// may be run any number of times, concurrently.
type Router struct {
	table *Table
	tree  *routeTree
	opts  options

	// layouts and catches hold the wrapper chain of every entry, by index.
	layouts [][]wrapDef
	catches [][]wrapDef

	rootLayouts []wrapDef
	rootCatches []wrapDef
}

// New compiles m into a Router.
func New(m Matcher, opts ...Option) (*Router, error) {
	table, err := Compile(m)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Router{
		table:   table,
		tree:    newRouteTree(table.entries),
		opts:    o,
		layouts: make([][]wrapDef, len(table.entries)),
		catches: make([][]wrapDef, len(table.entries)),
	}
	for _, e := range table.entries {
		r.layouts[e.Index] = r.layoutDefs(e.Layouts)
		r.catches[e.Index] = r.catchDefs(e.Catches)
	}
	r.rootLayouts = r.layoutDefs(table.rootLayouts)
	r.rootCatches = r.catchDefs(table.rootCatches)
	return r, nil
}

func (r *Router) layoutDefs(defs []*LayoutDef) []wrapDef {
	out := make([]wrapDef, len(defs))
	for i, def := range defs {
		out[i] = layoutWrapDef(r.table.layoutHandles[def], def)
	}
	return out
}

func (r *Router) catchDefs(defs []*CatchDef) []wrapDef {
	out := make([]wrapDef, len(defs))
	for i, def := range defs {
		out[i] = catchWrapDef(r.table.catchHandles[def], def, r.opts.observer)
	}
	return out
}

// Table returns the compiled route table.
func (r *Router) Table() *Table {
	return r.table
}

// Candidates returns the entries whose pattern matches location, in guard
// evaluation order, without decoding or running guards.
func (r *Router) Candidates(location string) ([]Candidate, error) {
	path, _, err := splitLocation(location)
	if err != nil && path == "" {
		return nil, &NotFoundError{Path: location}
	}
	candidates, ok := r.tree.lookup(path)
	if !ok {
		return nil, &NotFoundError{Path: path}
	}
	return candidates, nil
}

// Run compiles m and runs it against loc. Compilation errors fail the
// returned stream.
func Run(m Matcher, loc Location, opts ...Option) stream.Stream[Content] {
	r, err := New(m, opts...)
	if err != nil {
		return stream.Fail[Content](err)
	}
	return r.Run(loc)
}

// Run returns the content stream for loc. Each subscription follows the
// location independently until its context is cancelled, resolving every
// distinct path and emitting the content of the route that won. Only one
// transition is in flight at a time: a newer path cancels it and rolls
// back whatever it prepared.
func (r *Router) Run(loc Location) stream.Stream[Content] {
	return stream.Func[Content](func(ctx context.Context, emit func(Content)) error {
		return newLoop(ctx, r, loc, emit).run()
	})
}

// liveMatch is the route currently mounted.
type liveMatch struct {
	entry   *Entry
	params  *reactive.Signal[any]
	scope   *scope.Scope
	content stream.Stream[Content]
}

// transition is one resolution running on its own goroutine.
type transition struct {
	id     uint64
	path   string
	start  time.Time
	span   trace.Span
	cancel context.CancelFunc
	done   chan struct{}

	// Written by the transition goroutine before done is closed.
	res      *resolution
	err      error
	teardown error
	within   []*Entry
}

// contentRunner subscribes to the composed content of the live state.
type contentRunner struct {
	key      any
	cancel   context.CancelFunc
	done     chan struct{}
	finished bool
	err      error
}

// failureKey identifies the content shown for one resolution failure.
type failureKey struct {
	err error
}

// loop is the state of one Run subscription. Everything except the
// transition goroutines and content runners is owned by the goroutine
// executing run.
type loop struct {
	r      *Router
	loc    Location
	ctx    context.Context
	runID  string
	logger *slog.Logger

	root    *scope.Scope
	layers  *layerManager
	layouts *wrapManager
	catches *wrapManager

	live     *liveMatch
	lastPath string
	seq      uint64
	inflight *transition
	runner   *contentRunner

	// redirects counts consecutive redirects; redirectTo is the target of
	// the one being followed.
	redirects  int
	redirectTo string

	emitMu sync.Mutex
	emit   func(Content)
}

func newLoop(ctx context.Context, r *Router, loc Location, emit func(Content)) *loop {
	runID := uuid.NewString()
	root := scope.New(ctx)
	return &loop{
		r:       r,
		loc:     loc,
		ctx:     ctx,
		runID:   runID,
		logger:  r.opts.logger.With("run_id", runID),
		root:    root,
		layers:  newLayerManager(root, r.opts.tracer, r.opts.observer),
		layouts: newWrapManager(MountLayout, root, r.opts.observer),
		catches: newWrapManager(MountCatch, root, r.opts.observer),
		emit:    emit,
	}
}

func (l *loop) run() (err error) {
	defer func() {
		if terr := l.teardown("shutdown", l.shutdown()); err == nil {
			err = terr
		}
	}()

	notify := make(chan struct{}, 1)
	unsubscribe := l.loc.Path().Subscribe(func() {
		select {
		case notify <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	l.logger.Debug("router started", "routes", l.r.table.Len())
	l.start(l.loc.Path().Get())

	for {
		var transitionDone, runnerDone <-chan struct{}
		if l.inflight != nil {
			transitionDone = l.inflight.done
		}
		if l.runner != nil && !l.runner.finished {
			runnerDone = l.runner.done
		}

		select {
		case <-l.ctx.Done():
			return nil

		case <-notify:
			path := l.loc.Path().Get()
			if path == l.lastPath {
				continue
			}
			if path != l.redirectTo {
				l.redirects = 0
			}
			l.redirectTo = ""
			if err := l.teardown("rollback", l.cancelInflight()); err != nil {
				return err
			}
			l.start(path)

		case <-transitionDone:
			t := l.inflight
			l.inflight = nil
			if err := l.finish(t); err != nil {
				return err
			}

		case <-runnerDone:
			l.runner.finished = true
			if err := l.runner.err; err != nil {
				l.logger.Error("uncaught content failure", "error", err)
				return err
			}
		}
	}
}

// start begins resolving path on a new goroutine.
func (l *loop) start(path string) {
	l.lastPath = path
	l.seq++

	tctx, cancel := context.WithCancel(l.ctx)
	tctx, span := l.r.opts.tracer.Start(tctx, "liveroute.transition",
		trace.WithAttributes(
			attribute.String("liveroute.path", path),
			attribute.String("liveroute.run_id", l.runID),
			attribute.Int64("liveroute.transition", int64(l.seq)),
		),
	)
	t := &transition{
		id:     l.seq,
		path:   path,
		start:  time.Now(),
		span:   span,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	l.inflight = t

	l.r.opts.observer.TransitionStarted(l.runID, path)
	l.logger.Debug("transition started", "path", path, "transition", t.id)

	ev := &evaluator{tree: l.r.tree, layers: l.layers, tracer: l.r.opts.tracer}
	go func() {
		defer close(t.done)
		t.res, t.err = ev.resolve(tctx, path)
		t.teardown = errors.Join(ev.teardown...)
		t.within = ev.within
	}()
}

// cancelInflight interrupts the running transition, waits for it and rolls
// back anything it prepared. Its result is never committed.
func (l *loop) cancelInflight() error {
	t := l.inflight
	if t == nil {
		return nil
	}
	l.inflight = nil
	t.cancel()
	<-t.done

	err := t.teardown
	if t.res != nil {
		err = errors.Join(err, t.res.attempt.rollback())
	}
	l.logger.Debug("transition cancelled", "path", t.path, "transition", t.id)
	l.endTransition(t, OutcomeCancelled, "", nil)
	return err
}

// finish applies the result of a completed transition.
func (l *loop) finish(t *transition) error {
	defer t.cancel()

	if err := l.teardown("rollback", t.teardown); err != nil {
		if t.res != nil {
			_ = t.res.attempt.rollback()
		}
		l.endTransition(t, OutcomeFailed, "", err)
		return err
	}

	if t.err != nil {
		if l.ctx.Err() != nil {
			l.endTransition(t, OutcomeCancelled, "", nil)
			return nil
		}
		var redirect *RedirectError
		if errors.As(t.err, &redirect) {
			l.endTransition(t, OutcomeRedirected, "", nil)
			return l.redirect(t.path, redirect.Path)
		}
		l.endTransition(t, outcomeOf(t.err), "", t.err)
		return l.fail(t.err, t.within)
	}

	l.redirects = 0
	outcome, err := l.commit(t.res)
	l.endTransition(t, outcome, t.res.entry.Template(), err)
	return err
}

func (l *loop) redirect(from, to string) error {
	l.redirects++
	if l.redirects > l.r.opts.maxRedirects {
		return l.fail(fmt.Errorf("%w: %s -> %s", ErrTooManyRedirects, from, to), nil)
	}

	l.logger.Debug("redirecting", "from", from, "to", to)
	l.redirectTo = to
	if err := l.loc.Redirect(to); err != nil {
		return l.fail(err, nil)
	}
	if l.loc.Path().Get() == from {
		return l.fail(fmt.Errorf("%w: %s redirects to itself", ErrTooManyRedirects, from), nil)
	}
	return nil
}

// commit makes an accepted resolution live.
func (l *loop) commit(res *resolution) (Outcome, error) {
	if built := res.attempt.built(); len(built) > 0 {
		l.logger.Debug("layers built", "path", res.path, "layers", built)
	}
	if err := l.teardown("layer", res.attempt.commit()); err != nil {
		return OutcomeFailed, err
	}

	e := res.entry
	outcome, fresh := OutcomeMounted, true
	if l.live != nil && l.live.entry == e {
		l.live.params.Set(res.value)
		outcome, fresh = OutcomeUpdated, false
	} else {
		if err := l.teardown("route", l.closeLive()); err != nil {
			return OutcomeFailed, err
		}
		l.live = l.mountLive(res)
	}

	out, key, err := l.layouts.apply(l.r.layouts[e.Index], l.live.content, l.live, res.value, fresh)
	if err := l.teardown("layout", err); err != nil {
		return OutcomeFailed, err
	}
	out, key, err = l.catches.apply(l.r.catches[e.Index], out, key, res.value, fresh)
	if err := l.teardown("catch", err); err != nil {
		return OutcomeFailed, err
	}

	l.switchContent(key, out)
	return outcome, nil
}

// fail shows a resolution failure through the boundaries shared by the
// entries it concerns, or through the root boundaries when no entry
// matched. Without a catch boundary there the stream fails.
func (l *loop) fail(cause error, within []*Entry) error {
	l.redirects = 0

	layouts, catches := l.r.rootLayouts, l.r.rootCatches
	if len(within) > 0 {
		ls, cs := commonChain(within)
		layouts, catches = l.r.layoutDefs(ls), l.r.catchDefs(cs)
	}
	if len(catches) == 0 {
		l.logger.Warn("route resolution failed", "path", l.lastPath, "error", cause)
		return cause
	}
	l.logger.Debug("route resolution failed", "path", l.lastPath, "error", cause)

	if err := l.teardown("route", l.closeLive()); err != nil {
		return err
	}

	key := &failureKey{err: cause}
	out, outKey, err := l.layouts.apply(layouts, stream.Fail[Content](cause), key, nil, true)
	if err := l.teardown("layout", err); err != nil {
		return err
	}
	out, outKey, err = l.catches.apply(catches, out, outKey, nil, true)
	if err := l.teardown("catch", err); err != nil {
		return err
	}

	l.switchContent(outKey, out)
	return nil
}

func (l *loop) mountLive(res *resolution) *liveMatch {
	e := res.entry
	sc := l.root.Fork()
	params := reactive.NewSignal[any](res.value)
	rc := &RouteContext{
		Path:     res.path,
		Params:   params,
		Services: res.attempt.services,
		Scope:    sc,
	}
	l.r.opts.observer.Mounted(MountRoute, e.Name)
	return &liveMatch{
		entry:   e,
		params:  params,
		scope:   sc,
		content: bindScope(sc, safeHandle(e.Handler, rc)),
	}
}

func (l *loop) closeLive() error {
	live := l.live
	if live == nil {
		return nil
	}
	l.live = nil
	err := live.scope.Close()
	l.r.opts.observer.Unmounted(MountRoute, live.entry.Name)
	return err
}

// switchContent subscribes to out unless it is already the running content.
// The previous subscription is cancelled and has returned before the new
// one starts, so emissions never interleave.
func (l *loop) switchContent(key any, out stream.Stream[Content]) {
	if l.runner != nil && l.runner.key == key {
		return
	}
	l.stopRunner()

	ctx, cancel := context.WithCancel(l.ctx)
	run := &contentRunner{key: key, cancel: cancel, done: make(chan struct{})}
	l.runner = run

	go func() {
		defer close(run.done)
		run.err = stream.Run(ctx, out, func(v Content) {
			l.emitMu.Lock()
			defer l.emitMu.Unlock()
			if ctx.Err() != nil {
				return
			}
			l.emit(v)
		})
	}()
}

func (l *loop) stopRunner() {
	if l.runner == nil {
		return
	}
	l.runner.cancel()
	<-l.runner.done
	l.runner = nil
}

// shutdown releases everything, innermost first.
func (l *loop) shutdown() error {
	errs := []error{l.cancelInflight()}
	l.stopRunner()
	errs = append(errs,
		l.closeLive(),
		l.layouts.close(),
		l.catches.close(),
		l.layers.close(),
		l.root.Close(),
	)
	l.logger.Debug("router stopped")
	return errors.Join(errs...)
}

// teardown applies the teardown policy to err.
func (l *loop) teardown(stage string, err error) error {
	if err == nil {
		return nil
	}
	l.logger.Warn("teardown failed", "stage", stage, "error", err)
	if l.r.opts.teardown == TeardownPropagate {
		return err
	}
	return nil
}

func (l *loop) endTransition(t *transition, outcome Outcome, template string, err error) {
	d := time.Since(t.start)
	t.span.SetAttributes(attribute.String("liveroute.outcome", string(outcome)))
	if template != "" {
		t.span.SetAttributes(attribute.String("liveroute.route", template))
	}
	if err != nil {
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, err.Error())
	}
	t.span.End()

	l.r.opts.observer.TransitionFinished(TransitionEvent{
		RunID:    l.runID,
		Path:     t.path,
		Template: template,
		Outcome:  outcome,
		Duration: d,
		Err:      err,
	})
	l.logger.Debug("transition finished",
		"path", t.path,
		"transition", t.id,
		"outcome", outcome,
		"duration", d,
	)
}

// safeHandle invokes a handler, turning a panic into a failing stream.
func safeHandle(h Handler, rc *RouteContext) (s stream.Stream[Content]) {
	defer func() {
		if r := recover(); r != nil {
			s = stream.Fail[Content](&stream.PanicError{Value: r})
		}
	}()
	return h(rc)
}
