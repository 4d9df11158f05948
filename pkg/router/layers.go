package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/liveroute/pkg/scope"
)

// activeLayer is a built layer and what it produced.
type activeLayer struct {
	scope    *scope.Scope
	services Services
}

// layerManager keeps the set of active layers and builds only what a
// transition adds to it.
type layerManager struct {
	root     *scope.Scope
	tracer   trace.Tracer
	observer Observer

	mu     sync.Mutex
	active map[*Layer]*activeLayer
	order  []*Layer
}

func newLayerManager(root *scope.Scope, tracer trace.Tracer, observer Observer) *layerManager {
	return &layerManager{
		root:     root,
		tracer:   tracer,
		observer: observer,
		active:   make(map[*Layer]*activeLayer),
	}
}

// layerAttempt is the outcome of prepare. Exactly one of commit or rollback
// must be called.
type layerAttempt struct {
	m        *layerManager
	desired  []*Layer
	services Services
	opened   []openedLayer
	done     bool
}

type openedLayer struct {
	layer *Layer
	state *activeLayer
}

// prepare builds every desired layer that is not active yet, in order, each
// seeing the services of the layers before it. On a build failure
// everything opened by this call is closed again and the build error is
// returned together with any teardown error.
func (m *layerManager) prepare(ctx context.Context, desired []*Layer) (*layerAttempt, error) {
	a := &layerAttempt{m: m, desired: desired}

	for _, l := range desired {
		m.mu.Lock()
		st, ok := m.active[l]
		m.mu.Unlock()
		if ok {
			a.services = a.services.Merge(st.services)
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, errors.Join(err, a.rollback())
		}

		sc := m.root.Fork()
		produced, err := m.build(ctx, l, sc, a.services)
		if err != nil {
			closeErr := sc.Close()
			m.observer.LayerReleased(l.name)
			return nil, &layerFailure{cause: err, teardown: errors.Join(closeErr, a.rollback())}
		}
		a.opened = append(a.opened, openedLayer{layer: l, state: &activeLayer{scope: sc, services: produced}})
		a.services = a.services.Merge(produced)
	}
	return a, nil
}

func (m *layerManager) build(ctx context.Context, l *Layer, sc *scope.Scope, deps Services) (services Services, err error) {
	ctx, span := m.tracer.Start(ctx, "liveroute.layer.build",
		trace.WithAttributes(attribute.String("liveroute.layer", l.name)),
	)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("router: layer %s panicked: %v", l.name, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		m.observer.LayerBuilt(l.name, time.Since(start), err)
	}()

	if l.build == nil {
		return Services{}, nil
	}
	return l.build(ctx, sc, deps)
}

// commit installs the layers built by the attempt and retires every active
// layer the attempt did not ask for, newest first.
func (a *layerAttempt) commit() error {
	if a.done {
		return nil
	}
	a.done = true
	m := a.m

	m.mu.Lock()
	var removed []openedLayer
	for i := len(m.order) - 1; i >= 0; i-- {
		l := m.order[i]
		if containsPtr(a.desired, l) {
			continue
		}
		removed = append(removed, openedLayer{layer: l, state: m.active[l]})
		delete(m.active, l)
	}
	for _, o := range a.opened {
		m.active[o.layer] = o.state
	}
	m.order = appendCopy(a.desired)
	m.mu.Unlock()

	var errs []error
	for _, r := range removed {
		if err := r.state.scope.Close(); err != nil {
			errs = append(errs, fmt.Errorf("layer %s: %w", r.layer.name, err))
		}
		m.observer.LayerReleased(r.layer.name)
	}
	return errors.Join(errs...)
}

// rollback closes every layer built by the attempt, newest first, and
// leaves the active set untouched.
func (a *layerAttempt) rollback() error {
	if a.done {
		return nil
	}
	a.done = true

	var errs []error
	for i := len(a.opened) - 1; i >= 0; i-- {
		o := a.opened[i]
		if err := o.state.scope.Close(); err != nil {
			errs = append(errs, fmt.Errorf("layer %s: %w", o.layer.name, err))
		}
		a.m.observer.LayerReleased(o.layer.name)
	}
	a.opened = nil
	return errors.Join(errs...)
}

// built returns the names of the layers opened by the attempt.
func (a *layerAttempt) built() []string {
	names := make([]string, len(a.opened))
	for i, o := range a.opened {
		names[i] = o.layer.name
	}
	return names
}

// close retires every active layer, newest first.
func (m *layerManager) close() error {
	m.mu.Lock()
	order := m.order
	active := m.active
	m.order = nil
	m.active = make(map[*Layer]*activeLayer)
	m.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		l := order[i]
		if err := active[l].scope.Close(); err != nil {
			errs = append(errs, fmt.Errorf("layer %s: %w", l.name, err))
		}
		m.observer.LayerReleased(l.name)
	}
	return errors.Join(errs...)
}

// activeNames returns the names of the active layers in order.
func (m *layerManager) activeNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.order))
	for i, l := range m.order {
		names[i] = l.name
	}
	return names
}

// layerFailure carries a layer build error plus any error hit while
// rolling back. Only the build error is exposed through Unwrap.
type layerFailure struct {
	cause    error
	teardown error
}

func (e *layerFailure) Error() string { return e.cause.Error() }

func (e *layerFailure) Unwrap() error { return e.cause }
