package router

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/vango-dev/liveroute/pkg/reactive"
	"github.com/vango-dev/liveroute/pkg/scope"
	"github.com/vango-dev/liveroute/pkg/stream"
)

// wrapInstance is a mounted layout or catch boundary.
type wrapInstance struct {
	handle int
	name   string
	scope  *scope.Scope

	params  *reactive.Signal[any]
	content *reactive.Signal[stream.Stream[Content]]
	out     stream.Stream[Content]

	// innerKey identifies what content currently holds.
	innerKey any

	// failed is set by a catch boundary while its fallback is shown.
	failed atomic.Bool
}

// wrapDef is a compiled layout or catch definition.
type wrapDef struct {
	handle int
	name   string
	mount  func(inst *wrapInstance) stream.Stream[Content]
}

// wrapManager keeps one instance per active definition. Layouts and catch
// boundaries share it; they differ only in how an instance is mounted and
// in retry: a retrying manager re-subscribes a failed instance's content on
// every fresh transition and whenever the params inside it change.
type wrapManager struct {
	kind     MountKind
	retry    bool
	root     *scope.Scope
	observer Observer

	active map[int]*wrapInstance
	order  []int
}

func newWrapManager(kind MountKind, root *scope.Scope, observer Observer) *wrapManager {
	return &wrapManager{
		kind:     kind,
		retry:    kind == MountCatch,
		root:     root,
		observer: observer,
		active:   make(map[int]*wrapInstance),
	}
}

// apply wraps inner in defs, nearest definition first, and returns the
// composed stream with its identity. defs are ordered ancestor to leaf.
// Instances that stay active only receive the new params and, if it
// changed, the new inner content. Instances no longer listed are closed.
func (m *wrapManager) apply(defs []wrapDef, inner stream.Stream[Content], innerKey any, params any, fresh bool) (stream.Stream[Content], any, error) {
	for i := len(defs) - 1; i >= 0; i-- {
		d := defs[i]
		inst, ok := m.active[d.handle]
		if ok {
			changed := inst.params.Set(params)
			if inst.innerKey != innerKey || (m.retry && (fresh || changed) && inst.failed.Load()) {
				inst.failed.Store(false)
				inst.innerKey = innerKey
				inst.content.Set(inner)
			}
		} else {
			inst = m.mount(d, inner, innerKey, params)
			m.active[d.handle] = inst
		}
		inner, innerKey = inst.out, inst
	}
	return inner, innerKey, m.evict(defs)
}

func (m *wrapManager) mount(d wrapDef, inner stream.Stream[Content], innerKey any, params any) *wrapInstance {
	inst := &wrapInstance{
		handle:   d.handle,
		name:     d.name,
		scope:    m.root.Fork(),
		params:   reactive.NewSignal[any](params),
		content:  reactive.NewSignal(inner).AlwaysNotify(),
		innerKey: innerKey,
	}
	inst.out = bindScope(inst.scope, safeMount(d, inst))
	m.observer.Mounted(m.kind, d.name)
	return inst
}

// evict closes every instance whose definition is not in defs, innermost
// first.
func (m *wrapManager) evict(defs []wrapDef) error {
	keep := make(map[int]struct{}, len(defs))
	next := make([]int, len(defs))
	for i, d := range defs {
		keep[d.handle] = struct{}{}
		next[i] = d.handle
	}

	var errs []error
	for i := len(m.order) - 1; i >= 0; i-- {
		h := m.order[i]
		if _, ok := keep[h]; ok {
			continue
		}
		inst, ok := m.active[h]
		if !ok {
			continue
		}
		delete(m.active, h)
		if err := inst.scope.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", m.kind, inst.name, err))
		}
		m.observer.Unmounted(m.kind, inst.name)
	}
	m.order = next
	return errors.Join(errs...)
}

// close unmounts every instance.
func (m *wrapManager) close() error {
	return m.evict(nil)
}

// mounted returns the names of the active instances, outermost first.
func (m *wrapManager) mounted() []string {
	names := make([]string, 0, len(m.order))
	for _, h := range m.order {
		if inst, ok := m.active[h]; ok {
			names = append(names, inst.name)
		}
	}
	return names
}

func layoutWrapDef(handle int, def *LayoutDef) wrapDef {
	return wrapDef{
		handle: handle,
		name:   defName(def.name, "layout", handle),
		mount: func(inst *wrapInstance) stream.Stream[Content] {
			return def.fn(&LayoutContext{
				Params:  inst.params,
				Content: inst.content,
				Scope:   inst.scope,
			})
		},
	}
}

func catchWrapDef(handle int, def *CatchDef, observer Observer) wrapDef {
	name := defName(def.name, "catch", handle)
	return wrapDef{
		handle: handle,
		name:   name,
		mount: func(inst *wrapInstance) stream.Stream[Content] {
			cause := reactive.NewSignal[error](nil).AlwaysNotify()
			fallback := def.fn(&CatchContext{
				Cause:  cause,
				Params: inst.params,
				Scope:  inst.scope,
			})
			return stream.SwitchMap(stream.FromSignal(inst.content), func(inner stream.Stream[Content]) stream.Stream[Content] {
				return stream.CatchError(inner, func(err error) stream.Stream[Content] {
					inst.failed.Store(true)
					cause.Set(err)
					observer.Caught(name, err)
					return fallback
				})
			})
		},
	}
}

func defName(name, kind string, handle int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s-%d", kind, handle)
}

// safeMount invokes the definition, turning a panic into a failing stream.
func safeMount(d wrapDef, inst *wrapInstance) (s stream.Stream[Content]) {
	defer func() {
		if r := recover(); r != nil {
			s = stream.Fail[Content](&stream.PanicError{Value: r})
		}
	}()
	return d.mount(inst)
}

// bindScope ends every subscription of s once sc closes.
func bindScope[T any](sc *scope.Scope, s stream.Stream[T]) stream.Stream[T] {
	return stream.Func[T](func(ctx context.Context, emit func(T)) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(sc.Context(), cancel)
		defer stop()
		return stream.Run(ctx, s, emit)
	})
}
