package scenario

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/liveroute/pkg/pattern"
	"github.com/vango-dev/liveroute/pkg/router"
	"github.com/vango-dev/liveroute/pkg/scope"
	"github.com/vango-dev/liveroute/pkg/stream"
)

// Journal records layer lifecycle events in order.
type Journal struct {
	mu     sync.Mutex
	events []string
}

func (j *Journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events.
func (j *Journal) Events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.events)
}

// builder turns scenario nodes into a route tree. Named layers, layouts
// and catches are created once so that every use shares one identity.
type builder struct {
	f       *File
	journal *Journal

	layers  map[string]*router.Layer
	keys    map[string]*router.Key[string]
	layouts map[string]*router.LayoutDef
	catches map[string]*router.CatchDef
}

// Matcher builds the scenario's route tree. Layer builds and releases are
// recorded in journal.
func (f *File) Matcher(journal *Journal) (router.Matcher, error) {
	b := &builder{
		f:       f,
		journal: journal,
		layers:  make(map[string]*router.Layer),
		keys:    make(map[string]*router.Key[string]),
		layouts: make(map[string]*router.LayoutDef),
		catches: make(map[string]*router.CatchDef),
	}
	for _, name := range slices.Sorted(maps.Keys(f.Layers)) {
		b.keys[name] = router.NewKey[string](name)
		b.layers[name] = b.layer(name, f.Layers[name])
	}

	m := b.group(f.Routes)
	return m, m.Err()
}

func (b *builder) group(nodes []Node) router.Matcher {
	ms := make([]router.Matcher, len(nodes))
	for i, n := range nodes {
		ms[i] = b.node(n)
	}
	return router.Merge(ms...)
}

func (b *builder) node(n Node) router.Matcher {
	if n.Route != "" {
		return b.route(n)
	}

	m := b.group(n.Routes)
	if n.Layout != "" {
		m = m.UseLayout(b.layout(n.Layout))
	}
	if n.Catch != "" {
		m = m.UseCatch(b.catch(n.Catch))
	}
	if len(n.Provide) > 0 {
		layers := make([]*router.Layer, len(n.Provide))
		for i, name := range n.Provide {
			layers[i] = b.layers[name]
		}
		m = m.Provide(layers...)
	}
	if n.Prefix != "" {
		m = m.Prefix(n.Prefix)
	}
	return m
}

func (b *builder) route(n Node) router.Matcher {
	var opts []router.RouteOption
	if n.Name != "" {
		opts = append(opts, router.WithName(n.Name))
	}
	if n.Guard != nil {
		opts = append(opts, router.WithGuard(b.guard(*n.Guard)))
	}
	return router.Match(n.Route, handler(n), opts...)
}

// handler renders n.Render with {param} placeholders filled from the
// current parameters, or fails with n.Fail.
func handler(n Node) router.Handler {
	if n.Fail != "" {
		return func(*router.RouteContext) stream.Stream[router.Content] {
			return stream.Fail[router.Content](errors.New(n.Fail))
		}
	}
	render := n.Render
	if render == "" {
		render = n.Route
	}
	return func(rc *router.RouteContext) stream.Stream[router.Content] {
		return stream.SkipRepeats(stream.Map(rc.ParamsStream(), func(v any) router.Content {
			return expand(render, v)
		}), nil)
	}
}

func expand(tmpl string, params any) string {
	values, ok := params.(pattern.Values)
	if !ok || len(values) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func (b *builder) guard(g Guard) router.GuardFunc {
	return func(ctx context.Context, in router.GuardInput) (any, bool, error) {
		if g.Delay > 0 {
			select {
			case <-time.After(g.Delay):
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		}
		if g.Redirect != "" {
			return nil, false, router.Redirect(g.Redirect)
		}
		for _, name := range g.Require {
			if _, ok := router.Lookup(in.Services, b.keys[name]); !ok {
				return nil, false, nil
			}
		}
		values, _ := in.Value.(pattern.Values)
		for param, allowed := range g.Allow {
			if !slices.Contains(allowed, values[param]) {
				return nil, false, nil
			}
		}
		return nil, true, nil
	}
}

func (b *builder) layer(name string, spec LayerSpec) *router.Layer {
	provides := spec.Provides
	if provides == "" {
		provides = name
	}
	key := b.keys[name]
	return router.NewLayer(name, func(ctx context.Context, sc *scope.Scope, deps router.Services) (router.Services, error) {
		if spec.Delay > 0 {
			select {
			case <-time.After(spec.Delay):
			case <-ctx.Done():
				return router.Services{}, ctx.Err()
			}
		}
		if spec.Fail != "" {
			b.journal.add("fail:%s", name)
			return router.Services{}, errors.New(spec.Fail)
		}
		b.journal.add("build:%s", name)
		sc.OnCleanup(func() { b.journal.add("release:%s", name) })
		return router.Provide(router.Services{}, key, provides), nil
	})
}

func (b *builder) layout(name string) *router.LayoutDef {
	if def, ok := b.layouts[name]; ok {
		return def
	}
	def := router.NewLayout(name, func(lc *router.LayoutContext) stream.Stream[router.Content] {
		return lc.Render(func(params any, inner router.Content) router.Content {
			return fmt.Sprintf("%s[%v]", expand(name, params), inner)
		})
	})
	b.layouts[name] = def
	return def
}

func (b *builder) catch(name string) *router.CatchDef {
	if def, ok := b.catches[name]; ok {
		return def
	}
	def := router.NewCatch(name, func(cc *router.CatchContext) stream.Stream[router.Content] {
		return stream.Map(cc.Causes(), func(err error) router.Content {
			if code := router.Code(err); code != "" {
				return name + ": " + code
			}
			return name + ": " + err.Error()
		})
	})
	b.catches[name] = def
	return def
}
