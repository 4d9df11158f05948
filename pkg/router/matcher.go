package router

import (
	"errors"
	"fmt"

	"github.com/vango-dev/liveroute/pkg/pattern"
)

// Matcher is an immutable route tree under construction. Every method
// returns a new Matcher and leaves the receiver unchanged. Invalid patterns
// are recorded and reported by Compile.
type Matcher struct {
	nodes []Node
	err   error
}

// RouteOption configures a route.
type RouteOption func(*RouteNode)

// WithGuard sets the route's guard.
func WithGuard(guard GuardFunc) RouteOption {
	return func(n *RouteNode) {
		n.guard = guard
	}
}

// WithParams decodes path and query parameters into a new *T.
// Fields are bound with `param:"name"` and `query:"name"` tags.
func WithParams[T any]() RouteOption {
	return func(n *RouteNode) {
		n.decoder = func(schema pattern.Schema) pattern.Decoder {
			return pattern.StructDecoder[T](schema)
		}
	}
}

// WithDecoder replaces the route's parameter decoder.
func WithDecoder(d pattern.Decoder) RouteOption {
	return func(n *RouteNode) {
		n.decoder = func(pattern.Schema) pattern.Decoder {
			return d
		}
	}
}

// WithParamType sets the expected type of a parameter declared in the
// route's template.
//
// Supported types: "string", "int", "int64", "uint", "uuid", "bool", "float".
func WithParamType(name, typ string) RouteOption {
	return func(n *RouteNode) {
		if n.err != nil {
			return
		}
		p, err := n.pattern.WithParamType(name, typ)
		if err != nil {
			n.err = err
			return
		}
		n.pattern = p
	}
}

// WithName sets the route's diagnostic name.
func WithName(name string) RouteOption {
	return func(n *RouteNode) {
		n.name = name
	}
}

// Empty returns a route tree without routes.
func Empty() Matcher {
	return Matcher{}
}

// Match creates a tree holding a single route.
func Match(template string, handler Handler, opts ...RouteOption) Matcher {
	node, err := newRouteNode(template, handler, opts)
	if err != nil {
		return Matcher{err: err}
	}
	return Matcher{nodes: []Node{node}}
}

// Guard creates a tree holding a single guarded route.
func Guard(template string, guard GuardFunc, handler Handler, opts ...RouteOption) Matcher {
	return Match(template, handler, append([]RouteOption{WithGuard(guard)}, opts...)...)
}

// Route returns the tree holding an existing route node. Adding the same
// node twice under one final pattern makes Compile fail.
func Route(node *RouteNode) Matcher {
	return Matcher{nodes: []Node{node}}
}

// Merge combines trees. Route order is preserved.
func Merge(matchers ...Matcher) Matcher {
	var out Matcher
	var errs []error
	for _, m := range matchers {
		out.nodes = append(out.nodes, m.nodes...)
		if m.err != nil {
			errs = append(errs, m.err)
		}
	}
	out.err = errors.Join(errs...)
	return out
}

// NewRoute builds a route node that can be shared between trees.
func NewRoute(template string, handler Handler, opts ...RouteOption) (*RouteNode, error) {
	return newRouteNode(template, handler, opts)
}

func newRouteNode(template string, handler Handler, opts []RouteOption) (*RouteNode, error) {
	p, err := pattern.Parse(template)
	if err != nil {
		return nil, fmt.Errorf("router: route %q: %w", template, err)
	}
	n := &RouteNode{
		name:    template,
		pattern: p,
		handler: handler,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.err != nil {
		return nil, fmt.Errorf("router: route %q: %w", template, n.err)
	}
	return n, nil
}

// Match returns m with an additional route.
func (m Matcher) Match(template string, handler Handler, opts ...RouteOption) Matcher {
	return Merge(m, Match(template, handler, opts...))
}

// Guard returns m with an additional guarded route.
func (m Matcher) Guard(template string, guard GuardFunc, handler Handler, opts ...RouteOption) Matcher {
	return Merge(m, Guard(template, guard, handler, opts...))
}

// Merge returns m combined with others.
func (m Matcher) Merge(others ...Matcher) Matcher {
	return Merge(append([]Matcher{m}, others...)...)
}

// Provide makes the layers available to every route in m. Layers are built
// in the order given, after any layers provided by enclosing trees.
func (m Matcher) Provide(layers ...*Layer) Matcher {
	if len(layers) == 0 {
		return m
	}
	return m.wrap(&LayerNode{children: m.nodes, layers: append([]*Layer(nil), layers...)})
}

// Layout wraps every route in m in a new layout.
func (m Matcher) Layout(fn LayoutFunc) Matcher {
	return m.UseLayout(NewLayout("", fn))
}

// UseLayout wraps every route in m in an existing layout definition.
// Subtrees using the same definition share one mounted layout.
func (m Matcher) UseLayout(def *LayoutDef) Matcher {
	return m.wrap(&LayoutNode{children: m.nodes, def: def})
}

// Catch installs a new catch boundary around every route in m.
func (m Matcher) Catch(fn CatchFunc) Matcher {
	return m.UseCatch(NewCatch("", fn))
}

// UseCatch installs an existing catch boundary definition.
func (m Matcher) UseCatch(def *CatchDef) Matcher {
	return m.wrap(&CatchNode{children: m.nodes, def: def})
}

// Prefix prepends template to every route in m.
func (m Matcher) Prefix(template string) Matcher {
	p, err := pattern.Parse(template)
	if err != nil {
		return Matcher{nodes: m.nodes, err: errors.Join(m.err, fmt.Errorf("router: prefix %q: %w", template, err))}
	}
	return m.wrap(&PrefixNode{children: m.nodes, prefix: p})
}

// Nodes returns the top-level nodes of the tree.
func (m Matcher) Nodes() []Node {
	return append([]Node(nil), m.nodes...)
}

// Err returns the construction errors recorded so far.
func (m Matcher) Err() error {
	return m.err
}

func (m Matcher) wrap(n Node) Matcher {
	return Matcher{nodes: []Node{n}, err: m.err}
}
