package router

import (
	"fmt"

	"github.com/vango-dev/liveroute/pkg/pattern"
)

// Entry is one compiled route: its final pattern plus the ancestor chain of
// layers, layouts and catch boundaries, each ordered ancestor to leaf.
type Entry struct {
	// Index is the entry's position in the table, which is also its
	// guard evaluation order among entries sharing a pattern.
	Index int

	Name    string
	Pattern pattern.Pattern
	Guard   GuardFunc
	Handler Handler
	Decoder pattern.Decoder

	Layers  []*Layer
	Layouts []*LayoutDef
	Catches []*CatchDef

	route *RouteNode

	// layoutHandles and catchHandles parallel Layouts and Catches.
	layoutHandles []int
	catchHandles  []int
}

// Template returns the entry's structural template.
func (e *Entry) Template() string {
	return e.Pattern.Template()
}

// Route returns the route node the entry was compiled from.
func (e *Entry) Route() *RouteNode {
	return e.route
}

// Table is a compiled route tree.
type Table struct {
	entries []*Entry

	layoutHandles map[*LayoutDef]int
	catchHandles  map[*CatchDef]int

	rootLayouts []*LayoutDef
	rootCatches []*CatchDef
}

// Entries returns the compiled entries in depth-first tree order.
func (t *Table) Entries() []*Entry {
	return append([]*Entry(nil), t.entries...)
}

// Len returns the number of compiled entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// LayoutHandle returns the stable handle assigned to a layout definition.
func (t *Table) LayoutHandle(def *LayoutDef) (int, bool) {
	h, ok := t.layoutHandles[def]
	return h, ok
}

// CatchHandle returns the stable handle assigned to a catch definition.
func (t *Table) CatchHandle(def *CatchDef) (int, bool) {
	h, ok := t.catchHandles[def]
	return h, ok
}

// RootLayouts returns the layouts shared by every entry, outermost first.
// They render resolution failures.
func (t *Table) RootLayouts() []*LayoutDef {
	return append([]*LayoutDef(nil), t.rootLayouts...)
}

// RootCatches returns the catch boundaries shared by every entry.
func (t *Table) RootCatches() []*CatchDef {
	return append([]*CatchDef(nil), t.rootCatches...)
}

// compileContext is the ancestor chain accumulated during traversal.
type compileContext struct {
	prefixes []pattern.Pattern
	layers   []*Layer
	layouts  []*LayoutDef
	catches  []*CatchDef
}

type routeKey struct {
	route    *RouteNode
	template string
}

type compiler struct {
	table *Table
	seen  map[routeKey]struct{}
}

// Compile flattens a route tree into a table. Compiling the same tree twice
// yields identical tables.
func Compile(m Matcher) (*Table, error) {
	if m.err != nil {
		return nil, m.err
	}
	c := &compiler{
		table: &Table{
			layoutHandles: make(map[*LayoutDef]int),
			catchHandles:  make(map[*CatchDef]int),
		},
		seen: make(map[routeKey]struct{}),
	}
	for _, n := range m.nodes {
		if err := c.visit(n, compileContext{}); err != nil {
			return nil, err
		}
	}
	c.table.rootLayouts, c.table.rootCatches = commonChain(c.table.entries)
	return c.table, nil
}

func (c *compiler) visit(n Node, ctx compileContext) error {
	switch n := n.(type) {
	case *RouteNode:
		return c.emit(n, ctx)
	case *LayerNode:
		for _, l := range n.layers {
			if !containsPtr(ctx.layers, l) {
				ctx.layers = appendCopy(ctx.layers, l)
			}
		}
		return c.visitAll(n.children, ctx)
	case *LayoutNode:
		if !containsPtr(ctx.layouts, n.def) {
			c.layoutHandle(n.def)
			ctx.layouts = appendCopy(ctx.layouts, n.def)
		}
		return c.visitAll(n.children, ctx)
	case *PrefixNode:
		ctx.prefixes = appendCopy(ctx.prefixes, n.prefix)
		return c.visitAll(n.children, ctx)
	case *CatchNode:
		if !containsPtr(ctx.catches, n.def) {
			c.catchHandle(n.def)
			ctx.catches = appendCopy(ctx.catches, n.def)
		}
		return c.visitAll(n.children, ctx)
	case nil:
		return fmt.Errorf("router: nil node in route tree")
	default:
		panic(fmt.Sprintf("router: unknown node type %T", n))
	}
}

func (c *compiler) visitAll(nodes []Node, ctx compileContext) error {
	for _, child := range nodes {
		if err := c.visit(child, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) emit(n *RouteNode, ctx compileContext) error {
	if n.handler == nil {
		return fmt.Errorf("router: route %q has no handler", n.name)
	}

	p, err := pattern.Join(append(appendCopy(ctx.prefixes), n.pattern)...)
	if err != nil {
		return fmt.Errorf("router: route %q: %w", n.name, err)
	}

	key := routeKey{route: n, template: p.Template()}
	if _, dup := c.seen[key]; dup {
		return fmt.Errorf("%w: %s reached twice at %s", ErrAmbiguousRoute, n.name, key.template)
	}
	c.seen[key] = struct{}{}

	decoder := pattern.ValuesDecoder(p.Schema())
	if n.decoder != nil {
		decoder = n.decoder(p.Schema())
	}

	e := &Entry{
		Index:   len(c.table.entries),
		Name:    n.name,
		Pattern: p,
		Guard:   n.guard,
		Handler: n.handler,
		Decoder: decoder,
		Layers:  ctx.layers,
		Layouts: ctx.layouts,
		Catches: ctx.catches,
		route:   n,
	}
	for _, def := range ctx.layouts {
		e.layoutHandles = append(e.layoutHandles, c.table.layoutHandles[def])
	}
	for _, def := range ctx.catches {
		e.catchHandles = append(e.catchHandles, c.table.catchHandles[def])
	}
	c.table.entries = append(c.table.entries, e)
	return nil
}

func (c *compiler) layoutHandle(def *LayoutDef) {
	if _, ok := c.table.layoutHandles[def]; !ok {
		c.table.layoutHandles[def] = len(c.table.layoutHandles)
	}
}

func (c *compiler) catchHandle(def *CatchDef) {
	if _, ok := c.table.catchHandles[def]; !ok {
		c.table.catchHandles[def] = len(c.table.catchHandles)
	}
}

// commonChain returns the longest layout and catch chains that prefix
// every entry's chain.
func commonChain(entries []*Entry) ([]*LayoutDef, []*CatchDef) {
	if len(entries) == 0 {
		return nil, nil
	}
	layouts := entries[0].Layouts
	catches := entries[0].Catches
	for _, e := range entries[1:] {
		layouts = commonPrefix(layouts, e.Layouts)
		catches = commonPrefix(catches, e.Catches)
	}
	return appendCopy(layouts), appendCopy(catches)
}

func commonPrefix[T comparable](a, b []T) []T {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return a[:n]
}

func containsPtr[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// appendCopy appends to a fresh slice so sibling subtrees never share
// backing arrays.
func appendCopy[T any](list []T, extra ...T) []T {
	out := make([]T, 0, len(list)+len(extra))
	out = append(out, list...)
	return append(out, extra...)
}
