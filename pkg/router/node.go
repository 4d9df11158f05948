package router

import "github.com/vango-dev/liveroute/pkg/pattern"

// Node is one node of a route tree. The kinds are closed: *RouteNode,
// *LayerNode, *LayoutNode, *PrefixNode and *CatchNode.
type Node interface {
	node()
}

// RouteNode is a route leaf. Its identity matters: the same *RouteNode
// reached twice under one final template is ambiguous.
type RouteNode struct {
	name    string
	pattern pattern.Pattern
	guard   GuardFunc
	handler Handler

	// decoder builds the parameter decoder from the final, prefixed schema.
	decoder func(pattern.Schema) pattern.Decoder

	err error
}

// LayerNode provides layers to its children.
type LayerNode struct {
	children []Node
	layers   []*Layer
}

// LayoutNode wraps its children in a layout.
type LayoutNode struct {
	children []Node
	def      *LayoutDef
}

// PrefixNode prepends a pattern to every route below it.
type PrefixNode struct {
	children []Node
	prefix   pattern.Pattern
}

// CatchNode installs a catch boundary around its children.
type CatchNode struct {
	children []Node
	def      *CatchDef
}

func (*RouteNode) node()  {}
func (*LayerNode) node()  {}
func (*LayoutNode) node() {}
func (*PrefixNode) node() {}
func (*CatchNode) node()  {}

// Pattern returns the route's own pattern, without ancestor prefixes.
func (n *RouteNode) Pattern() pattern.Pattern { return n.pattern }

// Name returns the route's diagnostic name.
func (n *RouteNode) Name() string { return n.name }

// Children returns the node's children.
func (n *LayerNode) Children() []Node { return n.children }

// Layers returns the layers provided to the children.
func (n *LayerNode) Layers() []*Layer { return n.layers }

// Children returns the node's children.
func (n *LayoutNode) Children() []Node { return n.children }

// Children returns the node's children.
func (n *PrefixNode) Children() []Node { return n.children }

// Prefix returns the pattern prepended to the children.
func (n *PrefixNode) Prefix() pattern.Pattern { return n.prefix }

// Children returns the node's children.
func (n *CatchNode) Children() []Node { return n.children }
