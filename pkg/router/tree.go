package router

import (
	"net/url"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/vango-dev/liveroute/pkg/pattern"
	"github.com/vango-dev/liveroute/pkg/routepath"
)

// treeNode is a node in the route trie.
type treeNode struct {
	// segment is the case-folded literal this node matches.
	segment string

	// entries are the routes whose pattern ends at this node, in table
	// order.
	entries []*Entry

	// children are static segment children.
	children []*treeNode

	// paramChild matches any single segment.
	paramChild *treeNode
}

// Candidate is an entry whose pattern matches a path, with the captured
// path parameters.
type Candidate struct {
	Entry  *Entry
	Params pattern.Values
}

// routeTree maps paths to candidate entries.
type routeTree struct {
	root *treeNode
}

func newRouteTree(entries []*Entry) *routeTree {
	t := &routeTree{root: &treeNode{}}
	for _, e := range entries {
		t.insert(e)
	}
	return t
}

// findChild finds a child node with an exact segment match.
func (n *treeNode) findChild(segment string) *treeNode {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

// addChild adds or retrieves a child node for the given segment.
func (n *treeNode) addChild(segment string) *treeNode {
	if child := n.findChild(segment); child != nil {
		return child
	}
	child := &treeNode{segment: segment}
	n.children = append(n.children, child)
	return child
}

// addParamChild adds or retrieves the parameter child node.
func (n *treeNode) addParamChild() *treeNode {
	if n.paramChild == nil {
		n.paramChild = &treeNode{}
	}
	return n.paramChild
}

// insert registers e under its pattern. Entries sharing a template share a
// node, so they come back together as candidates.
func (t *routeTree) insert(e *Entry) {
	current := t.root
	for _, seg := range e.Pattern.Segments() {
		if seg.Kind == pattern.KindParam {
			current = current.addParamChild()
			continue
		}
		current = current.addChild(fold(seg.Text))
	}
	current.entries = append(current.entries, e)
}

// lookup returns the candidates for a canonical path. Static segments are
// preferred over parameters, backtracking when a static branch dead-ends.
func (t *routeTree) lookup(path string) ([]Candidate, bool) {
	raw := routepath.Segments(path)
	decoded := make([]string, len(raw))
	for i, seg := range raw {
		d, err := routepath.DecodeSegment(seg)
		if err != nil {
			return nil, false
		}
		decoded[i] = d
	}

	captured := make([]string, 0, len(decoded))
	node, captured, ok := t.root.match(decoded, captured)
	if !ok {
		return nil, false
	}

	candidates := make([]Candidate, 0, len(node.entries))
	for _, e := range node.entries {
		params := make(pattern.Values, len(captured))
		i := 0
		for _, seg := range e.Pattern.Segments() {
			if seg.Kind == pattern.KindParam {
				params[seg.Text] = captured[i]
				i++
			}
		}
		candidates = append(candidates, Candidate{Entry: e, Params: params})
	}
	return candidates, true
}

// match finds the node for the remaining segments, returning the values
// captured by parameter nodes along the way.
func (n *treeNode) match(segments, captured []string) (*treeNode, []string, bool) {
	if len(segments) == 0 {
		if len(n.entries) > 0 {
			return n, captured, true
		}
		return nil, nil, false
	}

	segment := segments[0]
	remaining := segments[1:]

	// Try exact match first
	if child := n.findChild(fold(segment)); child != nil {
		if node, c, ok := child.match(remaining, captured); ok {
			return node, c, true
		}
	}

	// Try parameter match, backtracking on failure
	if n.paramChild != nil && segment != "" {
		if node, c, ok := n.paramChild.match(remaining, append(captured, segment)); ok {
			return node, c, true
		}
	}

	return nil, nil, false
}

// folder is stateless and safe for concurrent use.
var folder = cases.Fold()

// fold case-folds s for case-insensitive comparison.
func fold(s string) string {
	if isLowerASCII(s) {
		return s
	}
	return folder.String(s)
}

func isLowerASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= utf8.RuneSelf || ('A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

// splitLocation canonicalizes a location into its path and parsed query.
func splitLocation(location string) (string, url.Values, error) {
	res, err := routepath.Canonicalize(location)
	if err != nil {
		return "", nil, err
	}
	query, err := url.ParseQuery(res.Query)
	if err != nil {
		return res.Path, nil, err
	}
	return res.Path, query, nil
}
