// Package navigation provides the current-path source the router follows.
//
// A Navigation holds the current location in a reactive signal and keeps
// back/forward history. Every target is canonicalized with routepath before
// it is stored, so equal locations compare equal.
//
//	nav := navigation.New("/")
//	nav.Navigate("/users/42")
//	nav.Navigate("/search", navigation.WithParams(map[string]any{"q": "go"}))
//	nav.Back() // "/users/42"
package navigation

import (
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/vango-dev/liveroute/pkg/reactive"
	"github.com/vango-dev/liveroute/pkg/routepath"
)

// Options configures a navigation.
type Options struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool

	// Params are query parameters to add to the URL.
	Params map[string]any
}

// Option is a functional option for Navigate.
type Option func(*Options)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() Option {
	return func(o *Options) {
		o.Replace = true
	}
}

// WithParams adds query parameters to the navigation URL.
func WithParams(params map[string]any) Option {
	return func(o *Options) {
		o.Params = params
	}
}

// Navigation is the application's current location plus history.
type Navigation struct {
	current *reactive.Signal[string]

	mu      sync.Mutex
	back    []string
	forward []string
}

// New creates a Navigation positioned at initial. An invalid initial path
// falls back to "/".
func New(initial string) *Navigation {
	location, err := buildLocation(initial, nil)
	if err != nil {
		location = "/"
	}
	return &Navigation{current: reactive.NewSignal(location)}
}

// Path returns the signal holding the current location (path plus query).
func (n *Navigation) Path() *reactive.Signal[string] {
	return n.current
}

// Current returns the current location.
func (n *Navigation) Current() string {
	return n.current.Get()
}

// Navigate moves to path. Navigating to the current location is a no-op
// and does not grow the history.
func (n *Navigation) Navigate(path string, opts ...Option) error {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	location, err := buildLocation(path, options.Params)
	if err != nil {
		return err
	}

	n.mu.Lock()
	previous := n.current.Get()
	if previous == location {
		n.mu.Unlock()
		return nil
	}
	if !options.Replace {
		n.back = append(n.back, previous)
	}
	n.forward = nil
	n.mu.Unlock()

	n.current.Set(location)
	return nil
}

// Redirect replaces the current location with path. The router uses it for
// programmatic redirects requested by guards.
func (n *Navigation) Redirect(path string) error {
	return n.Navigate(path, WithReplace())
}

// Back moves to the previous history entry. It reports false when there is
// none.
func (n *Navigation) Back() bool {
	n.mu.Lock()
	if len(n.back) == 0 {
		n.mu.Unlock()
		return false
	}
	target := n.back[len(n.back)-1]
	n.back = n.back[:len(n.back)-1]
	n.forward = append(n.forward, n.current.Get())
	n.mu.Unlock()

	n.current.Set(target)
	return true
}

// Forward moves to the next history entry. It reports false when there is
// none.
func (n *Navigation) Forward() bool {
	n.mu.Lock()
	if len(n.forward) == 0 {
		n.mu.Unlock()
		return false
	}
	target := n.forward[len(n.forward)-1]
	n.forward = n.forward[:len(n.forward)-1]
	n.back = append(n.back, n.current.Get())
	n.mu.Unlock()

	n.current.Set(target)
	return true
}

// History returns copies of the back and forward stacks, oldest first.
func (n *Navigation) History() (back, forward []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.back...), append([]string(nil), n.forward...)
}

// buildLocation canonicalizes path and merges extra query parameters.
func buildLocation(path string, params map[string]any) (string, error) {
	res, err := routepath.Canonicalize(path)
	if err != nil {
		return "", fmt.Errorf("navigation: invalid path %q: %w", path, err)
	}

	query, err := url.ParseQuery(res.Query)
	if err != nil {
		return "", fmt.Errorf("navigation: invalid query in %q: %w", path, err)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query.Set(k, fmt.Sprintf("%v", params[k]))
	}

	if len(query) == 0 {
		return res.Path, nil
	}
	return res.Path + "?" + query.Encode(), nil
}
