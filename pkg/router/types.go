package router

import (
	"context"

	"github.com/vango-dev/liveroute/pkg/reactive"
	"github.com/vango-dev/liveroute/pkg/scope"
	"github.com/vango-dev/liveroute/pkg/stream"
)

// Content is a renderable value produced by handlers, layouts and catch
// boundaries. The router never inspects it.
type Content = any

// Handler produces the content stream for a matched route. It is called
// once each time the route becomes live; parameter changes for the same
// route arrive through RouteContext.Params.
type Handler func(rc *RouteContext) stream.Stream[Content]

// LayoutFunc wraps the content of every route below it. It is called once
// per continuous period during which the layout stays active.
type LayoutFunc func(lc *LayoutContext) stream.Stream[Content]

// CatchFunc produces the fallback stream shown after a failure below the
// boundary. It is called once when the boundary mounts; each failure is
// published on CatchContext.Cause before the fallback is subscribed. The
// failed content is subscribed again on the next transition through the
// boundary, including a parameter change of the same route.
type CatchFunc func(cc *CatchContext) stream.Stream[Content]

// GuardFunc inspects a decoded parameter value and either accepts it,
// possibly transformed, or declines. Accepting with a nil value keeps the
// decoded value. An error counts as a failed guard unless it is a
// *RedirectError.
type GuardFunc func(ctx context.Context, in GuardInput) (value any, ok bool, err error)

// GuardInput is what a guard sees for one candidate route.
type GuardInput struct {
	// Path is the canonical path being resolved.
	Path string

	// Value is the decoded parameter value.
	Value any

	// Services holds everything provided by the candidate's layers.
	Services Services
}

// RouteContext is handed to a Handler when its route becomes live.
type RouteContext struct {
	// Path is the canonical path that first mounted the route.
	Path string

	// Params holds the current decoded (and guarded) parameter value.
	// It is updated in place when the same route matches again.
	Params *reactive.Signal[any]

	// Services holds everything provided by the route's layers.
	Services Services

	// Scope lives as long as the route stays live.
	Scope *scope.Scope
}

// ParamsStream emits the current parameter value and every later one.
func (rc *RouteContext) ParamsStream() stream.Stream[any] {
	return stream.FromSignal(rc.Params)
}

// LayoutContext is handed to a LayoutFunc when the layout mounts.
type LayoutContext struct {
	// Params holds the parameter value of the route currently inside the layout.
	Params *reactive.Signal[any]

	// Content holds the stream currently wrapped by the layout.
	Content *reactive.Signal[stream.Stream[Content]]

	// Scope lives as long as the layout stays active.
	Scope *scope.Scope
}

// Inner follows the wrapped content, switching whenever the route inside
// the layout changes.
func (lc *LayoutContext) Inner() stream.Stream[Content] {
	return stream.Switch(stream.FromSignal(lc.Content))
}

// Render emits fn of the current params and inner content whenever either
// changes, once the inner content has emitted.
func (lc *LayoutContext) Render(fn func(params any, inner Content) Content) stream.Stream[Content] {
	return stream.SkipRepeats(stream.Combine(stream.FromSignal(lc.Params), lc.Inner(), fn), nil)
}

// CatchContext is handed to a CatchFunc when the boundary mounts.
type CatchContext struct {
	// Cause holds the most recent failure caught by the boundary.
	Cause *reactive.Signal[error]

	// Params holds the parameter value of the route inside the boundary,
	// or nil while a resolution failure is shown.
	Params *reactive.Signal[any]

	// Scope lives as long as the boundary stays active.
	Scope *scope.Scope
}

// Causes emits every failure caught by the boundary, starting with the
// current one.
func (cc *CatchContext) Causes() stream.Stream[error] {
	return stream.Filter(stream.FromSignal(cc.Cause), func(err error) bool {
		return err != nil
	})
}

// LayoutDef is a layout definition. Its identity, not its function, decides
// whether two routes share one mounted layout.
type LayoutDef struct {
	name string
	fn   LayoutFunc
}

// NewLayout creates a layout definition that can be attached to several
// subtrees with Matcher.UseLayout.
func NewLayout(name string, fn LayoutFunc) *LayoutDef {
	return &LayoutDef{name: name, fn: fn}
}

// Name returns the layout's diagnostic name.
func (d *LayoutDef) Name() string { return d.name }

// CatchDef is a catch boundary definition, identified like LayoutDef.
type CatchDef struct {
	name string
	fn   CatchFunc
}

// NewCatch creates a catch boundary definition.
func NewCatch(name string, fn CatchFunc) *CatchDef {
	return &CatchDef{name: name, fn: fn}
}

// Name returns the boundary's diagnostic name.
func (d *CatchDef) Name() string { return d.name }
