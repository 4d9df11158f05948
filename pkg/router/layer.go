package router

import (
	"context"

	"github.com/vango-dev/liveroute/pkg/scope"
)

// BuildFunc acquires the resources of a layer. deps holds the services of
// every layer listed before it. ctx is cancelled if the transition is
// superseded; work that outlives the build belongs to sc.Context(). sc is
// closed exactly once, when the layer retires or its attempt rolls back.
type BuildFunc func(ctx context.Context, sc *scope.Scope, deps Services) (Services, error)

// Layer is a unit of dependency provisioning. Layers compare by identity:
// the same *Layer listed by several routes is built once and shared while
// any of them is live.
type Layer struct {
	name  string
	build BuildFunc
}

// NewLayer creates a layer.
func NewLayer(name string, build BuildFunc) *Layer {
	return &Layer{name: name, build: build}
}

// ValueLayer creates a layer that provides a fixed value.
func ValueLayer[T any](key *Key[T], value T) *Layer {
	return NewLayer(key.name, func(_ context.Context, _ *scope.Scope, _ Services) (Services, error) {
		return Provide(Services{}, key, value), nil
	})
}

// Name returns the layer's diagnostic name.
func (l *Layer) Name() string {
	return l.name
}
