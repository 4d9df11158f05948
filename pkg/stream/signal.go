package stream

import (
	"context"

	"github.com/vango-dev/liveroute/pkg/reactive"
)

// FromSignal emits the current value of sig and then every later change
// until cancelled. Changes that happen faster than they are consumed are
// coalesced: only the latest value is emitted.
func FromSignal[T any](sig *reactive.Signal[T]) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T)) error {
		notify := make(chan struct{}, 1)
		unsubscribe := sig.Subscribe(func() {
			select {
			case notify <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()

		value, version := sig.Snapshot()
		emit(value)

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-notify:
				next, nextVersion := sig.Snapshot()
				if nextVersion == version {
					continue
				}
				version = nextVersion
				if ctx.Err() != nil {
					return nil
				}
				emit(next)
			}
		}
	})
}
