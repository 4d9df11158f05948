package stream

import (
	"context"
	"sync"
)

// innerRun tracks one running inner subscription of Switch.
type innerRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Switch flattens a stream of streams, always following the latest one.
//
// When outer emits a new stream, the running inner subscription is
// cancelled and Switch waits for it to return before subscribing to the new
// one, so values of a superseded stream are never emitted after its
// successor starts. A failure of the outer or the current inner stream fails
// the whole Switch. Switch completes once outer has completed and the last
// inner stream has completed.
func Switch[T any](outer Stream[Stream[T]]) Stream[T] {
	return Func[T](func(parent context.Context, emit func(T)) error {
		ctx, cancel := context.WithCancel(parent)
		defer cancel()

		var (
			emitMu  sync.Mutex
			runMu   sync.Mutex
			current *innerRun

			failOnce sync.Once
			failure  error
		)

		fail := func(err error) {
			failOnce.Do(func() {
				failure = err
				cancel()
			})
		}

		stop := func() {
			if current == nil {
				return
			}
			current.cancel()
			<-current.done
			current = nil
		}

		err := Run(ctx, outer, func(next Stream[T]) {
			runMu.Lock()
			defer runMu.Unlock()

			stop()
			if ctx.Err() != nil {
				return
			}

			ictx, icancel := context.WithCancel(ctx)
			run := &innerRun{cancel: icancel, done: make(chan struct{})}
			current = run

			go func() {
				defer close(run.done)
				err := Run(ictx, next, func(v T) {
					emitMu.Lock()
					defer emitMu.Unlock()
					if ictx.Err() != nil {
						return
					}
					emit(v)
				})
				if err != nil && ictx.Err() == nil {
					fail(err)
				}
			}()
		})
		if err != nil && ctx.Err() == nil {
			fail(err)
		}

		runMu.Lock()
		if current != nil {
			<-current.done
			current = nil
		}
		runMu.Unlock()

		failOnce.Do(func() {})
		return failure
	})
}

// SwitchMap maps every value of s to a stream and follows the latest one.
func SwitchMap[T, R any](s Stream[T], fn func(T) Stream[R]) Stream[R] {
	return Switch(Map(s, fn))
}
