package stream

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Merge subscribes to all streams at once and forwards every value. The
// first failure cancels the others and fails the merge.
func Merge[T any](streams ...Stream[T]) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T)) error {
		g, gctx := errgroup.WithContext(ctx)

		var mu sync.Mutex
		for _, s := range streams {
			g.Go(func() error {
				return Run(gctx, s, func(v T) {
					mu.Lock()
					defer mu.Unlock()
					if gctx.Err() != nil {
						return
					}
					emit(v)
				})
			})
		}

		if err := g.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
}

// Combine emits fn(a, b) with the latest values of both streams, starting
// once each has emitted at least once.
func Combine[A, B, R any](a Stream[A], b Stream[B], fn func(A, B) R) Stream[R] {
	return Func[R](func(ctx context.Context, emit func(R)) error {
		g, gctx := errgroup.WithContext(ctx)

		var (
			mu           sync.Mutex
			lastA        A
			lastB        B
			haveA, haveB bool
		)
		flush := func() {
			if haveA && haveB && gctx.Err() == nil {
				emit(fn(lastA, lastB))
			}
		}

		g.Go(func() error {
			return Run(gctx, a, func(v A) {
				mu.Lock()
				defer mu.Unlock()
				lastA, haveA = v, true
				flush()
			})
		})
		g.Go(func() error {
			return Run(gctx, b, func(v B) {
				mu.Lock()
				defer mu.Unlock()
				lastB, haveB = v, true
				flush()
			})
		})

		if err := g.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
}
