package stream

import (
	"context"
	"reflect"
)

// Map transforms every value of s with fn.
func Map[T, R any](s Stream[T], fn func(T) R) Stream[R] {
	return Func[R](func(ctx context.Context, emit func(R)) error {
		return s.Run(ctx, func(v T) {
			emit(fn(v))
		})
	})
}

// Filter forwards the values of s for which keep returns true.
func Filter[T any](s Stream[T], keep func(T) bool) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T)) error {
		return s.Run(ctx, func(v T) {
			if keep(v) {
				emit(v)
			}
		})
	})
}

// Tap calls fn with every value before forwarding it.
func Tap[T any](s Stream[T], fn func(T)) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T)) error {
		return s.Run(ctx, func(v T) {
			fn(v)
			emit(v)
		})
	})
}

// SkipRepeats drops values equal to the previously emitted value.
// A nil eq uses reflect.DeepEqual.
func SkipRepeats[T any](s Stream[T], eq func(a, b T) bool) Stream[T] {
	if eq == nil {
		eq = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}
	return Func[T](func(ctx context.Context, emit func(T)) error {
		var (
			last T
			seen bool
		)
		return s.Run(ctx, func(v T) {
			if seen && eq(last, v) {
				return
			}
			last, seen = v, true
			emit(v)
		})
	})
}

// CatchError runs s and, if it fails (or panics), continues with the
// stream returned by handler for the failure. Cancellation is not a
// failure and never reaches handler.
func CatchError[T any](s Stream[T], handler func(err error) Stream[T]) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T)) error {
		err := Run(ctx, s, emit)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		return Run(ctx, handler(err), emit)
	})
}

// OnDone calls fn with the result of every subscription to s once it
// returns.
func OnDone[T any](s Stream[T], fn func(err error)) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T)) error {
		err := Run(ctx, s, emit)
		fn(err)
		return err
	})
}
