package stream

import (
	"context"
	"errors"
	"fmt"
)

// Stream is a lazily subscribed push source of values of type T.
type Stream[T any] interface {
	// Run subscribes to the stream, calling emit for each value.
	// It returns nil on completion or cancellation and an error on failure.
	Run(ctx context.Context, emit func(T)) error
}

// Func adapts an ordinary function to a Stream.
type Func[T any] func(ctx context.Context, emit func(T)) error

// Run implements Stream.
func (f Func[T]) Run(ctx context.Context, emit func(T)) error {
	return f(ctx, emit)
}

// PanicError wraps a value recovered from a panicking stream.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("stream: panic: %v", e.Value)
}

// Of emits the given values and completes.
func Of[T any](values ...T) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T)) error {
		for _, v := range values {
			if ctx.Err() != nil {
				return nil
			}
			emit(v)
		}
		return nil
	})
}

// Hold emits the given values and then stays subscribed until cancelled.
func Hold[T any](values ...T) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T)) error {
		for _, v := range values {
			if ctx.Err() != nil {
				return nil
			}
			emit(v)
		}
		<-ctx.Done()
		return nil
	})
}

// Fail returns a stream that fails immediately with err.
func Fail[T any](err error) Stream[T] {
	return Func[T](func(context.Context, func(T)) error {
		return err
	})
}

// Never returns a stream that emits nothing and ends only when cancelled.
func Never[T any]() Stream[T] {
	return Func[T](func(ctx context.Context, _ func(T)) error {
		<-ctx.Done()
		return nil
	})
}

// Empty returns a stream that completes without emitting.
func Empty[T any]() Stream[T] {
	return Func[T](func(context.Context, func(T)) error {
		return nil
	})
}

// Suspend defers building a stream until it is subscribed. build runs once
// per subscription.
func Suspend[T any](build func(ctx context.Context) (Stream[T], error)) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T)) error {
		s, err := build(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		return s.Run(ctx, emit)
	})
}

// Run subscribes to s with panic recovery. A cancellation-caused
// context error is reported as nil.
func Run[T any](ctx context.Context, s Stream[T], emit func(T)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	if s == nil {
		return nil
	}
	err = s.Run(ctx, emit)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
