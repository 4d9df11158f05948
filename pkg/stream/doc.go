// Package stream implements the small push-stream abstraction the router
// composes content with.
//
// A Stream is lazy: nothing happens until Run is called, and every call to
// Run is an independent subscription. Run pushes values to emit and blocks
// until the stream completes (returns nil), fails (returns an error) or its
// context is cancelled (returns nil). Cancellation is never reported as a
// failure.
//
// The combinators cover what route content needs:
//
//   - Switch and SwitchMap: latest wins; a new outer value cancels the
//     running inner subscription and waits for it before starting the next.
//   - SkipRepeats: drop values equal to the previous one.
//   - CatchError: substitute another stream when one fails.
//   - FromSignal: observe a reactive.Signal, coalescing bursts of changes.
//   - Merge and Combine: run several subscriptions together.
//
// Emission is serialized: no combinator calls emit concurrently, and a
// cancelled inner subscription never emits after Switch has moved on.
package stream
