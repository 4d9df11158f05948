package router

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/liveroute/pkg/pattern"
)

// resolution is an accepted candidate whose layers are prepared but not yet
// committed.
type resolution struct {
	path    string
	entry   *Entry
	value   any
	attempt *layerAttempt
}

// evaluator resolves one location against the route tree.
type evaluator struct {
	tree   *routeTree
	layers *layerManager
	tracer trace.Tracer

	// teardown collects rollback failures; they never change the outcome.
	teardown []error

	// within holds the entries whose boundaries show a failed resolution:
	// the entry whose layers failed, or every candidate when none was
	// accepted. It is empty when no pattern matched.
	within []*Entry
}

// resolve tries every candidate for location in table order. The first
// candidate that decodes and whose guard accepts wins; its layer attempt is
// returned uncommitted. Declined candidates are rolled back before the next
// one is tried.
func (ev *evaluator) resolve(ctx context.Context, location string) (*resolution, error) {
	path, query, err := splitLocation(location)
	if err != nil {
		if path == "" {
			return nil, &NotFoundError{Path: location}
		}
		return nil, &DecodeError{Path: path, Cause: err}
	}

	candidates, ok := ev.tree.lookup(path)
	if !ok {
		return nil, &NotFoundError{Path: path}
	}

	var (
		causes     []error
		guardRan   bool
		lastDecode error
	)
	for _, c := range candidates {
		value, err := decode(c.Entry, pattern.Input{Path: c.Params, Query: query})
		if err != nil {
			lastDecode = err
			continue
		}

		attempt, err := ev.layers.prepare(ctx, c.Entry.Layers)
		if err != nil {
			ev.within = []*Entry{c.Entry}
			var failure *layerFailure
			if errors.As(err, &failure) {
				ev.note(failure.teardown)
				return nil, failure.cause
			}
			return nil, err
		}

		if c.Entry.Guard == nil {
			return &resolution{path: path, entry: c.Entry, value: value, attempt: attempt}, nil
		}

		guardRan = true
		accepted, ok, err := ev.runGuard(ctx, c.Entry, GuardInput{
			Path:     path,
			Value:    value,
			Services: attempt.services,
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			ev.note(attempt.rollback())
			return nil, ctxErr
		}
		if err != nil {
			ev.note(attempt.rollback())
			var redirect *RedirectError
			if errors.As(err, &redirect) {
				return nil, redirect
			}
			causes = append(causes, err)
			continue
		}
		if !ok {
			ev.note(attempt.rollback())
			causes = append(causes, &DeclineError{Route: c.Entry.Name})
			continue
		}

		if accepted == nil {
			accepted = value
		}
		return &resolution{path: path, entry: c.Entry, value: accepted, attempt: attempt}, nil
	}

	ev.within = make([]*Entry, len(candidates))
	for i, c := range candidates {
		ev.within[i] = c.Entry
	}
	if guardRan {
		return nil, &GuardError{Path: path, Causes: causes}
	}
	if lastDecode != nil {
		return nil, &DecodeError{Path: path, Cause: lastDecode}
	}
	return nil, &NotFoundError{Path: path}
}

// decode runs the entry's decoder. A panicking decoder counts as a decode
// failure of that entry.
func decode(e *Entry, in pattern.Input) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("router: decoder of %s panicked: %v", e.Name, r)
		}
	}()
	return e.Decoder.Decode(in)
}

func (ev *evaluator) runGuard(ctx context.Context, e *Entry, in GuardInput) (value any, ok bool, err error) {
	ctx, span := ev.tracer.Start(ctx, "liveroute.guard",
		trace.WithAttributes(
			attribute.String("liveroute.route", e.Name),
			attribute.Int("liveroute.entry", e.Index),
		),
	)
	defer func() {
		if r := recover(); r != nil {
			value, ok, err = nil, false, fmt.Errorf("router: guard of %s panicked: %v", e.Name, r)
		}
		span.SetAttributes(attribute.Bool("liveroute.accepted", ok && err == nil))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	return e.Guard(ctx, in)
}

func (ev *evaluator) note(err error) {
	if err != nil {
		ev.teardown = append(ev.teardown, err)
	}
}
