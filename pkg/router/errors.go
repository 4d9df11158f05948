package router

import (
	"errors"
	"fmt"

	rerrors "github.com/vango-dev/liveroute/internal/errors"
)

var (
	// ErrAmbiguousRoute is returned by Compile when the same route node is
	// reachable twice under one final pattern.
	ErrAmbiguousRoute = errors.New("router: ambiguous route")

	// ErrGuardDeclined is recorded as the cause of a guard that declined.
	ErrGuardDeclined = errors.New("router: guard declined")

	// ErrTooManyRedirects fails a transition chain that keeps redirecting.
	ErrTooManyRedirects = errors.New("router: too many redirects")
)

// NotFoundError reports a path that matched no route.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("router: no route matches %s", e.Path)
}

// Code returns the registered error code.
func (e *NotFoundError) Code() string { return rerrors.CodeRouteNotFound }

// DecodeError reports that every candidate for a path failed to decode its
// parameters. Cause is the last decode failure.
type DecodeError struct {
	Path  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("router: cannot decode parameters for %s: %v", e.Path, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Code returns the registered error code.
func (e *DecodeError) Code() string { return rerrors.CodeRouteDecode }

// GuardError reports that no candidate's guard accepted a path. Causes
// holds one entry per declined or failed guard, in candidate order.
type GuardError struct {
	Path   string
	Causes []error
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("router: no guard accepted %s (%d rejected)", e.Path, len(e.Causes))
}

func (e *GuardError) Unwrap() []error { return e.Causes }

// Code returns the registered error code.
func (e *GuardError) Code() string { return rerrors.CodeRouteGuard }

// DeclineError records which route declined.
type DeclineError struct {
	Route string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("router: guard of %s declined", e.Route)
}

func (e *DeclineError) Unwrap() error { return ErrGuardDeclined }

// RedirectError asks the run loop to abandon the transition and navigate to
// Path instead. Guards and layer builds may return it.
type RedirectError struct {
	Path string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("router: redirect to %s", e.Path)
}

// Redirect returns a *RedirectError for path.
func Redirect(path string) error {
	return &RedirectError{Path: path}
}

// Code returns the registered error code for a router error, or "" if err
// carries none.
func Code(err error) string {
	var coded rerrors.Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	if errors.Is(err, ErrAmbiguousRoute) {
		return rerrors.CodeAmbiguousRoute
	}
	if errors.Is(err, ErrTooManyRedirects) {
		return rerrors.CodeRedirectLoop
	}
	return ""
}
