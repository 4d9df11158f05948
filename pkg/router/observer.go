package router

import (
	"errors"
	"time"
)

// Outcome classifies a finished transition.
type Outcome string

const (
	OutcomeMounted      Outcome = "mounted"
	OutcomeUpdated      Outcome = "updated"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeDecodeFailed Outcome = "decode_failed"
	OutcomeRejected     Outcome = "rejected"
	OutcomeRedirected   Outcome = "redirected"
	OutcomeFailed       Outcome = "failed"
	OutcomeCancelled    Outcome = "cancelled"
)

// MountKind names what was mounted or unmounted.
type MountKind string

const (
	MountRoute  MountKind = "route"
	MountLayout MountKind = "layout"
	MountCatch  MountKind = "catch"
)

// TransitionEvent describes one finished transition.
type TransitionEvent struct {
	RunID    string
	Path     string
	Template string
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// Observer receives lifecycle events from a running router. Methods may be
// called from several goroutines and must not block.
type Observer interface {
	TransitionStarted(runID, path string)
	TransitionFinished(ev TransitionEvent)
	LayerBuilt(name string, d time.Duration, err error)
	LayerReleased(name string)
	Mounted(kind MountKind, name string)
	Unmounted(kind MountKind, name string)
	Caught(boundary string, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) TransitionStarted(string, string) {}
func (NopObserver) TransitionFinished(TransitionEvent) {}
func (NopObserver) LayerBuilt(string, time.Duration, error) {}
func (NopObserver) LayerReleased(string) {}
func (NopObserver) Mounted(MountKind, string) {}
func (NopObserver) Unmounted(MountKind, string) {}
func (NopObserver) Caught(string, error) {}

// outcomeOf classifies a resolution error.
func outcomeOf(err error) Outcome {
	var (
		notFound *NotFoundError
		decode   *DecodeError
		guard    *GuardError
		redirect *RedirectError
	)
	switch {
	case err == nil:
		return OutcomeMounted
	case errors.As(err, &notFound):
		return OutcomeNotFound
	case errors.As(err, &decode):
		return OutcomeDecodeFailed
	case errors.As(err, &guard):
		return OutcomeRejected
	case errors.As(err, &redirect):
		return OutcomeRedirected
	default:
		return OutcomeFailed
	}
}
