package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/vango-dev/liveroute/pkg/navigation"
	"github.com/vango-dev/liveroute/pkg/reactive"
	"github.com/vango-dev/liveroute/pkg/router"
	"github.com/vango-dev/liveroute/pkg/stream"
)

// StepResult is the outcome of one replayed step.
type StepResult struct {
	Index    int
	Action   string
	Path     string
	Expect   string
	Got      string
	OK       bool
	Duration time.Duration
	Err      error
}

// Report is the outcome of a replay.
type Report struct {
	Name   string
	Steps  []StepResult
	Events []string

	// Err is the error the content stream ended with, if any.
	Err error
}

// Passed reports whether every step met its expectation and the stream
// did not fail.
func (r *Report) Passed() bool {
	if r.Err != nil {
		return false
	}
	for _, s := range r.Steps {
		if !s.OK {
			return false
		}
	}
	return true
}

// Replay runs the scenario's steps against a fresh router. Each step
// performs its action and then waits until the current content equals its
// expectation, the step timeout passes, or the content stream ends.
func (f *File) Replay(ctx context.Context, opts ...router.Option) (*Report, error) {
	journal := &Journal{}
	m, err := f.Matcher(journal)
	if err != nil {
		return nil, err
	}
	r, err := router.New(m, opts...)
	if err != nil {
		return nil, err
	}

	nav := navigation.New(f.Start)
	content := reactive.NewSignal("")
	changed := make(chan struct{}, 1)
	unsubscribe := content.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		runErr = stream.Run(ctx, r.Run(nav), func(c router.Content) {
			content.Set(fmt.Sprint(c))
		})
	}()

	report := &Report{Name: f.Name}
	for i, step := range f.Steps {
		start := time.Now()
		res := StepResult{Index: i, Action: step.Action(), Expect: step.Expect}

		if err := apply(nav, step); err != nil {
			res.Err = err
		} else if step.Expect != "" {
			res.Got, res.OK = waitFor(ctx, content, changed, done, step.Expect, f.Timeout())
		} else {
			res.Got, res.OK = content.Get(), true
		}
		res.Path = nav.Current()
		res.Duration = time.Since(start)
		report.Steps = append(report.Steps, res)

		if isDone(done) {
			break
		}
	}

	cancel()
	<-done
	report.Err = runErr
	report.Events = journal.Events()
	return report, nil
}

func apply(nav *navigation.Navigation, s Step) error {
	switch {
	case s.Navigate != "":
		return nav.Navigate(s.Navigate)
	case s.Redirect != "":
		return nav.Redirect(s.Redirect)
	case s.Back:
		if !nav.Back() {
			return fmt.Errorf("no history to go back to")
		}
	case s.Forward:
		if !nav.Forward() {
			return fmt.Errorf("no history to go forward to")
		}
	}
	return nil
}

func waitFor(ctx context.Context, content *reactive.Signal[string], changed <-chan struct{}, done <-chan struct{}, want string, timeout time.Duration) (string, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if got := content.Get(); got == want {
			return got, true
		}
		select {
		case <-changed:
		case <-done:
			got := content.Get()
			return got, got == want
		case <-timer.C:
			return content.Get(), false
		case <-ctx.Done():
			return content.Get(), false
		}
	}
}

func isDone(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
