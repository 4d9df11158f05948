package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/liveroute/internal/errors"
	"github.com/vango-dev/liveroute/internal/scenario"
	"github.com/vango-dev/liveroute/pkg/router"
)

func (c *cli) replayCmd() *cobra.Command {
	var (
		asJSON  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "replay [scenario.yaml]",
		Short: "Replay a scenario's navigation script",
		Long: `Replay runs every step of a scenario against a fresh router and
checks that the content after each step matches its expectation.

Examples:
  liveroute replay scenarios/shop.yaml
  liveroute replay --json
  liveroute replay -v scenarios/shop.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return c.runReplay(cmd.Context(), path, asJSON, verbose)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print layer lifecycle events")

	return cmd
}

func (c *cli) runReplay(ctx context.Context, path string, asJSON, verbose bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	f, err := c.loadScenario(cfg, path)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := append(cfg.RouterOptions(), router.WithLogger(cfg.Logger(os.Stderr)))
	report, err := f.Replay(ctx, opts...)
	if err != nil {
		return err
	}

	if asJSON {
		c.printJSON(report)
	} else {
		c.printReport(report, verbose)
	}

	if !report.Passed() {
		return errors.New(errors.CodeInvalidScenario).
			WithPath(f.Path()).
			WithDetail(fmt.Sprintf("Scenario %q failed", f.Name))
	}
	return nil
}

func (c *cli) printReport(report *scenario.Report, verbose bool) {
	c.info("scenario %s", report.Name)
	for _, s := range report.Steps {
		switch {
		case s.Err != nil:
			c.failure("%-24s %v", s.Action, s.Err)
		case s.OK:
			c.success("%-24s %s", s.Action, s.Got)
		default:
			c.failure("%-24s got %q, want %q", s.Action, s.Got, s.Expect)
		}
	}
	if verbose {
		for _, ev := range report.Events {
			c.info("layer %s", ev)
		}
	}
	if report.Err != nil {
		c.failure("run ended: %s", errors.Describe(report.Err).FormatCompact())
	}
}

type jsonStep struct {
	Action   string `json:"action"`
	Path     string `json:"path"`
	Expect   string `json:"expect,omitempty"`
	Got      string `json:"got"`
	OK       bool   `json:"ok"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

type jsonReport struct {
	Name   string          `json:"name"`
	Passed bool            `json:"passed"`
	Steps  []jsonStep      `json:"steps"`
	Events []string        `json:"events"`
	Error  json.RawMessage `json:"error,omitempty"`
}

func (c *cli) printJSON(report *scenario.Report) {
	out := jsonReport{
		Name:   report.Name,
		Passed: report.Passed(),
		Events: report.Events,
	}
	for _, s := range report.Steps {
		step := jsonStep{
			Action:   s.Action,
			Path:     s.Path,
			Expect:   s.Expect,
			Got:      s.Got,
			OK:       s.OK,
			Duration: s.Duration.String(),
		}
		if s.Err != nil {
			step.Error = s.Err.Error()
		}
		out.Steps = append(out.Steps, step)
	}
	if report.Err != nil {
		out.Error = json.RawMessage(errors.Describe(report.Err).FormatJSON())
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
