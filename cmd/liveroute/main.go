package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/liveroute/internal/config"
	"github.com/vango-dev/liveroute/internal/errors"
	"github.com/vango-dev/liveroute/internal/scenario"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// cli holds state shared by every command.
type cli struct {
	out        io.Writer
	configPath string
	noColor    bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	rootCmd := &cobra.Command{
		Use:   "liveroute",
		Short: "Explore and replay reactive route trees",
		Long: `liveroute runs declarative route scenarios against the reactive
router engine.

  • replay   run a scenario's navigation script and check its output
  • serve    explore a scenario interactively over WebSocket
  • routes   print the compiled route table
  • explain  describe an error code`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to liveroute.json (default: search from the working directory)")
	rootCmd.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if c.noColor {
			errors.DisableColors()
		}
	}

	rootCmd.AddCommand(
		c.replayCmd(),
		c.serveCmd(),
		c.routesCmd(),
		c.explainCmd(),
		c.versionCmd(),
	)
	return rootCmd
}

// loadConfig loads the configuration named by --config, or the nearest
// liveroute.json, or the defaults.
func (c *cli) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadScenario loads the scenario at path, falling back to the configured
// default.
func (c *cli) loadScenario(cfg *config.Config, path string) (*scenario.File, error) {
	if path == "" {
		path = cfg.ScenarioPath()
	}
	if path == "" {
		return nil, errors.New(errors.CodeInvalidScenario).
			WithDetail("No scenario given").
			WithSuggestion("Pass a scenario file or set \"scenario\" in " + config.ConfigFileName)
	}
	return scenario.Load(path)
}

// mark returns symbol in the given ANSI color unless colors are off.
func (c *cli) mark(code, symbol string) string {
	if c.noColor {
		return symbol
	}
	return code + symbol + "\033[0m"
}

// success prints a success message.
func (c *cli) success(format string, args ...any) {
	fmt.Fprintf(c.out, "%s %s\n", c.mark("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func (c *cli) info(format string, args ...any) {
	fmt.Fprintf(c.out, "  %s\n", fmt.Sprintf(format, args...))
}

// failure prints a failure message.
func (c *cli) failure(format string, args ...any) {
	fmt.Fprintf(c.out, "%s %s\n", c.mark("\033[31m", "✗"), fmt.Sprintf(format, args...))
}
