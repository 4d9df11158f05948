package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/liveroute/internal/devserver"
	"github.com/vango-dev/liveroute/internal/scenario"
	"github.com/vango-dev/liveroute/pkg/router"
)

func (c *cli) routesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes [scenario.yaml]",
		Short: "Print the compiled route table",
		Long: `Routes compiles a scenario's route tree and prints every route in
table order, with its wrappers and layers.

Examples:
  liveroute routes scenarios/shop.yaml
  liveroute routes --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return c.runRoutes(path, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")

	return cmd
}

func (c *cli) runRoutes(path string, asJSON bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	f, err := c.loadScenario(cfg, path)
	if err != nil {
		return err
	}
	m, err := f.Matcher(&scenario.Journal{})
	if err != nil {
		return err
	}
	table, err := router.Compile(m)
	if err != nil {
		return err
	}
	routes := devserver.Routes(table)

	if asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPATTERN\tNAME\tGUARD\tLAYOUTS\tCATCHES\tLAYERS")
	for _, r := range routes {
		guard := ""
		if r.Guarded {
			guard = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Index, r.Pattern, r.Name, guard,
			list(r.Layouts), list(r.Catches), list(r.Layers))
	}
	return w.Flush()
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
