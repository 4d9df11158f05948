package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/liveroute/internal/errors"
)

func (c *cli) explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe error codes",
		Long: `Explain prints the message, explanation and documentation link for an
error code. Without an argument it lists every registered code.

Examples:
  liveroute explain
  liveroute explain R003`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, code := range errors.GetAllCodes() {
					tmpl, _ := errors.GetTemplate(code)
					fmt.Fprintf(c.out, "  %s  %-10s %s\n", code, tmpl.Category, tmpl.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			if _, ok := errors.GetTemplate(code); !ok {
				return errors.Newf(errors.CategoryCLI, "Unknown error code %s", code).
					WithSuggestion("Run 'liveroute explain' to list every code")
			}
			fmt.Fprint(c.out, errors.New(code).Format())
			return nil
		},
	}
}
