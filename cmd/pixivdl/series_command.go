package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	var startPage, endPage int

	cmd := &cobra.Command{
		Use:   "series <id>",
		Short: "Download every work of a manga series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if startPage < 1 {
				return fmt.Errorf("--start must be at least 1 (got %d)", startPage)
			}
			if endPage > 0 && endPage < startPage {
				return fmt.Errorf("--end (%d) is before --start (%d)", endPage, startPage)
			}

			rt, runCtx, err := ctx.startRun(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, runErr := rt.processor.ProcessSeries(runCtx, strings.TrimSpace(args[0]), startPage, endPage)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Series %s: %d page(s), %d work(s)\n", args[0], summary.Pages, summary.Works)
			if len(summary.Outcomes) > 0 {
				fmt.Fprintln(out, renderOutcomes(summary.Outcomes))
			}
			renderErrors(out, rt.errors.Entries())
			return rt.finish(runErr)
		},
	}

	cmd.Flags().IntVar(&startPage, "start", 1, "First series page to process")
	cmd.Flags().IntVar(&endPage, "end", 0, "Last series page to process (0 for all)")
	return cmd
}
