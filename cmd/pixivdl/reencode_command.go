package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pixivdl/internal/config"
	"pixivdl/internal/reencode"
)

func newReencodeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reencode [dir]",
		Short: "Re-encode downloaded ugoira bundles with the current codec settings",
		Long: "Scans dir (root_directory by default) for ugoira bundles and regenerates the\n" +
			"enabled animated outputs. Bundles that cannot be encoded locally are fetched again.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Ugoira.EncodingEnabled() {
				return errors.New("no ugoira output is enabled; set create_ugoira or a create_* codec in [ugoira]")
			}

			root := ""
			if len(args) == 1 {
				root, err = config.ExpandPath(args[0])
				if err != nil {
					return fmt.Errorf("resolve directory: %w", err)
				}
			}

			rt, runCtx, err := ctx.startRun(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			wf := reencode.NewWorkflow(cfg, rt.processor, rt.encoder, rt.logger)
			summary, runErr := wf.Run(runCtx, root)

			rows := [][]string{
				{"Bundles", fmt.Sprint(summary.Bundles)},
				{"Encoded locally", fmt.Sprint(summary.Local)},
				{"Fetched again", fmt.Sprint(summary.Online)},
				{"Restored files", fmt.Sprint(summary.Restored)},
				{"Backups kept", fmt.Sprint(summary.Backups)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Re-encode", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return rt.finish(runErr)
		},
	}
}
