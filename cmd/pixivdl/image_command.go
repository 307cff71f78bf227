package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pixivdl/internal/artwork"
	"pixivdl/internal/pipeline"
	"pixivdl/internal/services"
)

type imageOptions struct {
	unlisted        bool
	userDir         string
	minBookmarks    int
	extensionFilter string
	noBlacklist     bool
}

func newImageCommand(ctx *commandContext) *cobra.Command {
	var opts imageOptions

	cmd := &cobra.Command{
		Use:   "image <id>...",
		Short: "Download artworks by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, runCtx, err := ctx.startRun(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			var extFilter *string
			if cmd.Flags().Changed("extension-filter") {
				extFilter = &opts.extensionFilter
			}

			outcomes := make(map[artwork.Outcome]int)
			var runErr error
			for i, id := range args {
				id = strings.TrimSpace(id)
				req := pipeline.NewRequest(id)
				req.Unlisted = opts.unlisted
				req.UserDir = strings.TrimSpace(opts.userDir)
				req.MinBookmarks = opts.minBookmarks
				req.UseBlacklist = !opts.noBlacklist
				req.ExtensionFilter = extFilter
				if len(args) > 1 {
					req.TitlePrefix = fmt.Sprintf("[%d/%d]", i+1, len(args))
				}

				outcome, err := rt.processor.Process(runCtx, req)
				outcomes[outcome]++
				if err != nil && services.IsInterrupted(err) {
					runErr = err
					break
				}
				if i == len(args)-1 {
					break
				}
				if err := rt.processor.Wait(runCtx, outcome); err != nil {
					runErr = err
					break
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderOutcomes(outcomes))
			renderErrors(out, rt.errors.Entries())
			return rt.finish(runErr)
		},
	}

	cmd.Flags().BoolVar(&opts.unlisted, "unlisted", false, "Treat the ids as unlisted artwork ids")
	cmd.Flags().StringVar(&opts.userDir, "user-dir", "", "Download into this directory instead of root_directory")
	cmd.Flags().IntVar(&opts.minBookmarks, "min-bookmarks", -1, "Skip works with fewer bookmarks")
	cmd.Flags().StringVar(&opts.extensionFilter, "extension-filter", "", "Only keep files whose extension matches this regular expression")
	cmd.Flags().BoolVar(&opts.noBlacklist, "no-blacklist", false, "Ignore the member, tag, and title blacklists")
	return cmd
}
