package main

import (
	"github.com/spf13/cobra"

	"pixivdl/internal/provider"
)

func newRootCommand(providerOptions ...provider.Option) *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)
	ctx.providerOptions = providerOptions

	rootCmd := &cobra.Command{
		Use:           "pixivdl",
		Short:         "Download pixiv artworks into a local library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newImageCommand(ctx))
	rootCmd.AddCommand(newSeriesCommand(ctx))
	rootCmd.AddCommand(newReencodeCommand(ctx))
	rootCmd.AddCommand(newDBCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))

	return rootCmd
}
