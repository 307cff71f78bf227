package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pixivdl/internal/deps"
	"pixivdl/internal/preflight"
	"pixivdl/internal/provider"
	"pixivdl/internal/staging"
	"pixivdl/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependency, and database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p := newStatusPrinter(cmd.OutOrStdout())

			p.section("Configuration")
			p.line("Config file", statusInfo, ctx.configPath)
			p.line("Cookie", cookieKind(cfg.Network.Cookie), yesNo(cfg.Network.Cookie != ""))
			codecs := strings.Join(cfg.Ugoira.Codecs(), ", ")
			if codecs == "" {
				codecs = "none"
			}
			p.line("Ugoira outputs", statusInfo, codecs)

			p.section("Preflight")
			for _, r := range preflight.RunAll(cmd.Context(), cfg) {
				p.line(r.Name, resultKind(r.Passed), r.Detail)
			}
			if !offline {
				r := preflight.CheckPixiv(cmd.Context(), provider.DefaultBaseURL, cfg.Network)
				p.line(r.Name, resultKind(r.Passed), r.Detail)
			}

			p.section("Dependencies")
			rows := make([][]string, 0, 1)
			for _, s := range preflight.CheckSystemDeps(cfg) {
				rows = append(rows, dependencyRow(s))
			}
			fmt.Fprintln(p.out, renderTable([]string{"Name", "Command", "Required", "Status"}, rows, nil))

			p.section("Database")
			st, err := store.Open(cfg)
			if err != nil {
				p.line("Database", statusError, err.Error())
				return nil
			}
			defer st.Close()
			stats, err := st.Stats(cmd.Context())
			if err != nil {
				p.line("Database", statusError, err.Error())
				return nil
			}
			p.line("Path", statusInfo, st.Path())
			p.line("Works", statusInfo, humanize.Comma(int64(stats.Images)))
			p.line("Manga pages", statusInfo, humanize.Comma(int64(stats.Pages)))
			p.line("Members", statusInfo, humanize.Comma(int64(stats.Members)))
			p.line("Tags", statusInfo, humanize.Comma(int64(stats.Tags)))

			if dirs, err := staging.ListDirectories(cfg.Paths.StagingDir); err == nil && len(dirs) > 0 {
				p.line("Leftover staging", statusWarn, fmt.Sprintf("%d directories in %s", len(dirs), cfg.Paths.StagingDir))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the pixiv reachability check")
	return cmd
}

func resultKind(passed bool) statusKind {
	if passed {
		return statusOK
	}
	return statusError
}

func cookieKind(cookie string) statusKind {
	if cookie == "" {
		return statusWarn
	}
	return statusOK
}

func dependencyRow(s deps.Status) []string {
	state := "available"
	if !s.Available {
		state = "missing"
		if s.Detail != "" {
			state = s.Detail
		}
	}
	return []string{s.Name, s.Command, yesNo(!s.Optional), state}
}
