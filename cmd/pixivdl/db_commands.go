package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pixivdl/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect the download database",
	}
	dbCmd.AddCommand(newDBShowCommand(ctx))
	return dbCmd
}

func newDBShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the stored record of a work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			id := strings.TrimSpace(args[0])
			rec, err := st.Image(cmd.Context(), id)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("work %s is not in the database", id)
			}

			member := strconv.FormatInt(rec.MemberID, 10)
			if rec.MemberName != "" {
				member = fmt.Sprintf("%s (%d)", rec.MemberName, rec.MemberID)
			}
			fields := [][2]string{
				{"Work", rec.ImageID},
				{"Member", member},
				{"Title", rec.Title},
				{"Mode", rec.Mode},
				{"File", rec.SaveName},
				{"Added", rec.CreatedAt},
				{"Updated", rec.UpdatedAt},
			}
			if rec.Caption != "" {
				fields = append(fields, [2]string{"Caption", rec.Caption})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderFields("Work "+rec.ImageID, fields))

			if len(rec.Pages) > 0 {
				rows := make([][]string, 0, len(rec.Pages))
				for _, p := range rec.Pages {
					rows = append(rows, []string{strconv.Itoa(p.Page), p.SaveName})
				}
				fmt.Fprintln(out, renderTable([]string{"Page", "File"}, rows, []columnAlignment{alignRight, alignLeft}))
			}

			if len(rec.Tags) > 0 {
				rows := make([][]string, 0, len(rec.Tags))
				for _, tag := range rec.Tags {
					translations, err := st.TagTranslations(cmd.Context(), tag)
					if err != nil {
						return err
					}
					parts := make([]string, 0, len(translations))
					for _, kind := range slices.Sorted(maps.Keys(translations)) {
						parts = append(parts, kind+"="+translations[kind])
					}
					rows = append(rows, []string{tag, strings.Join(parts, ", ")})
				}
				fmt.Fprintln(out, renderTable([]string{"Tag", "Translations"}, rows, nil))
			}
			return nil
		},
	}
}
