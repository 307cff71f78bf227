package preflight

import (
	"context"
	"path/filepath"

	"pixivdl/internal/config"
	"pixivdl/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the offline preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Download directory", cfg.Paths.RootDirectory),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Database directory", filepath.Dir(cfg.Paths.DatabasePath)),
	}

	if cfg.Ugoira.EncodingEnabled() {
		results = append(results, fromStatus(deps.CheckFFmpeg(cfg.FFmpegBinary(), true)))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func fromStatus(s deps.Status) Result {
	detail := s.Command
	if s.Detail != "" {
		detail = s.Detail
	}
	return Result{Name: s.Name, Passed: s.Available, Detail: detail}
}
