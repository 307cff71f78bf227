package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/filename"
	"pixivdl/internal/logging"
	"pixivdl/internal/services"
)

const stageDownload = "download"

// FetchRequest describes one file to fetch.
type FetchRequest struct {
	URL           string
	Filename      string
	Referer       string
	Overwrite     bool
	Retry         int
	BackupOldFile bool
	Work          *artwork.Work
	Page          int
}

// Fetcher downloads a single URL. It returns the per-file outcome and the
// final filename. Transport failures are reported as *TransportError;
// cancellation returns OutcomeKeyboardInterrupt with the context error.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (artwork.Outcome, string, error)
}

// TransportError reports a URL that could not be fetched after all retries.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Target selects where and how a work is written.
type Target struct {
	Dir     string
	Referer string
	filename.Request
}

// Result is the aggregate state of one DownloadAll call.
type Result struct {
	Outcome      artwork.Outcome
	Files        []artwork.MangaFile
	LastFilename string
	// URLs lists every URL the loop iterated, including failed ones.
	URLs []string
}

// LastURL returns the final iterated URL, or "" when nothing was iterated.
func (r Result) LastURL() string {
	if len(r.URLs) == 0 {
		return ""
	}
	return r.URLs[len(r.URLs)-1]
}

// Orchestrator runs the per-URL download loop.
type Orchestrator struct {
	cfg     *config.Config
	fetcher Fetcher
	logger  *slog.Logger
}

// NewOrchestrator constructs an orchestrator around fetcher.
func NewOrchestrator(cfg *config.Config, fetcher Fetcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{cfg: cfg, fetcher: fetcher, logger: logging.NewComponentLogger(logger, "download")}
}

// DownloadAll fetches every candidate URL of work into target.Dir. The overall
// outcome is the outcome of the last URL. A work without URLs yields
// OutcomeNotOK and no files.
func (o *Orchestrator) DownloadAll(ctx context.Context, work *artwork.Work, target Target) (Result, error) {
	ctx = services.WithStage(services.WithWorkID(ctx, work.ID), stageDownload)
	logger := logging.WithContext(ctx, o.logger)

	urls := work.CandidateURLs(o.cfg.Download.DownloadResized)
	if len(urls) == 0 {
		logging.WarnWithContext(logger, "work has no image urls", "download_no_urls",
			logging.String(logging.FieldErrorHint, "the work may have been removed or restricted"),
			logging.String(logging.FieldImpact, "no files or side-cars written"),
		)
		return Result{Outcome: artwork.OutcomeNotOK}, nil
	}

	referer := target.Referer
	if referer == "" {
		referer = work.Referer()
	}

	result := Result{Outcome: artwork.OutcomeOK}
	page := 0
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			result.Outcome = artwork.OutcomeKeyboardInterrupt
			return result, services.Interrupted(stageDownload, err)
		}
		result.URLs = append(result.URLs, url)
		path := filename.MediaPath(o.cfg, work, target.Request, url, target.Dir)
		result.LastFilename = path
		logger.Debug("downloading image",
			logging.String("url", url),
			logging.String("filename", path),
			logging.Int("index", i+1),
			logging.Int("total", len(urls)),
		)

		result.Outcome = artwork.OutcomeNotOK
		outcome, final, err := o.fetcher.Fetch(ctx, FetchRequest{
			URL:           url,
			Filename:      path,
			Referer:       referer,
			Overwrite:     o.cfg.Download.Overwrite,
			Retry:         o.cfg.Network.Retry,
			BackupOldFile: o.cfg.Download.BackupOldFile,
			Work:          work,
			Page:          page,
		})
		if outcome == artwork.OutcomeKeyboardInterrupt || services.IsInterrupted(err) || ctx.Err() != nil {
			result.Outcome = artwork.OutcomeKeyboardInterrupt
			if err == nil {
				err = ctx.Err()
			}
			return result, services.Interrupted(stageDownload, err)
		}
		if err != nil {
			var transport *TransportError
			if !errors.As(err, &transport) {
				return result, services.Wrap(services.ErrTransient, stageDownload, "fetch", url, err)
			}
			logging.ErrorWithContext(logger, "giving up url", "download_transport_failed",
				logging.String("url", url),
				logging.Int("attempts", transport.Attempts),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check network connectivity or raise network.retry"),
			)
			continue
		}
		if final == "" {
			final = path
		}
		result.Outcome = outcome
		if outcome == artwork.OutcomeNotOK {
			logging.ErrorWithContext(logger, "image url not found or failed to download", "download_failed",
				logging.String("url", url),
				logging.String(logging.FieldImpact, "page missing from the local copy"),
			)
		} else {
			logger.Info("image saved",
				logging.String("filename", final),
				logging.String(logging.FieldOutcome, string(outcome)),
				logging.String("page", fmt.Sprintf("%d/%d", i+1, len(urls))),
			)
		}
		result.Files = append(result.Files, artwork.MangaFile{WorkID: work.ID, Page: page, Filename: final})
		result.LastFilename = final
		page++
	}
	return result, nil
}
