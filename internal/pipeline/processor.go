package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/download"
	"pixivdl/internal/filename"
	"pixivdl/internal/fileutil"
	"pixivdl/internal/filter"
	"pixivdl/internal/logging"
	"pixivdl/internal/provider"
	"pixivdl/internal/services"
	"pixivdl/internal/sidecar"
)

const stageProcess = "process"

// Deps are the collaborators a Processor is built from. Encoder may be nil,
// which disables ugoira encoding.
type Deps struct {
	Provider MetadataProvider
	Fetcher  download.Fetcher
	Encoder  Encoder
	Store    Store
}

// Processor runs the acquisition flow for single works.
type Processor struct {
	cfg          *config.Config
	provider     MetadataProvider
	store        Store
	encoder      Encoder
	orchestrator *download.Orchestrator
	emitter      *sidecar.Emitter
	reconciler   *Reconciler
	caps         Capabilities
	policy       filter.Policy
	logger       *slog.Logger
	sleep        func(context.Context, time.Duration) error
}

// NewProcessor wires a processor. caps is kept for the processor's lifetime.
func NewProcessor(cfg *config.Config, deps Deps, caps Capabilities, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if caps.Blacklists == nil {
		caps.Blacklists = filter.NewBlacklists(nil, nil, nil)
	}
	return &Processor{
		cfg:          cfg,
		provider:     deps.Provider,
		store:        deps.Store,
		encoder:      deps.Encoder,
		orchestrator: download.NewOrchestrator(cfg, deps.Fetcher, logger),
		emitter:      sidecar.NewEmitter(cfg, logger),
		reconciler:   NewReconciler(cfg, deps.Store, logger),
		caps:         caps,
		policy:       filter.PolicyFromConfig(cfg),
		logger:       logging.NewComponentLogger(logger, "pipeline"),
		sleep:        sleepContext,
	}
}

// Process acquires one work and reports its outcome. Skips and per-work
// failures come back as outcomes with a nil error. An interrupt returns
// OutcomeKeyboardInterrupt with an error matching context.Canceled; any other
// error is an unexpected fault that has already been logged and recorded.
func (p *Processor) Process(ctx context.Context, req Request) (outcome artwork.Outcome, err error) {
	ctx = services.WithStage(services.WithWorkID(ctx, req.WorkID), stageProcess)
	logger := logging.WithContext(ctx, p.logger)

	defer func() {
		if r := recover(); r != nil {
			outcome, err = p.fault(logger, req.WorkID, fmt.Errorf("panic: %v", r), debug.Stack())
		}
	}()

	if err := ctx.Err(); err != nil {
		return artwork.OutcomeKeyboardInterrupt, services.Interrupted(stageProcess, err)
	}
	logger.Info("processing work",
		logging.Bool("unlisted", req.Unlisted),
		logging.Bool("reencoding", req.Reencoding),
	)

	saveName, inDB, err := p.store.ImageSaveName(ctx, req.WorkID)
	if err != nil {
		return p.fail(ctx, logger, req.WorkID, err)
	}
	exists := inDB && p.store.FileExists(saveName)
	if inDB && !p.cfg.Download.AlwaysCheckFileSize && !p.cfg.Download.Overwrite && !req.Reencoding {
		logger.Info("work already downloaded", logging.Args(
			logging.DecisionAttrs("database", string(artwork.OutcomeSkipDuplicateNoWait), "recorded")...)...)
		return artwork.OutcomeSkipDuplicateNoWait, nil
	}

	work, err := p.provider.Fetch(ctx, req.fetchRequest())
	if err != nil {
		return p.fetchFailed(ctx, logger, req.WorkID, err)
	}
	defer work.Release()
	p.setTitle(req, work)

	verdict := filter.Evaluate(work, p.policy, p.caps.Blacklists, filter.Options{
		UseBlacklist:    req.UseBlacklist,
		MinBookmarks:    req.MinBookmarks,
		ExtensionFilter: req.ExtensionFilter,
	})
	result := download.Result{Outcome: verdict.Outcome}
	if !verdict.Admit {
		attrs := logging.DecisionAttrs("filter", string(verdict.Outcome), verdict.Reason)
		attrs = append(attrs, logging.String("detail", verdict.Detail))
		logger.Info("work skipped", logging.Args(attrs...)...)
	} else {
		if p.cfg.Filters.UseSuppressTags {
			if n := filter.SuppressTags(work, p.caps.SuppressTags); n > 0 {
				logger.Debug("suppressed tags", logging.Int("count", n))
			}
		}
		if p.caps.SkipDownload {
			logger.Info("download skipped", logging.String("reason", "skip_download"))
			return artwork.OutcomeOK, nil
		}
		result, err = p.acquire(ctx, logger, req, work)
		if err != nil {
			if services.IsInterrupted(err) {
				return artwork.OutcomeKeyboardInterrupt, err
			}
			return p.fail(ctx, logger, req.WorkID, err)
		}
	}

	if inDB && !exists && !result.Outcome.Completed() {
		logger.Info("recorded work is missing on disk",
			logging.String("save_name", saveName),
			logging.String(logging.FieldOutcome, string(artwork.OutcomeCheckDownload)),
		)
		result.Outcome = artwork.OutcomeCheckDownload
	}

	outcome = p.reconciler.Reconcile(ctx, work, result)
	logger.Info("work processed",
		logging.String(logging.FieldOutcome, string(outcome)),
		logging.Int("files", len(result.Files)),
	)
	return outcome, nil
}

// acquire runs the download loop, side-cars and ugoira encoding for an
// admitted work.
func (p *Processor) acquire(ctx context.Context, logger *slog.Logger, req Request, work *artwork.Work) (download.Result, error) {
	targetDir := req.UserDir
	if targetDir == "" {
		targetDir = p.cfg.Paths.RootDirectory
	}
	fr := filename.Request{FromBookmark: req.FromBookmark, SearchTags: req.SearchTags}

	result, err := p.orchestrator.DownloadAll(ctx, work, download.Target{
		Dir:     targetDir,
		Referer: work.Referer(),
		Request: fr,
	})
	if err != nil {
		return result, err
	}

	if _, err := p.emitter.Emit(ctx, work, sidecar.EmitInput{
		Dir:          targetDir,
		Request:      fr,
		URLs:         result.URLs,
		LastFilename: result.LastFilename,
		Series:       p.caps.Series,
	}); err != nil {
		logging.WarnWithContext(logger, "some side-cars were not written", "sidecar_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "media files are unaffected"),
		)
	}

	if p.shouldEncode(work, result.Outcome) {
		if err := p.encoder.Encode(ctx, work, result.LastFilename); err != nil {
			if services.IsInterrupted(err) {
				result.Outcome = artwork.OutcomeKeyboardInterrupt
				return result, err
			}
			logging.ErrorWithContext(logger, "ugoira encoding failed", "ugoira_encode_failed",
				logging.String("bundle", result.LastFilename),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the ffmpeg path and codec settings"),
			)
			result.Outcome = artwork.OutcomeNotOK
		}
	}
	return result, nil
}

func (p *Processor) shouldEncode(work *artwork.Work, outcome artwork.Outcome) bool {
	if p.encoder == nil || work.Mode != artwork.ModeUgoira {
		return false
	}
	if outcome != artwork.OutcomeOK && outcome != artwork.OutcomeSkipDuplicate {
		return false
	}
	return p.cfg.Ugoira.EncodingEnabled()
}

// fetchFailed converts a metadata failure into OutcomeNotOK. The provider's
// raw page, when present, is dumped next to the logs.
func (p *Processor) fetchFailed(ctx context.Context, logger *slog.Logger, workID string, err error) (artwork.Outcome, error) {
	if services.IsInterrupted(err) || ctx.Err() != nil {
		return artwork.OutcomeKeyboardInterrupt, services.Interrupted(stageProcess, err)
	}
	p.caps.Errors.Record(ErrorEntry{Type: "Image", ID: workID, Err: err})

	msg := "metadata fetch failed"
	attrs := []logging.Attr{
		logging.Error(err),
		logging.Int("error_code", services.ErrorCode(err)),
	}
	if fe, ok := provider.AsFetchError(err); ok {
		attrs = append(attrs, logging.String("error_kind", fe.Kind))
		switch fe.Kind {
		case provider.KindUnknownWork:
			msg = "work not found"
		case provider.KindServerError:
			msg = "giving up on work after server error"
		}
		if len(fe.Page) > 0 {
			if path, derr := p.dumpPage(workID, fe.Page); derr != nil {
				logger.Warn("failed to dump error page", logging.Error(derr))
			} else {
				attrs = append(attrs, logging.String("dump_path", path))
			}
		}
	}
	logging.ErrorWithContext(logger, msg, "metadata_fetch_failed", attrs...)
	return artwork.OutcomeNotOK, nil
}

func (p *Processor) dumpPage(workID string, page []byte) (string, error) {
	dir := p.cfg.Paths.LogDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("Error medium page for image %s.html", workID))
	if err := fileutil.WriteFileAtomic(path, page); err != nil {
		return "", err
	}
	return path, nil
}

// fail handles an unexpected error raised while processing a work.
func (p *Processor) fail(ctx context.Context, logger *slog.Logger, workID string, err error) (artwork.Outcome, error) {
	if services.IsInterrupted(err) || ctx.Err() != nil {
		return artwork.OutcomeKeyboardInterrupt, services.Interrupted(stageProcess, err)
	}
	return p.fault(logger, workID, err, debug.Stack())
}

func (p *Processor) fault(logger *slog.Logger, workID string, err error, stack []byte) (artwork.Outcome, error) {
	p.caps.Errors.Record(ErrorEntry{Type: "Image", ID: workID, Err: err})
	logging.ErrorWithContext(logger, "work processing failed", "work_failed",
		logging.Error(err),
		logging.Int("error_code", services.ErrorCode(err)),
		logging.String("stack", string(stack)),
	)
	return artwork.OutcomeNotOK, fmt.Errorf("process work %s: %w", workID, err)
}

func (p *Processor) setTitle(req Request, work *artwork.Work) {
	if p.caps.SetTitle == nil {
		return
	}
	switch {
	case req.TitlePrefix != "":
		p.caps.SetTitle(req.TitlePrefix + " ImageId: " + work.ID)
	case work.Artist != nil:
		p.caps.SetTitle("MemberId: " + strconv.FormatInt(work.Artist.ID, 10) + " ImageId: " + work.ID)
	default:
		p.caps.SetTitle("ImageId: " + work.ID)
	}
}
