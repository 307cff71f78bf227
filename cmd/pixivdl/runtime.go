package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"pixivdl/internal/config"
	"pixivdl/internal/download"
	"pixivdl/internal/filter"
	"pixivdl/internal/logging"
	"pixivdl/internal/pipeline"
	"pixivdl/internal/preflight"
	"pixivdl/internal/provider"
	"pixivdl/internal/services"
	"pixivdl/internal/sidecar"
	"pixivdl/internal/staging"
	"pixivdl/internal/store"
	"pixivdl/internal/ugoira"
)

// staleStagingAge is how old a leftover re-encode staging directory must be
// before startup removes it.
const staleStagingAge = 24 * time.Hour

// runtime bundles everything a download or re-encode run needs.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	encoder   *ugoira.Encoder
	processor *pipeline.Processor
	errors    *pipeline.ErrorLog
	sessionID string

	lock   *flock.Flock
	cancel context.CancelFunc
}

// startRun takes the run lock, sets up logging, and wires the pipeline. The
// returned context is cancelled on SIGINT/SIGTERM. Callers must Close the
// runtime.
func (c *commandContext) startRun(parent context.Context) (*runtime, context.Context, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("another pixivdl run holds %s", cfg.LockPath())
	}

	rt := &runtime{cfg: cfg, lock: lock, sessionID: uuid.NewString()}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	rt.cancel = cancel
	ctx = services.WithSessionID(ctx, rt.sessionID)

	if err := rt.open(ctx, c.providerOptions); err != nil {
		rt.Close()
		return nil, nil, err
	}
	return rt, ctx, nil
}

func (rt *runtime) open(ctx context.Context, providerOptions []provider.Option) error {
	cfg := rt.cfg
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	rt.logger = logger
	logging.WithContext(ctx, logger).Info("pixivdl run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("root_directory", cfg.Paths.RootDirectory),
		logging.String("database", cfg.Paths.DatabasePath),
	)

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "*.html"},
	)
	staging.CleanStale(ctx, cfg.Paths.StagingDir, staleStagingAge, logger)

	if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, f := range failed {
			details = append(details, fmt.Sprintf("%s: %s", f.Name, f.Detail))
		}
		return services.Wrap(services.ErrConfiguration, "preflight", "run checks",
			strings.Join(details, "; "), nil)
	}

	blacklists, suppress, err := filter.Load(cfg)
	if err != nil {
		return fmt.Errorf("load filter lists: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	rt.store = st
	rt.encoder = ugoira.NewEncoder(cfg, logger)
	rt.errors = pipeline.NewErrorLog()

	rt.processor = pipeline.NewProcessor(cfg, pipeline.Deps{
		Provider: provider.NewClient(cfg, logger, providerOptions...),
		Fetcher:  download.NewHTTPFetcher(cfg, logger),
		Encoder:  rt.encoder,
		Store:    st,
	}, pipeline.Capabilities{
		Blacklists:   blacklists,
		SuppressTags: suppress,
		Series:       sidecar.NewSeriesSet(),
		Errors:       rt.errors,
		SetTitle:     terminalTitle(os.Stdout),
	}, logger)
	return nil
}

// Close releases the database and the run lock.
func (rt *runtime) Close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil && rt.logger != nil {
			rt.logger.Warn("failed to close database", logging.Error(err))
		}
	}
	if rt.cancel != nil {
		rt.cancel()
	}
	if err := rt.lock.Unlock(); err != nil && rt.logger != nil {
		rt.logger.Warn("failed to release run lock", logging.Error(err))
	}
}

// finish turns recorded faults into the command's error.
func (rt *runtime) finish(err error) error {
	if err != nil {
		if services.IsInterrupted(err) || errors.Is(err, context.Canceled) {
			return context.Canceled
		}
		return err
	}
	entries := rt.errors.Entries()
	if len(entries) == 0 {
		return nil
	}
	return fmt.Errorf("%d work(s) failed (last error code %d)", len(entries), rt.errors.LastCode())
}

// terminalTitle returns a title setter that updates the terminal window
// title, or a no-op when out is not a terminal.
func terminalTitle(out *os.File) func(string) {
	fd := out.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil
	}
	return func(title string) {
		fmt.Fprintf(out, "\x1b]0;%s\x07", title)
	}
}
