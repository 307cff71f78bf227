package reencode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/fileutil"
	"pixivdl/internal/logging"
	"pixivdl/internal/pipeline"
	"pixivdl/internal/services"
	"pixivdl/internal/staging"
	"pixivdl/internal/ugoira"
)

const stageReencode = "reencode"

// Processor re-runs the per-work pipeline.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (artwork.Outcome, error)
}

// Summary counts what a run did.
type Summary struct {
	Bundles  int
	Local    int
	Online   int
	Restored int
	Backups  int
}

// Workflow re-encodes local ugoira bundles.
type Workflow struct {
	cfg       *config.Config
	processor Processor
	encoder   pipeline.Encoder
	logger    *slog.Logger
	now       func() time.Time
}

// NewWorkflow constructs a workflow. processor handles the online fallback
// and encoder the local attempt.
func NewWorkflow(cfg *config.Config, processor Processor, encoder pipeline.Encoder, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workflow{
		cfg:       cfg,
		processor: processor,
		encoder:   encoder,
		logger:    logging.NewComponentLogger(logger, "reencode"),
		now:       time.Now,
	}
}

// Run processes every bundle under root, or under root_directory when root
// is empty. Online re-encodes write back into root so regenerated files
// replace the staged ones in place. Each work id is handled once. Interrupts
// and unexpected faults stop the run after the current bundle's staged files
// are restored.
func (w *Workflow) Run(ctx context.Context, root string) (Summary, error) {
	ctx = services.WithStage(ctx, stageReencode)
	logger := logging.WithContext(ctx, w.logger)
	var summary Summary

	if strings.TrimSpace(root) == "" {
		root = w.cfg.Paths.RootDirectory
	}
	userDir := ""
	if filepath.Clean(root) != filepath.Clean(w.cfg.Paths.RootDirectory) {
		userDir = root
	}
	bundles, err := Scan(root)
	if err != nil {
		return summary, fmt.Errorf("scan %s: %w", root, err)
	}

	done := make(map[string]bool)
	for _, b := range bundles {
		if done[b.WorkID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, services.Interrupted(stageReencode, err)
		}
		summary.Bundles++
		logger.Info("re-encoding ugoira",
			logging.Int("index", summary.Bundles),
			logging.String("bundle", b.Path),
			logging.String(logging.FieldWorkID, b.WorkID),
		)
		if err := w.handle(ctx, b, userDir, &summary); err != nil {
			return summary, err
		}
		done[b.WorkID] = true
	}

	if summary.Bundles == 0 {
		logger.Info("no zip or ugoira bundles found to re-encode", logging.String("root", root))
	}
	return summary, nil
}

func (w *Workflow) handle(ctx context.Context, b Bundle, userDir string, summary *Summary) error {
	ctx = services.WithWorkID(ctx, b.WorkID)
	logger := logging.WithContext(ctx, w.logger)

	stage, err := staging.New(w.cfg.Paths.StagingDir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageReencode, "create staging", b.WorkID, err)
	}
	defer func() {
		if cerr := stage.Close(); cerr != nil {
			logger.Warn("failed to remove staging directory",
				logging.String("path", stage.Path()),
				logging.Error(cerr),
			)
		}
	}()

	restored := false
	restore := func(reason string) {
		if restored {
			return
		}
		restored = true
		paths, rerr := stage.Restore()
		summary.Restored += len(paths)
		if rerr != nil {
			logging.ErrorWithContext(logger, "failed to restore staged files", "reencode_restore_failed",
				logging.String("reason", reason),
				logging.String("staging", stage.Path()),
				logging.Error(rerr),
				logging.String(logging.FieldErrorHint, "recover the files from the staging directory manually"),
			)
			return
		}
		logger.Info("restored staged files",
			logging.String("reason", reason),
			logging.Int("files", len(paths)),
		)
	}
	defer func() {
		if r := recover(); r != nil {
			restore("panic")
			panic(r)
		}
	}()

	if err := w.stageSiblings(logger, stage, b); err != nil {
		restore("staging failed")
		return err
	}

	localFailed := false
	if b.Ext == ugoira.ExtUgoira && !w.cfg.Download.Overwrite {
		if err := w.encoder.Encode(ctx, nil, b.Path); err != nil {
			if services.IsInterrupted(err) {
				restore("interrupted")
				return err
			}
			localFailed = true
			logging.WarnWithContext(logger, "local re-encode failed, retrying with online metadata", "reencode_local_failed",
				logging.String("bundle", b.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the local bundle is discarded and fetched again"),
			)
			if rmErr := os.Remove(b.Path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logger.Warn("failed to remove corrupted bundle", logging.String("bundle", b.Path), logging.Error(rmErr))
			}
		} else {
			summary.Local++
		}
	}

	if b.Ext == ugoira.ExtZip || localFailed || (b.Ext == ugoira.ExtUgoira && w.cfg.Download.Overwrite) {
		req := pipeline.NewRequest(b.WorkID)
		req.UserDir = userDir
		req.UseBlacklist = false
		req.Reencoding = true
		outcome, err := w.processor.Process(ctx, req)
		if err != nil {
			if services.IsInterrupted(err) {
				restore("interrupted")
			} else {
				restore("processing failed")
			}
			return err
		}
		summary.Online++
		if outcome == artwork.OutcomeNotOK {
			logging.WarnWithContext(logger, "cannot process work, restoring previous animated files", "reencode_online_failed",
				logging.String(logging.FieldOutcome, string(outcome)),
				logging.String(logging.FieldImpact, "previous outputs kept"),
			)
			restore("not_ok")
		}
	}

	w.keepOrphans(logger, stage, summary)
	return nil
}

// stageSiblings copies the bundles and moves the enabled codec outputs that
// share the bundle's base name into stage.
func (w *Workflow) stageSiblings(logger *slog.Logger, stage *staging.Dir, b Bundle) error {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", b.Dir, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.Contains(entry.Name(), b.Name) {
			continue
		}
		path := filepath.Join(b.Dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch {
		case ugoira.IsBundle(path):
			if _, err := stage.Copy(path); err != nil {
				return err
			}
		case w.codecEnabled(ext):
			if _, err := stage.Move(path); err != nil {
				return err
			}
		default:
			continue
		}
		logger.Debug("staged file", logging.String("path", path))
	}
	return nil
}

func (w *Workflow) codecEnabled(ext string) bool {
	for _, codec := range w.cfg.Ugoira.Codecs() {
		if ugoira.OutputExtension(codec) == ext {
			return true
		}
	}
	return false
}

// retained reports whether a staged file type is still produced under the
// current configuration and therefore worth a backup.
func (w *Workflow) retained(ext string) bool {
	ug := w.cfg.Ugoira
	switch ext {
	case ugoira.ExtUgoira:
		return ug.CreateUgoira && !ug.DeleteUgoira
	case ugoira.ExtZip:
		return !ug.DeleteZipFile
	default:
		return w.codecEnabled(ext)
	}
}

// keepOrphans moves staged files that were not regenerated back next to the
// bundle under a timestamped name.
func (w *Workflow) keepOrphans(logger *slog.Logger, stage *staging.Dir, summary *Summary) {
	if !w.cfg.Download.BackupOldFile {
		return
	}
	ts := w.now()
	for _, entry := range stage.Entries() {
		if _, err := os.Stat(entry.Staged); err != nil {
			continue
		}
		if _, err := os.Stat(entry.Original); err == nil {
			continue
		}
		name := filepath.Base(entry.Original)
		if !w.retained(strings.ToLower(filepath.Ext(name))) {
			continue
		}
		backup := filepath.Join(filepath.Dir(entry.Original), fileutil.BackupName(name, ts))
		if err := fileutil.MoveFile(entry.Staged, backup); err != nil {
			logger.Warn("failed to keep previous animated file",
				logging.String("path", entry.Staged),
				logging.Error(err),
			)
			continue
		}
		summary.Backups++
		logging.WarnWithContext(logger, "re-encoded file not found, previous version kept as backup", "reencode_orphan_backup",
			logging.String("original", name),
			logging.String("backup", backup),
			logging.String(logging.FieldErrorHint, "the new file may have another name or the artist may have changed their name"),
		)
	}
}
