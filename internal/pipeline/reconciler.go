package pipeline

import (
	"context"
	"log/slog"
	"sort"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/download"
	"pixivdl/internal/logging"
	"pixivdl/internal/services"
)

const stageReconcile = "reconcile"

// Reconciler records a completed work in the store.
type Reconciler struct {
	cfg    *config.Config
	store  Store
	logger *slog.Logger
}

// NewReconciler constructs a reconciler writing through store.
func NewReconciler(cfg *config.Config, store Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{cfg: cfg, store: store, logger: logging.NewComponentLogger(logger, "reconciler")}
}

// Reconcile persists work when result.Outcome left it fully on disk and
// returns the outcome the caller should report. Completion outcomes map to OutcomeOK;
// anything else is returned unchanged without touching the store.
//
// Each write is independent: a failure is logged and the next write still
// runs.
func (r *Reconciler) Reconcile(ctx context.Context, work *artwork.Work, result download.Result) artwork.Outcome {
	outcome := result.Outcome
	if !outcome.Completed() {
		return outcome
	}
	ctx = services.WithStage(services.WithWorkID(ctx, work.ID), stageReconcile)
	logger := logging.WithContext(ctx, r.logger)
	failed := 0
	check := func(op string, err error) {
		if err == nil {
			return
		}
		failed++
		logging.WarnWithContext(logger, "database write failed", "db_write_failed",
			logging.String("operation", op),
			logging.Error(err),
			logging.String(logging.FieldImpact, "bookkeeping for this work is incomplete"),
			logging.String(logging.FieldErrorHint, "the next run will retry; check the database file permissions"),
		)
	}

	caption := ""
	if r.cfg.Database.AutoAddCaption {
		caption = work.Caption
	}
	var memberID int64
	if work.Artist != nil {
		memberID = work.Artist.ID
	}
	check("insert_image", r.store.InsertImage(ctx, memberID, work.ID, work.Mode, caption))
	check("update_image", r.store.UpdateImage(ctx, work.ID, work.Title, result.LastFilename, work.Mode))

	if len(result.Files) > 0 {
		check("insert_manga_images", r.store.InsertMangaImages(ctx, result.Files))
	}

	if r.cfg.Database.AutoAddTag {
		for _, tag := range work.Tags {
			if tag.Name == "" {
				continue
			}
			check("insert_tag", r.store.InsertTag(ctx, tag.Name))
			check("link_tag", r.store.InsertImageToTag(ctx, work.ID, tag.Name))
			if tag.Romaji != "" {
				check("insert_tag_translation", r.store.InsertTagTranslation(ctx, tag.Name, "romaji", tag.Romaji))
			}
			locales := make([]string, 0, len(tag.Translations))
			for locale := range tag.Translations {
				locales = append(locales, locale)
			}
			sort.Strings(locales)
			for _, locale := range locales {
				check("insert_tag_translation", r.store.InsertTagTranslation(ctx, tag.Name, locale, tag.Translations[locale]))
			}
		}
	}

	if a := work.Artist; a != nil && r.cfg.Database.AutoAddMember && a.ID != 0 && a.Token != "" && a.Name != "" {
		check("insert_member", r.store.InsertNewMember(ctx, a.ID, a.Token))
		check("update_member", r.store.UpdateMemberName(ctx, a.ID, a.Name, a.Token))
	}

	logger.Debug("work reconciled",
		logging.String(logging.FieldOutcome, string(outcome)),
		logging.Int("pages", len(result.Files)),
		logging.Int("failed_writes", failed),
	)
	return artwork.OutcomeOK
}
