package sidecar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/filename"
	"pixivdl/internal/fileutil"
	"pixivdl/internal/logging"
	"pixivdl/internal/services"
)

const stageSidecar = "sidecar"

// EmitInput is the download state side-cars are derived from.
type EmitInput struct {
	Dir string
	filename.Request
	// URLs are the URLs the download loop iterated, in order.
	URLs []string
	// LastFilename is the media path of the final iterated URL.
	LastFilename string
	// Series deduplicates series JSON across one run. Nil disables series JSON.
	Series *SeriesSet
}

// Emitter writes side-car files for a work.
type Emitter struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewEmitter constructs an emitter.
func NewEmitter(cfg *config.Config, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Emitter{cfg: cfg, logger: logging.NewComponentLogger(logger, "sidecar"), now: time.Now}
}

// Emit writes every enabled side-car and returns the written paths. A failed
// file is logged and does not stop the others; the joined errors are returned.
// Nothing is written when no URL was iterated.
func (e *Emitter) Emit(ctx context.Context, work *artwork.Work, in EmitInput) ([]string, error) {
	ctx = services.WithStage(services.WithWorkID(ctx, work.ID), stageSidecar)
	logger := logging.WithContext(ctx, e.logger)
	if len(in.URLs) == 0 {
		logger.Debug("no urls iterated, skipping side-cars")
		return nil, nil
	}

	w := &writer{logger: logger}
	cfg := e.cfg
	sc := cfg.Sidecar

	if sc.WriteImageXMPPerImage {
		for _, url := range in.URLs {
			for _, fileURL := range e.perImageURLs(work, url) {
				path := e.infoStem(work, in, fileURL, false) + ".xmp"
				w.write(path, func() ([]byte, error) { return e.xmp(work) })
			}
		}
	}

	last := in.URLs[len(in.URLs)-1]
	if sc.WriteImageInfo || sc.WriteImageJSON || sc.WriteImageXMP {
		stem := e.infoStem(work, in, last, work.Mode == artwork.ModeManga)
		if sc.WriteImageInfo {
			w.write(stem+".txt", func() ([]byte, error) { return renderInfo(work, cfg), nil })
		}
		if sc.WriteImageJSON {
			w.write(stem+".json", func() ([]byte, error) { return renderJSON(work, cfg) })
		}
		if sc.WriteImageXMP && !sc.WriteImageXMPPerImage {
			w.write(stem+".xmp", func() ([]byte, error) { return e.xmp(work) })
		}
	}

	if sc.IncludeSeriesJSON && work.Series != nil && in.Series != nil && !in.Series.Seen(work.Series.SeriesID) {
		name := filename.Render(cfg.Filenames.SeriesJSON, work, filename.Options{FileURL: last})
		if work.Mode == artwork.ModeManga {
			name = filename.StripPageSuffix(name)
		}
		path := filename.Sanitize(name+".json", in.Dir)
		if w.write(path, func() ([]byte, error) { return renderSeries(work) }) {
			in.Series.Add(work.Series.SeriesID)
		}
	}

	if work.Mode == artwork.ModeUgoira && sc.WriteUgoiraInfo && work.Ugoira != nil && in.LastFilename != "" {
		w.write(in.LastFilename+".js", func() ([]byte, error) { return renderUgoira(work.Ugoira) })
	}

	if sc.WriteURLInDescription {
		if path, n, err := DumpCaptionURLs(work, cfg, e.now()); err != nil {
			w.fail(path, err)
		} else if n > 0 {
			logger.Debug("caption urls dumped", logging.String("path", path), logging.Int("count", n))
		}
	}

	return w.written, errors.Join(w.errs...)
}

// perImageURLs returns the URLs an XMP packet is named after. Ugoira works get
// one per enabled codec plus the retained bundle formats.
func (e *Emitter) perImageURLs(work *artwork.Work, url string) []string {
	if work.Mode != artwork.ModeUgoira {
		return []string{url}
	}
	stem := strings.TrimSuffix(url, "."+artwork.URLExtension(url))
	exts := append([]string(nil), e.cfg.Ugoira.Codecs()...)
	if !e.cfg.Ugoira.DeleteZipFile {
		exts = append(exts, "zip")
	}
	if !e.cfg.Ugoira.DeleteUgoira {
		exts = append(exts, "ugoira")
	}
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		out = append(out, stem+"."+ext)
	}
	return out
}

// infoStem renders the info template for fileURL and returns the sanitized
// path without extension.
func (e *Emitter) infoStem(work *artwork.Work, in EmitInput, fileURL string, stripPage bool) string {
	const marker = ".infoext"
	name := filename.Render(filename.InfoTemplate(e.cfg, work.Mode), work, filename.OptionsFor(e.cfg, in.Request, fileURL, false))
	if stripPage {
		name = filename.StripPageSuffix(name)
	}
	return strings.TrimSuffix(filename.Sanitize(name+marker, in.Dir), marker)
}

func (e *Emitter) xmp(work *artwork.Work) ([]byte, error) {
	return renderXMP(work, e.cfg.Tags.UseTranslatedTag, e.cfg.Tags.TranslationLocale)
}

type writer struct {
	logger  *slog.Logger
	written []string
	errs    []error
}

func (w *writer) write(path string, render func() ([]byte, error)) bool {
	data, err := render()
	if err == nil {
		err = fileutil.WriteFileAtomic(path, data)
	}
	if err != nil {
		w.fail(path, err)
		return false
	}
	w.written = append(w.written, path)
	return true
}

func (w *writer) fail(path string, err error) {
	logging.WarnWithContext(w.logger, "side-car write failed", "sidecar_write_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions of the download directory"),
	)
	w.errs = append(w.errs, fmt.Errorf("write %s: %w", path, err))
}
