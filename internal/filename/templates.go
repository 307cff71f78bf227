package filename

import (
	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
)

// Request carries the per-call inputs that are not part of the configuration.
type Request struct {
	FromBookmark bool
	SearchTags   string
}

// OptionsFor builds render options from the tag settings in cfg.
func OptionsFor(cfg *config.Config, req Request, fileURL string, appendExt bool) Options {
	return Options{
		TagsSeparator:    cfg.Tags.Separator,
		TagsLimit:        cfg.Tags.Limit,
		FileURL:          fileURL,
		AppendExtension:  appendExt,
		FromBookmark:     req.FromBookmark,
		SearchTags:       req.SearchTags,
		UseTranslatedTag: cfg.Tags.UseTranslatedTag,
		TagLocale:        cfg.Tags.TranslationLocale,
	}
}

// MediaTemplate picks the media template for the work's mode.
func MediaTemplate(cfg *config.Config, mode artwork.Mode) string {
	if mode == artwork.ModeManga {
		return cfg.Filenames.MangaFormat
	}
	return cfg.Filenames.Format
}

// InfoTemplate picks the side-car template for the work's mode.
func InfoTemplate(cfg *config.Config, mode artwork.Mode) string {
	if mode == artwork.ModeManga {
		return firstNonEmpty(cfg.Filenames.MangaInfoFormat, cfg.Filenames.MangaFormat, cfg.Filenames.InfoFormat, cfg.Filenames.Format)
	}
	return firstNonEmpty(cfg.Filenames.InfoFormat, cfg.Filenames.Format)
}

// MediaPath renders, sanitizes and, for manga with create_manga_dir,
// splits the page marker into a directory for one candidate URL.
func MediaPath(cfg *config.Config, work *artwork.Work, req Request, fileURL, targetDir string) string {
	name := Render(MediaTemplate(cfg, work.Mode), work, OptionsFor(cfg, req, fileURL, true))
	path := Sanitize(name, targetDir)
	if work.Mode == artwork.ModeManga && cfg.Download.CreateMangaDir {
		path = RewriteMangaDir(path)
	}
	return path
}
