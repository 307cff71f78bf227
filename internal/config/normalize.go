package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNetwork()
	c.normalizeFilters()
	c.normalizeFilenames()
	c.normalizeSidecar()
	c.normalizeUgoira()
	if err := c.normalizeTags(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RootDirectory) == "" {
		c.Paths.RootDirectory = defaultRootDirectory
	}
	if c.Paths.RootDirectory, err = expandPath(c.Paths.RootDirectory); err != nil {
		return fmt.Errorf("paths.root_directory: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if c.Paths.BlacklistMembersFile, err = expandPath(strings.TrimSpace(c.Paths.BlacklistMembersFile)); err != nil {
		return fmt.Errorf("paths.blacklist_members_file: %w", err)
	}
	if c.Paths.BlacklistTagsFile, err = expandPath(strings.TrimSpace(c.Paths.BlacklistTagsFile)); err != nil {
		return fmt.Errorf("paths.blacklist_tags_file: %w", err)
	}
	if c.Paths.BlacklistTitlesFile, err = expandPath(strings.TrimSpace(c.Paths.BlacklistTitlesFile)); err != nil {
		return fmt.Errorf("paths.blacklist_titles_file: %w", err)
	}
	if c.Paths.SuppressTagsFile, err = expandPath(strings.TrimSpace(c.Paths.SuppressTagsFile)); err != nil {
		return fmt.Errorf("paths.suppress_tags_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeNetwork() {
	c.Network.UserAgent = strings.TrimSpace(c.Network.UserAgent)
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = defaultUserAgent
	}
	c.Network.Cookie = strings.TrimSpace(c.Network.Cookie)
	if c.Network.Cookie == "" {
		if value, ok := os.LookupEnv("PIXIVDL_COOKIE"); ok {
			c.Network.Cookie = strings.TrimSpace(value)
		}
	}
	if c.Network.TimeoutSeconds == 0 {
		c.Network.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Network.DownloadDelaySeconds < 0 {
		c.Network.DownloadDelaySeconds = 0
	}
}

func (c *Config) normalizeFilters() {
	c.Filters.ExtensionFilter = strings.TrimSpace(c.Filters.ExtensionFilter)
}

func (c *Config) normalizeFilenames() {
	c.Filenames.Format = strings.TrimSpace(c.Filenames.Format)
	if c.Filenames.Format == "" {
		c.Filenames.Format = defaultFilenameFormat
	}
	c.Filenames.MangaFormat = strings.TrimSpace(c.Filenames.MangaFormat)
	if c.Filenames.MangaFormat == "" {
		c.Filenames.MangaFormat = c.Filenames.Format
	}
	// Info names fall back to the media templates.
	c.Filenames.InfoFormat = strings.TrimSpace(c.Filenames.InfoFormat)
	if c.Filenames.InfoFormat == "" {
		c.Filenames.InfoFormat = c.Filenames.Format
	}
	c.Filenames.MangaInfoFormat = strings.TrimSpace(c.Filenames.MangaInfoFormat)
	if c.Filenames.MangaInfoFormat == "" {
		c.Filenames.MangaInfoFormat = c.Filenames.MangaFormat
	}
	c.Filenames.SeriesJSON = strings.TrimSpace(c.Filenames.SeriesJSON)
	if c.Filenames.SeriesJSON == "" {
		c.Filenames.SeriesJSON = defaultSeriesJSONFormat
	}
}

func (c *Config) normalizeSidecar() {
	c.Sidecar.URLBlacklistRegex = strings.TrimSpace(c.Sidecar.URLBlacklistRegex)
	c.Sidecar.URLDumpFilename = strings.TrimSpace(c.Sidecar.URLDumpFilename)
	if c.Sidecar.URLDumpFilename == "" {
		c.Sidecar.URLDumpFilename = defaultURLDumpFilename
	}
	if len(c.Sidecar.RawJSONFilter) > 0 {
		keys := make([]string, 0, len(c.Sidecar.RawJSONFilter))
		seen := make(map[string]struct{}, len(c.Sidecar.RawJSONFilter))
		for _, key := range c.Sidecar.RawJSONFilter {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		c.Sidecar.RawJSONFilter = keys
	}
}

func (c *Config) normalizeUgoira() {
	c.Ugoira.FFmpeg = strings.TrimSpace(c.Ugoira.FFmpeg)
	if c.Ugoira.FFmpeg == "" {
		c.Ugoira.FFmpeg = "ffmpeg"
	}
	c.Ugoira.WebMCodec = strings.TrimSpace(c.Ugoira.WebMCodec)
	if c.Ugoira.WebMCodec == "" {
		c.Ugoira.WebMCodec = defaultWebMCodec
	}
	if c.Ugoira.WebPQuality <= 0 {
		c.Ugoira.WebPQuality = defaultWebPQuality
	}
}

func (c *Config) normalizeTags() error {
	if c.Tags.Limit < -1 {
		c.Tags.Limit = -1
	}
	locale := strings.TrimSpace(c.Tags.TranslationLocale)
	if locale == "" {
		c.Tags.TranslationLocale = defaultTagLocale
		return nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("tags.translation_locale: %w", err)
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	// pixiv keys translations by base language, except traditional Chinese.
	if base.String() == "zh" && conf != language.No && region.String() == "TW" {
		c.Tags.TranslationLocale = "zh_tw"
		return nil
	}
	c.Tags.TranslationLocale = base.String()
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
