package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and list-file configuration.
type Paths struct {
	RootDirectory        string `toml:"root_directory"`
	StagingDir           string `toml:"staging_dir"`
	LogDir               string `toml:"log_dir"`
	DatabasePath         string `toml:"database_path"`
	BlacklistMembersFile string `toml:"blacklist_members_file"`
	BlacklistTagsFile    string `toml:"blacklist_tags_file"`
	BlacklistTitlesFile  string `toml:"blacklist_titles_file"`
	SuppressTagsFile     string `toml:"suppress_tags_file"`
}

// Network contains HTTP client settings shared by the metadata provider and
// the image downloader.
type Network struct {
	UserAgent            string `toml:"user_agent"`
	Cookie               string `toml:"cookie"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	Retry                int    `toml:"retry"`
	RetryWaitSeconds     int    `toml:"retry_wait_seconds"`
	DownloadDelaySeconds int    `toml:"download_delay_seconds"`
}

// Filters contains the rules consulted before a work is downloaded.
type Filters struct {
	AIDisplayFewer          bool   `toml:"ai_display_fewer"`
	DateDiff                int    `toml:"date_diff"`
	R18Type                 int    `toml:"r18_type"`
	UseBlacklistMembers     bool   `toml:"use_blacklist_members"`
	UseBlacklistTags        bool   `toml:"use_blacklist_tags"`
	UseBlacklistTitles      bool   `toml:"use_blacklist_titles"`
	UseBlacklistTitlesRegex bool   `toml:"use_blacklist_titles_regex"`
	UseSuppressTags         bool   `toml:"use_suppress_tags"`
	ExtensionFilter         string `toml:"extension_filter"`
}

// Filenames contains output filename templates.
type Filenames struct {
	Format          string `toml:"format"`
	MangaFormat     string `toml:"manga_format"`
	InfoFormat      string `toml:"info_format"`
	MangaInfoFormat string `toml:"manga_info_format"`
	SeriesJSON      string `toml:"series_json"`
}

// Download contains overwrite and layout policy for media files.
type Download struct {
	Overwrite           bool `toml:"overwrite"`
	AlwaysCheckFileSize bool `toml:"always_check_file_size"`
	BackupOldFile       bool `toml:"backup_old_file"`
	DownloadResized     bool `toml:"download_resized"`
	CreateMangaDir      bool `toml:"create_manga_dir"`
}

// Sidecar contains toggles for auxiliary metadata files.
type Sidecar struct {
	WriteImageInfo        bool     `toml:"write_image_info"`
	WriteImageJSON        bool     `toml:"write_image_json"`
	WriteImageXMP         bool     `toml:"write_image_xmp"`
	WriteImageXMPPerImage bool     `toml:"write_image_xmp_per_image"`
	IncludeSeriesJSON     bool     `toml:"include_series_json"`
	WriteUgoiraInfo       bool     `toml:"write_ugoira_info"`
	WriteURLInDescription bool     `toml:"write_url_in_description"`
	URLBlacklistRegex     string   `toml:"url_blacklist_regex"`
	URLDumpFilename       string   `toml:"url_dump_filename"`
	RawJSONFilter         []string `toml:"raw_json_filter"`
}

// Ugoira contains animated bundle output settings.
type Ugoira struct {
	CreateUgoira  bool   `toml:"create_ugoira"`
	CreateGIF     bool   `toml:"create_gif"`
	CreateAPNG    bool   `toml:"create_apng"`
	CreateAVIF    bool   `toml:"create_avif"`
	CreateWebM    bool   `toml:"create_webm"`
	CreateWebP    bool   `toml:"create_webp"`
	CreateMKV     bool   `toml:"create_mkv"`
	DeleteZipFile bool   `toml:"delete_zip_file"`
	DeleteUgoira  bool   `toml:"delete_ugoira"`
	FFmpeg        string `toml:"ffmpeg"`
	WebMCodec     string `toml:"webm_codec"`
	WebPQuality   int    `toml:"webp_quality"`
}

// Tags contains tag rendering options for filenames and side-cars.
type Tags struct {
	Separator         string `toml:"separator"`
	Limit             int    `toml:"limit"`
	UseTranslatedTag  bool   `toml:"use_translated_tag"`
	TranslationLocale string `toml:"translation_locale"`
}

// Database contains bookkeeping toggles.
type Database struct {
	AutoAddTag     bool `toml:"auto_add_tag"`
	AutoAddMember  bool `toml:"auto_add_member"`
	AutoAddCaption bool `toml:"auto_add_caption"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for pixivdl.
//
// Configuration sections by subsystem:
//   - Paths: download root, staging, logs, database, and list files
//   - Network: user agent, cookie, timeouts, and retry policy
//   - Filters: AI, age, blacklist, R-18, and extension rules
//   - Filenames: templates for media, info side-cars, and series JSON
//   - Download: overwrite, size check, backup, and manga directory layout
//   - Sidecar: info/JSON/XMP/series/ugoira side-car toggles
//   - Ugoira: animated bundle codecs and bundle retention
//   - Tags: tag separator, limit, and translation locale
//   - Database: automatic tag/member/caption bookkeeping
//   - Logging: log format, level, and retention
//
// A loaded Config is treated as a read-only snapshot by the pipeline.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Network   Network   `toml:"network"`
	Filters   Filters   `toml:"filters"`
	Filenames Filenames `toml:"filenames"`
	Download  Download  `toml:"download"`
	Sidecar   Sidecar   `toml:"sidecar"`
	Ugoira    Ugoira    `toml:"ugoira"`
	Tags      Tags      `toml:"tags"`
	Database  Database  `toml:"database"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pixivdl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pixivdl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.RootDirectory, c.Paths.StagingDir, c.Paths.LogDir}
	if dbDir := filepath.Dir(c.Paths.DatabasePath); dbDir != "" {
		dirs = append(dirs, dbDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for ugoira encoding.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Ugoira.FFmpeg); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// LockPath returns the file used to keep two runs from sharing a database.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "pixivdl.lock")
}

// LogPath returns the run log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "pixivdl.log")
}

// EncodingEnabled reports whether any ugoira output (bundle or codec) is requested.
func (u Ugoira) EncodingEnabled() bool {
	return u.CreateUgoira || u.CreateGIF || u.CreateAPNG || u.CreateAVIF ||
		u.CreateWebM || u.CreateWebP || u.CreateMKV
}

// Codecs returns the enabled animated output formats in encoding order.
func (u Ugoira) Codecs() []string {
	var codecs []string
	for _, c := range []struct {
		enabled bool
		name    string
	}{
		{u.CreateGIF, "gif"},
		{u.CreateAPNG, "apng"},
		{u.CreateAVIF, "avif"},
		{u.CreateWebM, "webm"},
		{u.CreateWebP, "webp"},
		{u.CreateMKV, "mkv"},
	} {
		if c.enabled {
			codecs = append(codecs, c.name)
		}
	}
	return codecs
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
