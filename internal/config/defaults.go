package config

import "path/filepath"

const (
	defaultRootDirectory        = "~/pixiv"
	defaultStagingDir           = "~/.local/share/pixivdl/staging"
	defaultLogDir               = "~/.local/share/pixivdl/logs"
	defaultDatabasePath         = "~/.local/share/pixivdl/db.sqlite"
	defaultUserAgent            = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	defaultTimeoutSeconds       = 60
	defaultRetry                = 3
	defaultRetryWaitSeconds     = 5
	defaultDownloadDelaySeconds = 2
	defaultTagsSeparator        = ", "
	defaultTagLocale            = "en"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultURLDumpFilename      = "url_list_%Y%m%d.txt"
	defaultWebMCodec            = "libvpx-vp9"
	defaultWebPQuality          = 90
)

var (
	defaultFilenameFormat   = "%artist% (%member_id%)" + string(filepath.Separator) + "%urlFilename% - %title%"
	defaultSeriesJSONFormat = "%artist% (%member_id%)" + string(filepath.Separator) + "%manga_series_id% - %manga_series_title%"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RootDirectory: defaultRootDirectory,
			StagingDir:    defaultStagingDir,
			LogDir:        defaultLogDir,
			DatabasePath:  defaultDatabasePath,
		},
		Network: Network{
			UserAgent:            defaultUserAgent,
			TimeoutSeconds:       defaultTimeoutSeconds,
			Retry:                defaultRetry,
			RetryWaitSeconds:     defaultRetryWaitSeconds,
			DownloadDelaySeconds: defaultDownloadDelaySeconds,
		},
		Filenames: Filenames{
			Format:      defaultFilenameFormat,
			MangaFormat: defaultFilenameFormat,
			SeriesJSON:  defaultSeriesJSONFormat,
		},
		Download: Download{
			BackupOldFile: false,
		},
		Sidecar: Sidecar{
			URLDumpFilename: defaultURLDumpFilename,
		},
		Ugoira: Ugoira{
			FFmpeg:      "ffmpeg",
			WebMCodec:   defaultWebMCodec,
			WebPQuality: defaultWebPQuality,
		},
		Tags: Tags{
			Separator:         defaultTagsSeparator,
			Limit:             -1,
			TranslationLocale: defaultTagLocale,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
