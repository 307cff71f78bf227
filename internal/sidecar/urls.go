package sidecar

import (
	"path/filepath"
	"regexp"
	"time"

	"github.com/ncruces/go-strftime"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/fileutil"
)

var captionURLRe = regexp.MustCompile(`https?://[^\s"'<>]+`)

// CaptionURLs extracts the URLs of a caption, dropping those matching blacklist.
func CaptionURLs(caption string, blacklist *regexp.Regexp) []string {
	var out []string
	for _, u := range captionURLRe.FindAllString(caption, -1) {
		if blacklist != nil && blacklist.MatchString(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// DumpCaptionURLs appends the caption URLs of work to the dated dump file
// below the root directory. It returns the dump path and the number of URLs
// written.
func DumpCaptionURLs(work *artwork.Work, cfg *config.Config, now time.Time) (string, int, error) {
	path := strftime.Format(cfg.Sidecar.URLDumpFilename, now)
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Paths.RootDirectory, path)
	}
	var blacklist *regexp.Regexp
	if cfg.Sidecar.URLBlacklistRegex != "" {
		re, err := regexp.Compile(cfg.Sidecar.URLBlacklistRegex)
		if err != nil {
			return path, 0, err
		}
		blacklist = re
	}
	urls := CaptionURLs(work.Caption, blacklist)
	if err := fileutil.AppendLines(path, urls); err != nil {
		return path, 0, err
	}
	return path, len(urls), nil
}
