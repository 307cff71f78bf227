package filename

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"pixivdl/internal/artwork"
)

// Options controls template rendering for one file.
type Options struct {
	TagsSeparator    string
	TagsLimit        int
	FileURL          string
	AppendExtension  bool
	FromBookmark     bool
	SearchTags       string
	UseTranslatedTag bool
	TagLocale        string
	// Now feeds %date%; zero means time.Now.
	Now time.Time
}

var (
	pageIndexRe = regexp.MustCompile(`_p(\d+)`)
	tokenRe     = regexp.MustCompile(`%[A-Za-z0-9_\-]+%`)
)

// Render expands every known token of template for work. Unknown tokens are kept verbatim.
func Render(template string, work *artwork.Work, opts Options) string {
	urlBase := artwork.URLBase(opts.FileURL)
	ext := artwork.URLExtension(opts.FileURL)
	urlStem := strings.TrimSuffix(urlBase, "."+extOf(urlBase))
	if opts.FileURL == "" {
		urlStem = ""
	}

	if work.Mode == artwork.ModeManga && !hasPageToken(template) {
		// Keep manga pages distinct even when the template has no page token.
		template += "_p%page_index%"
	}

	values := tokenValues(work, opts, urlStem)
	name := tokenRe.ReplaceAllStringFunc(template, func(token string) string {
		if v, ok := values[token]; ok {
			return escapeSeparators(v)
		}
		return token
	})

	if opts.AppendExtension && ext != "" {
		name += "." + extOf(urlBase)
	}
	return name
}

func hasPageToken(template string) bool {
	for _, token := range []string{"%urlFilename%", "%page_index%", "%page_number%", "%page_big%"} {
		if strings.Contains(template, token) {
			return true
		}
	}
	return false
}

func tokenValues(work *artwork.Work, opts Options, urlStem string) map[string]string {
	values := map[string]string{
		"%image_id%":         work.ID,
		"%title%":            work.Title,
		"%translated_title%": firstNonEmpty(work.TranslatedTitle, work.Title),
		"%tags%":             renderTags(work, opts),
		"%urlFilename%":      urlStem,
		"%searchTags%":       opts.SearchTags,
		"%bookmark_count%":   strconv.Itoa(work.BookmarkCount),
		"%page_count%":       strconv.Itoa(work.PageCount),
		"%bookmark%":         "",
		"%R-18%":             "",
		"%AI%":               "",
		"%page_big%":         "",
		"%page_index%":       "",
		"%page_number%":      "",
		"%works_date%":       "",
		"%works_date_only%":  "",
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	values["%date%"] = now.Format("20060102")

	if work.Artist != nil {
		values["%member_id%"] = strconv.FormatInt(work.Artist.ID, 10)
		values["%member_token%"] = work.Artist.Token
		values["%artist%"] = work.Artist.Name
	}
	original := work.OriginalArtist
	if original == nil {
		original = work.Artist
	}
	if original != nil {
		values["%original_member_id%"] = strconv.FormatInt(original.ID, 10)
		values["%original_member_token%"] = original.Token
		values["%original_artist%"] = original.Name
	}

	if opts.FromBookmark {
		values["%bookmark%"] = "[bookmark]"
	}
	if work.HasTagFold("R-18") || work.HasTagFold("R-18G") {
		values["%R-18%"] = "R-18"
	}
	if work.AIType == artwork.AIGenerated {
		values["%AI%"] = "AI"
	}
	if work.HasKnownDate() {
		values["%works_date%"] = work.Created.Format("2006-01-02 15-04")
		values["%works_date_only%"] = work.Created.Format("2006-01-02")
	}

	if work.Mode == artwork.ModeManga {
		if m := pageIndexRe.FindStringSubmatch(urlStem); m != nil {
			idx, _ := strconv.Atoi(m[1])
			values["%page_index%"] = strconv.Itoa(idx)
			values["%page_number%"] = strconv.Itoa(idx + 1)
			if strings.Contains(urlStem, "_big") {
				values["%page_big%"] = "big"
			}
		}
	}

	if work.Series != nil {
		values["%manga_series_id%"] = work.Series.SeriesID
		values["%manga_series_title%"] = work.Series.Title
		order := work.Series.Order
		if work.SeriesOrder > 0 {
			order = work.SeriesOrder
		}
		values["%manga_series_order%"] = strconv.Itoa(order)
	} else {
		values["%manga_series_id%"] = ""
		values["%manga_series_title%"] = ""
		values["%manga_series_order%"] = ""
	}
	return values
}

func renderTags(work *artwork.Work, opts Options) string {
	tags := work.Tags
	if opts.TagsLimit >= 0 && len(tags) > opts.TagsLimit {
		tags = tags[:opts.TagsLimit]
	}
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		if opts.UseTranslatedTag {
			names = append(names, tag.Translated(opts.TagLocale))
			continue
		}
		names = append(names, tag.Name)
	}
	sep := opts.TagsSeparator
	if sep == "" {
		sep = " "
	}
	return strings.Join(names, sep)
}

func escapeSeparators(v string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(v)
}

func extOf(base string) string {
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i+1:]
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
