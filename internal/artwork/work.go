package artwork

import (
	"encoding/json"
	"path"
	"strings"
	"time"
)

// Mode is the pixiv display mode of a work.
type Mode string

const (
	ModeIllustration Mode = "illustration"
	ModeManga        Mode = "manga"
	ModeUgoira       Mode = "ugoira_view"
)

// AIType is pixiv's AI-generation classification.
type AIType int

const (
	AIUnknown   AIType = 0
	AINotAI     AIType = 1
	AIGenerated AIType = 2
)

// UnknownDate marks a work whose creation time could not be determined.
var UnknownDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Artist describes the member that posted a work.
type Artist struct {
	ID         int64
	Token      string
	Name       string
	Avatar     string
	Background string
}

// Tag is a single pixiv tag with its romanization and per-locale translations.
type Tag struct {
	Name         string
	Romaji       string
	Translations map[string]string
}

// Translated returns the tag translation for locale, falling back to the
// original name.
func (t Tag) Translated(locale string) string {
	if locale == "" {
		return t.Name
	}
	if tr := strings.TrimSpace(t.Translations[locale]); tr != "" {
		return tr
	}
	return t.Name
}

// SeriesLink points at a neighbouring work of a series.
type SeriesLink struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// SeriesNav is the series navigation block attached to a work.
type SeriesNav struct {
	SeriesType string      `json:"seriesType"`
	SeriesID   string      `json:"seriesId"`
	Title      string      `json:"title"`
	Order      int         `json:"order"`
	Prev       *SeriesLink `json:"prev,omitempty"`
	Next       *SeriesLink `json:"next,omitempty"`
}

// UgoiraFrame is one frame of an animated bundle.
type UgoiraFrame struct {
	File  string `json:"file"`
	Delay int    `json:"delay"`
}

// UgoiraMeta is the frame manifest of an animated work.
type UgoiraMeta struct {
	Src         string        `json:"src"`
	OriginalSrc string        `json:"originalSrc"`
	MimeType    string        `json:"mime_type"`
	Frames      []UgoiraFrame `json:"frames"`
}

// Series is one page of a manga series listing.
type Series struct {
	ID          string
	Title       string
	Description string
	Artist      *Artist
	Total       int
	CurrentPage int
	IsLastPage  bool
	Entries     []SeriesEntry
	Raw         json.RawMessage
}

// SeriesEntry is a work id with its position inside a series.
type SeriesEntry struct {
	WorkID string
	Order  int
}

// Work is a snapshot of a single pixiv artwork.
type Work struct {
	ID              string
	Unlisted        bool
	Artist          *Artist
	OriginalArtist  *Artist
	Title           string
	TranslatedTitle string
	Tags            []Tag
	AIType          AIType
	Created         time.Time
	Mode            Mode
	PageCount       int
	BookmarkCount   int
	ImageURLs       []string
	ResizedURLs     []string
	Series          *SeriesNav
	SeriesOrder     int
	Caption         string
	Ugoira          *UgoiraMeta
	Raw             json.RawMessage
}

// HasKnownDate reports whether Created carries a real timestamp.
func (w *Work) HasKnownDate() bool {
	return !w.Created.IsZero() && !w.Created.Equal(UnknownDate)
}

// TagNames returns the tag names in order.
func (w *Work) TagNames() []string {
	names := make([]string, 0, len(w.Tags))
	for _, tag := range w.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// HasTag reports whether the work carries the exact tag name.
func (w *Work) HasTag(name string) bool {
	for _, tag := range w.Tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}

// HasTagFold is HasTag with case-insensitive comparison.
func (w *Work) HasTagFold(name string) bool {
	for _, tag := range w.Tags {
		if strings.EqualFold(tag.Name, name) {
			return true
		}
	}
	return false
}

// RemoveTag drops every tag with the exact name and reports whether any was removed.
func (w *Work) RemoveTag(name string) bool {
	kept := w.Tags[:0]
	removed := false
	for _, tag := range w.Tags {
		if tag.Name == name {
			removed = true
			continue
		}
		kept = append(kept, tag)
	}
	w.Tags = kept
	return removed
}

// MemberID returns the id used for member blacklisting: the original artist
// when known, else the posting artist. Empty when neither is known.
func (w *Work) MemberID() (int64, bool) {
	if w.OriginalArtist != nil {
		return w.OriginalArtist.ID, true
	}
	if w.Artist != nil {
		return w.Artist.ID, true
	}
	return 0, false
}

// CandidateURLs returns the resized set when requested, else the primary set.
func (w *Work) CandidateURLs(resized bool) []string {
	if resized && len(w.ResizedURLs) > 0 {
		return w.ResizedURLs
	}
	return w.ImageURLs
}

// Referer returns the artwork page URL used as the HTTP referer.
func (w *Work) Referer() string {
	return RefererFor(w.ID, w.Unlisted)
}

// RefererFor builds the artwork page URL for an id.
func RefererFor(id string, unlisted bool) string {
	if unlisted {
		return "https://www.pixiv.net/artworks/unlisted/" + id
	}
	return "https://www.pixiv.net/artworks/" + id
}

// Release drops the raw payload once the work no longer needs it.
func (w *Work) Release() {
	w.Raw = nil
}

// URLExtension returns the lowercase extension of a URL path without the dot.
func URLExtension(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := path.Ext(p)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// URLBase returns the final path element of a URL, without query.
func URLBase(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Base(p)
}
