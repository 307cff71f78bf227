package sidecar

import (
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
)

func renderInfo(work *artwork.Work, cfg *config.Config) []byte {
	var b strings.Builder
	line := func(key, value string) {
		fmt.Fprintf(&b, "%-14s= %s\n", key, value)
	}
	if work.Artist != nil {
		line("ArtistID", fmt.Sprint(work.Artist.ID))
		line("ArtistName", work.Artist.Name)
	}
	line("ImageID", work.ID)
	line("Title", work.Title)
	if work.TranslatedTitle != "" {
		line("TL-ed Title", work.TranslatedTitle)
	}
	line("Caption", work.Caption)
	line("Tags", strings.Join(tagStrings(work, cfg.Tags.UseTranslatedTag, cfg.Tags.TranslationLocale), cfg.Tags.Separator))
	line("Image Mode", string(work.Mode))
	line("Pages", fmt.Sprint(work.PageCount))
	if work.HasKnownDate() {
		line("Date", work.Created.Format(time.RFC3339))
	} else {
		line("Date", "")
	}
	line("Bookmarks", fmt.Sprint(work.BookmarkCount))
	line("AI Type", fmt.Sprint(int(work.AIType)))
	if work.Series != nil {
		line("Series", fmt.Sprintf("%s - %s (#%d)", work.Series.SeriesID, work.Series.Title, work.Series.Order))
	}
	line("Link", work.Referer())
	if work.Ugoira != nil {
		line("Ugoira Frames", fmt.Sprint(len(work.Ugoira.Frames)))
	}
	b.WriteString("\nURLs:\n")
	for _, u := range work.ImageURLs {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

type artistDocument struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Token      string `json:"token,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Background string `json:"background,omitempty"`
}

type infoDocument struct {
	ID              string              `json:"id"`
	Unlisted        bool                `json:"unlisted,omitempty"`
	Title           string              `json:"title"`
	TranslatedTitle string              `json:"translatedTitle,omitempty"`
	Caption         string              `json:"caption"`
	Tags            []string            `json:"tags"`
	Mode            artwork.Mode        `json:"mode"`
	PageCount       int                 `json:"pageCount"`
	BookmarkCount   int                 `json:"bookmarkCount"`
	AIType          int                 `json:"aiType"`
	Created         string              `json:"created,omitempty"`
	Link            string              `json:"link"`
	Artist          *artistDocument     `json:"artist,omitempty"`
	OriginalArtist  *artistDocument     `json:"originalArtist,omitempty"`
	URLs            []string            `json:"urls"`
	ResizedURLs     []string            `json:"resizedUrls,omitempty"`
	Series          *artwork.SeriesNav  `json:"series,omitempty"`
	Ugoira          *artwork.UgoiraMeta `json:"ugoira,omitempty"`
	Raw             map[string]any      `json:"raw,omitempty"`
}

func artistDoc(a *artwork.Artist) *artistDocument {
	if a == nil {
		return nil
	}
	return &artistDocument{ID: a.ID, Name: a.Name, Token: a.Token, Avatar: a.Avatar, Background: a.Background}
}

// renderJSON serializes the work. When the raw provider payload is still
// attached it is embedded with the configured keys removed.
func renderJSON(work *artwork.Work, cfg *config.Config) ([]byte, error) {
	doc := infoDocument{
		ID:              work.ID,
		Unlisted:        work.Unlisted,
		Title:           work.Title,
		TranslatedTitle: work.TranslatedTitle,
		Caption:         work.Caption,
		Tags:            tagStrings(work, cfg.Tags.UseTranslatedTag, cfg.Tags.TranslationLocale),
		Mode:            work.Mode,
		PageCount:       work.PageCount,
		BookmarkCount:   work.BookmarkCount,
		AIType:          int(work.AIType),
		Link:            work.Referer(),
		Artist:          artistDoc(work.Artist),
		OriginalArtist:  artistDoc(work.OriginalArtist),
		URLs:            work.ImageURLs,
		ResizedURLs:     work.ResizedURLs,
		Series:          work.Series,
		Ugoira:          work.Ugoira,
	}
	if work.HasKnownDate() {
		doc.Created = work.Created.Format(time.RFC3339)
	}
	if len(work.Raw) > 0 {
		raw := map[string]any{}
		if err := json.Unmarshal(work.Raw, &raw); err != nil {
			return nil, fmt.Errorf("decode raw payload: %w", err)
		}
		for _, key := range cfg.Sidecar.RawJSONFilter {
			delete(raw, key)
		}
		doc.Raw = raw
	}
	return json.MarshalIndent(doc, "", "  ")
}

type seriesDocument struct {
	SeriesID   string              `json:"seriesId"`
	SeriesType string              `json:"seriesType"`
	Title      string              `json:"title"`
	Artist     *artistDocument     `json:"artist,omitempty"`
	Works      []seriesWorkEntry   `json:"works"`
	Prev       *artwork.SeriesLink `json:"prev,omitempty"`
	Next       *artwork.SeriesLink `json:"next,omitempty"`
}

type seriesWorkEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

func renderSeries(work *artwork.Work) ([]byte, error) {
	nav := work.Series
	doc := seriesDocument{
		SeriesID:   nav.SeriesID,
		SeriesType: nav.SeriesType,
		Title:      nav.Title,
		Artist:     artistDoc(work.Artist),
		Works:      []seriesWorkEntry{{ID: work.ID, Title: work.Title, Order: nav.Order}},
		Prev:       nav.Prev,
		Next:       nav.Next,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func renderUgoira(meta *artwork.UgoiraMeta) ([]byte, error) {
	return json.Marshal(meta)
}
