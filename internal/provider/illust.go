package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"

	"pixivdl/internal/artwork"
	"pixivdl/internal/logging"
)

const (
	illustTypeIllust = 0
	illustTypeManga  = 1
	illustTypeUgoira = 2
)

type illustTag struct {
	Tag         string            `json:"tag"`
	Romaji      string            `json:"romaji"`
	Translation map[string]string `json:"translation"`
}

type illustURLs struct {
	Original string `json:"original"`
	Regular  string `json:"regular"`
}

type illustBody struct {
	IllustID      string `json:"illustId"`
	IllustTitle   string `json:"illustTitle"`
	IllustComment string `json:"illustComment"`
	IllustType    int    `json:"illustType"`
	CreateDate    string `json:"createDate"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	UserAccount   string `json:"userAccount"`
	PageCount     int    `json:"pageCount"`
	BookmarkCount int    `json:"bookmarkCount"`
	AIType        int    `json:"aiType"`
	Tags          struct {
		Tags []illustTag `json:"tags"`
	} `json:"tags"`
	URLs                    illustURLs         `json:"urls"`
	SeriesNavData           *artwork.SeriesNav `json:"seriesNavData"`
	TitleCaptionTranslation struct {
		WorkTitle *string `json:"workTitle"`
	} `json:"titleCaptionTranslation"`
}

type pageEntry struct {
	URLs illustURLs `json:"urls"`
}

// Fetch implements the metadata provider contract.
func (c *Client) Fetch(ctx context.Context, req FetchRequest) (*artwork.Work, error) {
	id := strings.TrimSpace(req.WorkID)
	if id == "" {
		return nil, unknownWork("empty work id", nil)
	}
	referer := artwork.RefererFor(id, req.Unlisted)

	var (
		raw  json.RawMessage
		page []byte
		err  error
	)
	if req.Unlisted {
		raw, page, err = c.fetchUnlisted(ctx, id)
	} else {
		raw, page, err = c.getJSON(ctx, "/ajax/illust/"+id, referer)
	}
	if err != nil {
		return nil, err
	}

	var body illustBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, otherError("decode work payload", page, err)
	}
	work, err := body.toWork(id, req.Unlisted)
	if err != nil {
		return nil, otherError(err.Error(), page, nil)
	}
	work.Raw = raw

	apiPath := "/ajax/illust/" + id
	if req.Unlisted {
		apiPath = "/ajax/illust/unlisted/" + id
	}
	switch {
	case body.IllustType == illustTypeUgoira:
		if err := c.fillUgoira(ctx, work, apiPath, referer); err != nil {
			return nil, err
		}
	case work.PageCount > 1:
		if err := c.fillPages(ctx, work, apiPath, referer); err != nil {
			return nil, err
		}
	default:
		work.ImageURLs = nonEmpty(body.URLs.Original)
		work.ResizedURLs = nonEmpty(body.URLs.Regular)
	}

	applyRequest(work, req)
	c.logger.Debug("work metadata fetched",
		logging.String(logging.FieldWorkID, work.ID),
		logging.String("mode", string(work.Mode)),
		logging.Int("pages", work.PageCount),
	)
	return work, nil
}

func (b illustBody) toWork(id string, unlisted bool) (*artwork.Work, error) {
	work := &artwork.Work{
		ID:            firstNonEmpty(b.IllustID, id),
		Unlisted:      unlisted,
		Title:         b.IllustTitle,
		Caption:       b.IllustComment,
		AIType:        artwork.AIType(b.AIType),
		PageCount:     max(b.PageCount, 1),
		BookmarkCount: b.BookmarkCount,
		Series:        b.SeriesNavData,
		SeriesOrder:   -1,
		Created:       artwork.UnknownDate,
	}
	if unlisted {
		work.ID = id
	}
	if b.TitleCaptionTranslation.WorkTitle != nil {
		work.TranslatedTitle = *b.TitleCaptionTranslation.WorkTitle
	}
	if b.CreateDate != "" {
		if t, err := time.Parse(time.RFC3339, b.CreateDate); err == nil {
			work.Created = t
		}
	}
	switch {
	case b.IllustType == illustTypeUgoira:
		work.Mode = artwork.ModeUgoira
	case b.IllustType == illustTypeManga || work.PageCount > 1:
		work.Mode = artwork.ModeManga
	default:
		work.Mode = artwork.ModeIllustration
	}
	if b.UserID != "" {
		uid, err := strconv.ParseInt(b.UserID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", b.UserID)
		}
		work.Artist = &artwork.Artist{ID: uid, Name: b.UserName, Token: b.UserAccount}
	}
	for _, tag := range b.Tags.Tags {
		work.Tags = append(work.Tags, artwork.Tag{Name: tag.Tag, Romaji: tag.Romaji, Translations: tag.Translation})
	}
	return work, nil
}

func (c *Client) fillPages(ctx context.Context, work *artwork.Work, apiPath, referer string) error {
	raw, page, err := c.getJSON(ctx, apiPath+"/pages", referer)
	if err != nil {
		return err
	}
	var pages []pageEntry
	if err := json.Unmarshal(raw, &pages); err != nil {
		return otherError("decode pages", page, err)
	}
	for _, p := range pages {
		work.ImageURLs = append(work.ImageURLs, p.URLs.Original)
		work.ResizedURLs = append(work.ResizedURLs, p.URLs.Regular)
	}
	if len(pages) > 0 {
		work.PageCount = len(pages)
	}
	return nil
}

func (c *Client) fillUgoira(ctx context.Context, work *artwork.Work, apiPath, referer string) error {
	raw, page, err := c.getJSON(ctx, apiPath+"/ugoira_meta", referer)
	if err != nil {
		return err
	}
	var meta artwork.UgoiraMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return otherError("decode ugoira meta", page, err)
	}
	if len(meta.Frames) == 0 {
		return otherError("ugoira meta lists no frames", page, nil)
	}
	work.Ugoira = &meta
	work.ImageURLs = nonEmpty(firstNonEmpty(meta.OriginalSrc, meta.Src))
	work.ResizedURLs = nonEmpty(meta.Src)
	return nil
}

// applyRequest folds the caller's context into the fetched work.
func applyRequest(work *artwork.Work, req FetchRequest) {
	if req.Parent != nil {
		parent := *req.Parent
		if work.Artist != nil && work.Artist.ID != parent.ID {
			work.OriginalArtist = work.Artist
		}
		work.Artist = &parent
	}
	if req.BookmarkCount > 0 {
		work.BookmarkCount = req.BookmarkCount
	}
	if req.SeriesParent != nil || req.SeriesOrder > 0 {
		work.SeriesOrder = req.SeriesOrder
	}
	if s := req.SeriesParent; s != nil && work.Series == nil {
		work.Series = &artwork.SeriesNav{SeriesType: "manga", SeriesID: s.ID, Title: s.Title, Order: req.SeriesOrder}
	}
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
