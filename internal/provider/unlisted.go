package provider

import (
	"bytes"
	"context"
	"maps"
	"net/http"
	"slices"

	"github.com/PuerkitoBio/goquery"
	"github.com/segmentio/encoding/json"
)

type preloadData struct {
	Illust map[string]json.RawMessage `json:"illust"`
}

// fetchUnlisted reads the work payload embedded in the unlisted artwork page.
func (c *Client) fetchUnlisted(ctx context.Context, id string) (json.RawMessage, []byte, error) {
	page, status, err := c.get(ctx, "/artworks/unlisted/"+id, "")
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, page, serverError("request unlisted page", page, err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, page, unknownWork("unlisted work not found", page)
	case status >= 500:
		return nil, page, serverError("unlisted page unavailable", page, nil)
	}
	raw, err := parsePreload(page)
	if err != nil {
		return nil, page, err
	}
	return raw, page, nil
}

// parsePreload extracts the single work entry of meta#meta-preload-data.
func parsePreload(page []byte) (json.RawMessage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, otherError("parse unlisted page", page, err)
	}
	content, ok := doc.Find("meta#meta-preload-data").First().Attr("content")
	if !ok || content == "" {
		return nil, unknownWork("unlisted page has no preload data", page)
	}
	var data preloadData
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil, otherError("decode preload data", page, err)
	}
	keys := slices.Sorted(maps.Keys(data.Illust))
	if len(keys) == 0 {
		return nil, unknownWork("preload data has no work", page)
	}
	return data.Illust[keys[0]], nil
}
