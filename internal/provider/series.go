package provider

import (
	"context"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"

	"pixivdl/internal/artwork"
)

// seriesPageSize is the number of works pixiv returns per series page.
const seriesPageSize = 12

type seriesBody struct {
	IllustSeries []struct {
		ID          string `json:"id"`
		UserID      string `json:"userId"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Total       int    `json:"total"`
	} `json:"illustSeries"`
	Users []struct {
		UserID  string `json:"userId"`
		Name    string `json:"name"`
		Account string `json:"account"`
		Image   string `json:"imageBig"`
	} `json:"users"`
	Page struct {
		Series []struct {
			WorkID string `json:"workId"`
			Order  int    `json:"order"`
		} `json:"series"`
	} `json:"page"`
}

// FetchSeries returns one page of a manga series listing. Pages start at 1.
func (c *Client) FetchSeries(ctx context.Context, seriesID string, page int) (*artwork.Series, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return nil, unknownWork("empty series id", nil)
	}
	page = max(page, 1)
	referer := c.baseURL + "/user/0/series/" + seriesID
	raw, rawPage, err := c.getJSON(ctx, "/ajax/series/"+seriesID+"?p="+strconv.Itoa(page), referer)
	if err != nil {
		return nil, err
	}
	var body seriesBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, otherError("decode series payload", rawPage, err)
	}

	series := &artwork.Series{ID: seriesID, CurrentPage: page, Raw: raw}
	for _, s := range body.IllustSeries {
		if s.ID != seriesID {
			continue
		}
		series.Title = s.Title
		series.Description = s.Description
		series.Total = s.Total
		for _, u := range body.Users {
			if u.UserID != s.UserID {
				continue
			}
			uid, err := strconv.ParseInt(u.UserID, 10, 64)
			if err == nil {
				series.Artist = &artwork.Artist{ID: uid, Name: u.Name, Token: u.Account, Avatar: u.Image}
			}
		}
	}
	for _, e := range body.Page.Series {
		series.Entries = append(series.Entries, artwork.SeriesEntry{WorkID: e.WorkID, Order: e.Order})
	}
	series.IsLastPage = len(series.Entries) < seriesPageSize ||
		(series.Total > 0 && page*seriesPageSize >= series.Total)
	return series, nil
}
