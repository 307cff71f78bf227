package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/logging"
)

// DefaultBaseURL is the pixiv web origin.
const DefaultBaseURL = "https://www.pixiv.net"

// maxBody caps a metadata response.
const maxBody = 16 << 20

// FetchRequest identifies a work and the context it is fetched in.
type FetchRequest struct {
	WorkID string
	// Parent is the member being crawled, if any; it replaces the sparse
	// artist block of the work payload.
	Parent       *artwork.Artist
	FromBookmark bool
	// BookmarkCount, when positive, replaces the count reported by the work.
	BookmarkCount int
	// SeriesOrder is the position inside SeriesParent. Negative means no
	// order; it is ignored unless positive or a parent is given.
	SeriesOrder  int
	SeriesParent *artwork.Series
	Unlisted     bool
}

// Client talks to the pixiv web API.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	cookie    string
	logger    *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another origin.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a client from the network settings in cfg.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Client{
		http:      &http.Client{Timeout: time.Duration(cfg.Network.TimeoutSeconds) * time.Second},
		baseURL:   DefaultBaseURL,
		userAgent: cfg.Network.UserAgent,
		cookie:    cfg.Network.Cookie,
		logger:    logging.NewComponentLogger(logger, "provider"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"body"`
}

// get performs a GET and returns the body with its status code.
func (c *Client) get(ctx context.Context, path, referer string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// getJSON fetches an AJAX endpoint and returns the envelope body.
func (c *Client) getJSON(ctx context.Context, path, referer string) (json.RawMessage, []byte, error) {
	page, status, err := c.get(ctx, path, referer)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, page, serverError("request "+path, page, err)
	}
	var env envelope
	decodeErr := json.Unmarshal(page, &env)
	switch {
	case status == http.StatusNotFound:
		return nil, page, unknownWork(firstNonEmpty(env.Message, "work not found"), page)
	case status >= 500:
		return nil, page, serverError(fmt.Sprintf("server returned %d", status), page, nil)
	case decodeErr != nil:
		return nil, page, otherError("decode "+path, page, decodeErr)
	case env.Error:
		if status == http.StatusForbidden || status == http.StatusBadRequest {
			return nil, page, unknownWork(env.Message, page)
		}
		return nil, page, otherError(env.Message, page, nil)
	case status < 200 || status > 299:
		return nil, page, otherError(fmt.Sprintf("unexpected status %d", status), page, nil)
	}
	return env.Body, page, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
