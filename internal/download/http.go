package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/fileutil"
	"pixivdl/internal/logging"
)

// PartSuffix is appended to files while they are being written.
const PartSuffix = ".pixivdl.part"

// sniffLen is the number of leading bytes inspected for the payload type.
const sniffLen = 3072

// permanentError marks a failure that retrying will not fix.
type permanentError struct {
	reason string
}

func (e *permanentError) Error() string { return e.reason }

// HTTPFetcher downloads files over HTTP.
type HTTPFetcher struct {
	client              *http.Client
	userAgent           string
	cookie              string
	retryWait           time.Duration
	alwaysCheckFileSize bool
	logger              *slog.Logger
	now                 func() time.Time
}

// NewHTTPFetcher builds a fetcher from the network and download settings in cfg.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Network.TimeoutSeconds) * time.Second
	return &HTTPFetcher{
		client:              &http.Client{Timeout: timeout},
		userAgent:           cfg.Network.UserAgent,
		cookie:              cfg.Network.Cookie,
		retryWait:           time.Duration(cfg.Network.RetryWaitSeconds) * time.Second,
		alwaysCheckFileSize: cfg.Download.AlwaysCheckFileSize,
		logger:              logging.NewComponentLogger(logger, "fetcher"),
		now:                 time.Now,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, req FetchRequest) (artwork.Outcome, string, error) {
	name := req.Filename
	logger := logging.WithContext(ctx, f.logger)

	localSize, exists := fileSize(name)
	if exists && !req.Overwrite && !f.alwaysCheckFileSize {
		logger.Debug("file exists, skipping", logging.String("filename", name))
		return artwork.OutcomeSkipDuplicate, name, nil
	}

	attempts := max(req.Retry, 0) + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, f.retryWait); err != nil {
				return artwork.OutcomeKeyboardInterrupt, name, err
			}
		}
		outcome, err := f.attempt(ctx, req, exists, localSize)
		if err == nil {
			return outcome, name, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return artwork.OutcomeKeyboardInterrupt, name, ctxErr
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			logger.Warn("download rejected",
				logging.String("url", req.URL),
				logging.String("reason", perm.reason),
				logging.String(logging.FieldEventType, "download_rejected"),
			)
			return artwork.OutcomeNotOK, name, nil
		}
		lastErr = err
		if attempt < attempts {
			logger.Warn("download attempt failed, retrying",
				logging.String("url", req.URL),
				logging.Int("attempt", attempt),
				logging.Int("attempts", attempts),
				logging.Error(err),
				logging.String(logging.FieldEventType, "download_retry"),
			)
		}
	}
	return artwork.OutcomeNotOK, name, &TransportError{URL: req.URL, Attempts: attempts, Err: lastErr}
}

func (f *HTTPFetcher) attempt(ctx context.Context, req FetchRequest, exists bool, localSize int64) (artwork.Outcome, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return artwork.OutcomeNotOK, &permanentError{reason: err.Error()}
	}
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}
	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}
	if f.cookie != "" {
		httpReq.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return artwork.OutcomeNotOK, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return artwork.OutcomeNotOK, fmt.Errorf("server returned %s", resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return artwork.OutcomeNotOK, &permanentError{reason: "server returned " + resp.Status}
	}

	remote := resp.ContentLength
	if exists && !req.Overwrite {
		switch {
		case remote <= 0 || localSize == remote:
			return artwork.OutcomeSkipDuplicate, nil
		case localSize > remote:
			f.logger.Info("local file is larger than remote",
				logging.String("filename", req.Filename),
				logging.String("local", humanize.IBytes(uint64(localSize))),
				logging.String("remote", humanize.IBytes(uint64(remote))),
			)
			return artwork.OutcomeSkipLocalLarger, nil
		}
		f.logger.Info("local file is smaller than remote, downloading again",
			logging.String("filename", req.Filename),
			logging.String("local", humanize.IBytes(uint64(localSize))),
			logging.String("remote", humanize.IBytes(uint64(remote))),
		)
	}

	if err := os.MkdirAll(filepath.Dir(req.Filename), 0o755); err != nil {
		return artwork.OutcomeNotOK, &permanentError{reason: "create target directory: " + err.Error()}
	}
	part := req.Filename + PartSuffix
	written, err := writePart(part, resp.Body, remote)
	if err != nil {
		_ = os.Remove(part)
		return artwork.OutcomeNotOK, err
	}

	if exists && req.BackupOldFile {
		backup := fileutil.BackupName(req.Filename, f.now())
		if err := fileutil.MoveFile(req.Filename, backup); err != nil {
			_ = os.Remove(part)
			return artwork.OutcomeNotOK, &permanentError{reason: "backup old file: " + err.Error()}
		}
		f.logger.Debug("old file backed up", logging.String("backup", backup))
	}
	if err := fileutil.MoveFile(part, req.Filename); err != nil {
		_ = os.Remove(part)
		return artwork.OutcomeNotOK, &permanentError{reason: "finalize download: " + err.Error()}
	}
	f.logger.Debug("download complete",
		logging.String("filename", req.Filename),
		logging.String("size", humanize.IBytes(uint64(written))),
	)
	return artwork.OutcomeOK, nil
}

// writePart streams body into path, rejecting HTML payloads and short reads.
func writePart(path string, body io.Reader, expected int64) (int64, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, err
	}
	head = head[:n]
	if mimetype.Detect(head).Is("text/html") {
		return 0, &permanentError{reason: "server returned an html page instead of media"}
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, &permanentError{reason: "create part file: " + err.Error()}
	}
	defer out.Close()

	if _, err := out.Write(head); err != nil {
		return 0, err
	}
	rest, err := io.Copy(out, body)
	if err != nil {
		return 0, err
	}
	written := int64(n) + rest
	if expected > 0 && written != expected {
		return written, fmt.Errorf("incomplete download: got %d of %d bytes", written, expected)
	}
	return written, out.Close()
}

func fileSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0, false
	}
	return info.Size(), true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
