package pipeline

import (
	"sync"

	"pixivdl/internal/filter"
	"pixivdl/internal/services"
	"pixivdl/internal/sidecar"
)

// Capabilities carries the run-scoped collaborators a Processor reads and
// updates. Blacklists and SuppressTags are read-only. Series is not safe for
// concurrent use; callers that process works concurrently must serialize it.
type Capabilities struct {
	Blacklists   *filter.Blacklists
	SuppressTags []string
	Series       *sidecar.SeriesSet
	Errors       *ErrorLog
	// SetTitle, when set, receives a short progress label per work.
	SetTitle func(string)
	// SkipDownload stops processing right before the download loop and
	// reports OutcomeOK. Used for dry runs.
	SkipDownload bool
}

// ErrorEntry is one failure recorded during a run.
type ErrorEntry struct {
	Type    string
	ID      string
	Message string
	Code    int
	Err     error
}

// ErrorLog collects per-work failures and remembers the last error code.
type ErrorLog struct {
	mu       sync.Mutex
	entries  []ErrorEntry
	lastCode int
}

// NewErrorLog returns an empty log.
func NewErrorLog() *ErrorLog {
	return &ErrorLog{}
}

// Record appends a failure. The entry code is derived from err when unset.
func (l *ErrorLog) Record(entry ErrorEntry) {
	if l == nil {
		return
	}
	if entry.Code == 0 {
		entry.Code = services.ErrorCode(entry.Err)
	}
	if entry.Message == "" && entry.Err != nil {
		entry.Message = entry.Err.Error()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	l.lastCode = entry.Code
}

// Entries returns a copy of the recorded failures.
func (l *ErrorLog) Entries() []ErrorEntry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ErrorEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// LastCode returns the code of the most recent failure, or 0.
func (l *ErrorLog) LastCode() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCode
}
