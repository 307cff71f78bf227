package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"pixivdl/internal/fileutil"
)

// Prefix names every directory created by New.
const Prefix = "reencoding-"

// Dir is a scoped staging directory. Close removes it and is safe to call
// more than once.
type Dir struct {
	path   string
	staged []Entry
	closed bool
}

// Entry records one file placed into staging.
type Entry struct {
	// Original is the live path the file came from.
	Original string
	// Staged is the path inside the staging directory.
	Staged string
	// Moved is true when the live file was moved rather than copied.
	Moved bool
}

// New creates a fresh directory under root.
func New(root string) (*Dir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	path := filepath.Join(root, Prefix+uuid.NewString())
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory location.
func (d *Dir) Path() string { return d.path }

// Entries returns the files staged so far, in staging order.
func (d *Dir) Entries() []Entry {
	out := make([]Entry, len(d.staged))
	copy(out, d.staged)
	return out
}

// Copy places a copy of src in staging, leaving the live file untouched.
func (d *Dir) Copy(src string) (Entry, error) {
	dst := filepath.Join(d.path, filepath.Base(src))
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return Entry{}, fmt.Errorf("stage copy %s: %w", src, err)
	}
	entry := Entry{Original: src, Staged: dst}
	d.staged = append(d.staged, entry)
	return entry, nil
}

// Move relocates src into staging.
func (d *Dir) Move(src string) (Entry, error) {
	dst := filepath.Join(d.path, filepath.Base(src))
	if err := fileutil.MoveFile(src, dst); err != nil {
		return Entry{}, fmt.Errorf("stage move %s: %w", src, err)
	}
	entry := Entry{Original: src, Staged: dst, Moved: true}
	d.staged = append(d.staged, entry)
	return entry, nil
}

// Restore moves every staged entry back to its original location, replacing
// whatever is there now, so copied bundles roll back to their staged content
// too. It returns the restored live paths and the first error seen.
func (d *Dir) Restore() ([]string, error) {
	var (
		restored []string
		firstErr error
	)
	for _, entry := range d.staged {
		if _, err := os.Stat(entry.Staged); err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(entry.Original), 0o755); err != nil && firstErr == nil {
			firstErr = err
			continue
		}
		if err := fileutil.MoveFile(entry.Staged, entry.Original); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("restore %s: %w", entry.Original, err)
			}
			continue
		}
		restored = append(restored, entry.Original)
	}
	return restored, firstErr
}

// Close removes the directory and everything still inside it.
func (d *Dir) Close() error {
	if d == nil || d.closed {
		return nil
	}
	d.closed = true
	return os.RemoveAll(d.path)
}
