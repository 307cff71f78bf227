package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
)

// Store manages bookkeeping persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the configured database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.Paths.DatabasePath)
}

// OpenPath connects to the database at path, creating parent directories.
func OpenPath(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ImageSaveName returns the stored filename of a work. The boolean is false
// when the work has no record.
func (s *Store) ImageSaveName(ctx context.Context, imageID string) (string, bool, error) {
	var saveName sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT save_name FROM pixiv_master_image WHERE image_id = ?`, imageID).Scan(&saveName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select image %s: %w", imageID, err)
	}
	return saveName.String, true, nil
}

// FileExists reports whether a stored filename is still present on disk. An
// animated bundle counts as present when its zip or ugoira sibling exists.
func (s *Store) FileExists(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || name == "N/A" {
		return false
	}
	if _, err := os.Stat(name); err == nil {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return fileExists(strings.TrimSuffix(name, filepath.Ext(name)) + ".ugoira")
	case ".ugoira":
		return fileExists(strings.TrimSuffix(name, filepath.Ext(name)) + ".zip")
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// InsertImage records a work for a member. An existing record is left untouched.
func (s *Store) InsertImage(ctx context.Context, memberID int64, imageID string, mode artwork.Mode, caption string) error {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO pixiv_master_image
            (image_id, member_id, title, save_name, created_date, last_update_date, is_manga, caption)
         VALUES (?, ?, 'N/A', 'N/A', ?, ?, ?, ?)`,
		imageID, memberID, ts, ts, string(mode), nullableString(caption),
	)
	if err != nil {
		return fmt.Errorf("insert image %s: %w", imageID, err)
	}
	return nil
}

// UpdateImage stores the title, final filename and mode of a work.
func (s *Store) UpdateImage(ctx context.Context, imageID, title, filename string, mode artwork.Mode) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pixiv_master_image
         SET title = ?, save_name = ?, is_manga = ?, last_update_date = ?
         WHERE image_id = ?`,
		title, filename, string(mode), now(), imageID,
	)
	if err != nil {
		return fmt.Errorf("update image %s: %w", imageID, err)
	}
	return nil
}

// InsertMangaImages stores the page list of a work as one batch.
func (s *Store) InsertMangaImages(ctx context.Context, files []artwork.MangaFile) error {
	if len(files) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manga batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pixiv_manga_image (image_id, page, save_name, created_date, last_update_date)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(image_id, page) DO UPDATE SET save_name = excluded.save_name, last_update_date = excluded.last_update_date`)
	if err != nil {
		return fmt.Errorf("prepare manga batch: %w", err)
	}
	defer stmt.Close()

	ts := now()
	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, f.WorkID, f.Page, f.Filename, ts, ts); err != nil {
			return fmt.Errorf("insert manga page %s/%d: %w", f.WorkID, f.Page, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit manga batch: %w", err)
	}
	return nil
}

// InsertTag records a tag name.
func (s *Store) InsertTag(ctx context.Context, tagID string) error {
	ts := now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO pixiv_master_tag (tag_id, created_date, last_update_date) VALUES (?, ?, ?)`,
		tagID, ts, ts); err != nil {
		return fmt.Errorf("insert tag %q: %w", tagID, err)
	}
	return nil
}

// InsertImageToTag links a work to a tag.
func (s *Store) InsertImageToTag(ctx context.Context, imageID, tagID string) error {
	ts := now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO pixiv_image_to_tag (image_id, tag_id, created_date, last_update_date) VALUES (?, ?, ?, ?)`,
		imageID, tagID, ts, ts); err != nil {
		return fmt.Errorf("link image %s to tag %q: %w", imageID, tagID, err)
	}
	return nil
}

// InsertTagTranslation stores or replaces one translation of a tag.
func (s *Store) InsertTagTranslation(ctx context.Context, tagID, translationType, translation string) error {
	ts := now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO pixiv_tag_translation (tag_id, translation_type, translation, created_date, last_update_date)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(tag_id, translation_type) DO UPDATE SET translation = excluded.translation, last_update_date = excluded.last_update_date`,
		tagID, translationType, translation, ts, ts); err != nil {
		return fmt.Errorf("insert translation %s for tag %q: %w", translationType, tagID, err)
	}
	return nil
}

// InsertNewMember records a member if it is not yet known.
func (s *Store) InsertNewMember(ctx context.Context, memberID int64, token string) error {
	ts := now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO pixiv_master_member (member_id, name, member_token, save_folder, created_date, last_update_date, last_image)
         VALUES (?, 'N/A', ?, 'N/A', ?, ?, '0')`,
		memberID, nullableString(token), ts, ts); err != nil {
		return fmt.Errorf("insert member %d: %w", memberID, err)
	}
	return nil
}

// UpdateMemberName refreshes the display name and token of a member.
func (s *Store) UpdateMemberName(ctx context.Context, memberID int64, name, token string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE pixiv_master_member SET name = ?, member_token = ?, last_update_date = ? WHERE member_id = ?`,
		name, nullableString(token), now(), memberID); err != nil {
		return fmt.Errorf("update member %d: %w", memberID, err)
	}
	return nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
