package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ImageRecord is the stored view of one work, used by the CLI.
type ImageRecord struct {
	ImageID    string
	MemberID   int64
	MemberName string
	Title      string
	SaveName   string
	Mode       string
	Caption    string
	CreatedAt  string
	UpdatedAt  string
	Pages      []PageRecord
	Tags       []string
}

// PageRecord is one stored manga page.
type PageRecord struct {
	Page     int
	SaveName string
}

// Stats summarizes table sizes.
type Stats struct {
	Members int
	Images  int
	Pages   int
	Tags    int
}

// Image loads a work with its pages and tags. It returns nil when absent.
func (s *Store) Image(ctx context.Context, imageID string) (*ImageRecord, error) {
	var (
		rec                     ImageRecord
		memberName, title, save sql.NullString
		mode, caption           sql.NullString
		memberID                sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT i.image_id, i.member_id, m.name, i.title, i.save_name, i.is_manga, i.caption, i.created_date, i.last_update_date
         FROM pixiv_master_image i
         LEFT JOIN pixiv_master_member m ON m.member_id = i.member_id
         WHERE i.image_id = ?`, imageID,
	).Scan(&rec.ImageID, &memberID, &memberName, &title, &save, &mode, &caption, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image %s: %w", imageID, err)
	}
	rec.MemberID = memberID.Int64
	rec.MemberName = memberName.String
	rec.Title = title.String
	rec.SaveName = save.String
	rec.Mode = mode.String
	rec.Caption = caption.String

	pageRows, err := s.db.QueryContext(ctx, `SELECT page, save_name FROM pixiv_manga_image WHERE image_id = ? ORDER BY page`, imageID)
	if err != nil {
		return nil, fmt.Errorf("list pages for %s: %w", imageID, err)
	}
	defer pageRows.Close()
	for pageRows.Next() {
		var p PageRecord
		var name sql.NullString
		if err := pageRows.Scan(&p.Page, &name); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		p.SaveName = name.String
		rec.Pages = append(rec.Pages, p)
	}
	if err := pageRows.Err(); err != nil {
		return nil, err
	}

	tagRows, err := s.db.QueryContext(ctx, `SELECT tag_id FROM pixiv_image_to_tag WHERE image_id = ? ORDER BY tag_id`, imageID)
	if err != nil {
		return nil, fmt.Errorf("list tags for %s: %w", imageID, err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		rec.Tags = append(rec.Tags, tag)
	}
	return &rec, tagRows.Err()
}

// TagTranslations returns every stored translation of a tag keyed by type.
func (s *Store) TagTranslations(ctx context.Context, tagID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT translation_type, translation FROM pixiv_tag_translation WHERE tag_id = ?`, tagID)
	if err != nil {
		return nil, fmt.Errorf("list translations for %q: %w", tagID, err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		out[kind] = value
	}
	return out, rows.Err()
}

// Member returns the stored name and token of a member; ok is false when absent.
func (s *Store) Member(ctx context.Context, memberID int64) (name, token string, ok bool, err error) {
	var n, tok sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT name, member_token FROM pixiv_master_member WHERE member_id = ?`, memberID).Scan(&n, &tok)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("get member %d: %w", memberID, err)
	}
	return n.String, tok.String, true, nil
}

// Stats counts rows in the main tables.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		sql string
		dst *int
	}{
		{`SELECT COUNT(1) FROM pixiv_master_member`, &st.Members},
		{`SELECT COUNT(1) FROM pixiv_master_image`, &st.Images},
		{`SELECT COUNT(1) FROM pixiv_manga_image`, &st.Pages},
		{`SELECT COUNT(1) FROM pixiv_master_tag`, &st.Tags},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dst); err != nil {
			return Stats{}, fmt.Errorf("count rows: %w", err)
		}
	}
	return st, nil
}
