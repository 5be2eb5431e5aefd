// Package dedup records which videos have already triggered a notification.
// The record is the single source of truth preventing duplicate dispatch
// under the hub's at-least-once delivery.
package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is the durable marker for one notified video.
type Record struct {
	VideoID      string
	IsNotified   bool
	NotifiedAt   time.Time
	Title        string
	URL          string
	ThumbnailURL string
}

// Store persists notification records in the notified_videos table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the record for a video, or nil when none exists.
func (s *Store) Get(ctx context.Context, videoID string) (*Record, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is empty")
	}

	var (
		r          Record
		notified   int
		notifiedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT video_id, is_notified, notified_at, title, url, thumbnail_url
FROM notified_videos WHERE video_id = ?;
`, videoID).Scan(&r.VideoID, &notified, &notifiedAt, &r.Title, &r.URL, &r.ThumbnailURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notified record: %w", err)
	}

	r.IsNotified = notified != 0
	r.NotifiedAt = time.Unix(notifiedAt, 0).UTC()
	return &r, nil
}

// IsNotified reports whether the video already triggered a notification.
// A missing record counts as not notified.
func (s *Store) IsNotified(ctx context.Context, videoID string) (bool, error) {
	rec, err := s.Get(ctx, videoID)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.IsNotified, nil
}

// MarkNotified records the dispatch with a conditional create. It returns
// false when a record for the video already exists, meaning a concurrent
// delivery won the race; the insert is the authoritative guard, not the
// preceding IsNotified read.
func (s *Store) MarkNotified(ctx context.Context, r Record) (bool, error) {
	if r.VideoID == "" {
		return false, fmt.Errorf("video id is empty")
	}

	notifiedAt := r.NotifiedAt
	if notifiedAt.IsZero() {
		notifiedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO notified_videos(video_id, is_notified, notified_at, title, url, thumbnail_url)
VALUES(?, 1, ?, ?, ?, ?)
ON CONFLICT(video_id) DO NOTHING;
`, r.VideoID, notifiedAt.Unix(), r.Title, r.URL, r.ThumbnailURL)
	if err != nil {
		return false, fmt.Errorf("record notified: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record notified: %w", err)
	}
	return n > 0, nil
}
