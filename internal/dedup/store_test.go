package dedup

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/mattjoyce/livegate/internal/storage"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore(testDB(t))

	rec, err := store.Get(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec != nil {
		t.Errorf("Get() = %+v, want nil for unknown video", rec)
	}

	notified, err := store.IsNotified(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("IsNotified() error = %v", err)
	}
	if notified {
		t.Error("IsNotified() = true for unknown video")
	}
}

func TestStore_MarkNotifiedRoundTrip(t *testing.T) {
	store := NewStore(testDB(t))
	ctx := context.Background()

	created, err := store.MarkNotified(ctx, Record{
		VideoID:      "vid-1",
		Title:        "Stream Title",
		URL:          "https://www.youtube.com/watch?v=vid-1",
		ThumbnailURL: "https://i.ytimg.com/h.jpg",
	})
	if err != nil {
		t.Fatalf("MarkNotified() error = %v", err)
	}
	if !created {
		t.Fatal("MarkNotified() = false, want true for first write")
	}

	rec, err := store.Get(ctx, "vid-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec == nil {
		t.Fatal("Get() = nil after MarkNotified")
	}
	if !rec.IsNotified {
		t.Error("IsNotified = false, want true")
	}
	if rec.Title != "Stream Title" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.ThumbnailURL != "https://i.ytimg.com/h.jpg" {
		t.Errorf("ThumbnailURL = %q", rec.ThumbnailURL)
	}
	if rec.NotifiedAt.IsZero() || time.Since(rec.NotifiedAt) > time.Minute {
		t.Errorf("NotifiedAt = %v, want recent", rec.NotifiedAt)
	}
}

func TestStore_MarkNotifiedConditionalCreate(t *testing.T) {
	store := NewStore(testDB(t))
	ctx := context.Background()

	first := Record{VideoID: "vid-1", Title: "First", URL: "u1"}
	second := Record{VideoID: "vid-1", Title: "Second", URL: "u2"}

	if created, err := store.MarkNotified(ctx, first); err != nil || !created {
		t.Fatalf("first MarkNotified() = (%v, %v), want (true, nil)", created, err)
	}
	created, err := store.MarkNotified(ctx, second)
	if err != nil {
		t.Fatalf("second MarkNotified() error = %v", err)
	}
	if created {
		t.Error("second MarkNotified() = true, want false (record exists)")
	}

	// The losing write must not overwrite the original record.
	rec, err := store.Get(ctx, "vid-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Title != "First" {
		t.Errorf("Title = %q, want First", rec.Title)
	}
}

func TestStore_EmptyVideoID(t *testing.T) {
	store := NewStore(testDB(t))

	if _, err := store.Get(context.Background(), ""); err == nil {
		t.Error("Get(\"\") = nil error, want error")
	}
	if _, err := store.MarkNotified(context.Background(), Record{}); err == nil {
		t.Error("MarkNotified(empty) = nil error, want error")
	}
}
