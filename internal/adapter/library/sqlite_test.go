package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"storyweave/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := &domain.Story{
		ID:        "st_1",
		Title:     "The Harbor Cat",
		Synopsis:  "A cat guards the docks.",
		Content:   "# The Harbor Cat\n\nOnce upon a time...",
		CoverURL:  "https://cdn.example.com/covers/st_1.png",
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	if err := store.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "st_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != want.Title || got.Content != want.Content || got.CoverURL != want.CoverURL {
		t.Errorf("Get returned %+v, want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPutReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &domain.Story{ID: "st_2", Title: "Draft", Content: "draft body"}
	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	second := &domain.Story{ID: "st_2", Title: "Final", Content: "final body"}
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	got, err := store.Get(ctx, "st_2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Final" || got.Content != "final body" {
		t.Errorf("replace did not stick: %+v", got)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("List returned %d entries after replace, want 1", len(entries))
	}
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"st_old", "st_mid", "st_new"} {
		story := &domain.Story{
			ID:        id,
			Title:     id,
			Content:   "body",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Put(ctx, story); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(entries))
	}
	if entries[0].ID != "st_new" || entries[2].ID != "st_old" {
		t.Errorf("List order = [%s %s %s], want newest first", entries[0].ID, entries[1].ID, entries[2].ID)
	}
}

func TestListEmpty(t *testing.T) {
	store := newTestStore(t)
	entries, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List on empty store returned %d entries", len(entries))
	}
}
