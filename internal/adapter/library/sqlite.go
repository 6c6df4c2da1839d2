// Package library persists finished stories in a local SQLite cache so
// the reading list survives restarts and works offline.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"storyweave/internal/domain"
)

// SQLiteStore implements domain.StoryStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the library database at dbPath and
// runs the schema migration. Parent directories are created as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create library dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open library db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate library db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stories (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			synopsis   TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL,
			cover_url  TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put inserts a story, replacing any cached copy with the same id.
func (s *SQLiteStore) Put(_ context.Context, story *domain.Story) error {
	createdAt := story.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO stories (id, title, synopsis, content, cover_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, synopsis = excluded.synopsis,
		   content = excluded.content, cover_url = excluded.cover_url`,
		story.ID, story.Title, story.Synopsis, story.Content, story.CoverURL,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.NewDomainError("library.put", domain.ErrStoryStore, err.Error())
	}
	return nil
}

// Get returns a cached story by id.
func (s *SQLiteStore) Get(_ context.Context, id string) (*domain.Story, error) {
	row := s.db.QueryRow(
		"SELECT id, title, synopsis, content, cover_url, created_at FROM stories WHERE id = ?", id,
	)
	var story domain.Story
	var createdStr string
	if err := row.Scan(&story.ID, &story.Title, &story.Synopsis, &story.Content, &story.CoverURL, &createdStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.WrapOp("library.get", domain.ErrNotFound)
		}
		return nil, domain.NewDomainError("library.get", domain.ErrStoryStore, err.Error())
	}
	story.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return &story, nil
}

// List returns library summaries, newest first.
func (s *SQLiteStore) List(_ context.Context) ([]domain.LibraryEntry, error) {
	rows, err := s.db.Query(
		"SELECT id, title, synopsis, created_at FROM stories ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, domain.NewDomainError("library.list", domain.ErrStoryStore, err.Error())
	}
	defer rows.Close()

	var entries []domain.LibraryEntry
	for rows.Next() {
		var e domain.LibraryEntry
		var createdStr string
		if err := rows.Scan(&e.ID, &e.Title, &e.Synopsis, &createdStr); err != nil {
			return nil, domain.NewDomainError("library.list", domain.ErrStoryStore, err.Error())
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDomainError("library.list", domain.ErrStoryStore, err.Error())
	}
	return entries, nil
}
