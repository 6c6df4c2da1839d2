package domain

import (
	"context"
	"strings"
	"time"
)

// Story is a finished generated story as returned by the backend.
type Story struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Synopsis  string    `json:"synopsis,omitempty"`
	Content   string    `json:"content"` // markdown
	CoverURL  string    `json:"cover_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LibraryEntry is a summary row from the user's story library.
type LibraryEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Synopsis  string    `json:"synopsis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerationParams describes a generation job. Either Prompt or ImagePath
// must be set; image jobs are uploaded as multipart, text jobs as JSON.
type GenerationParams struct {
	Prompt    string
	ImagePath string
	Style     string
	Length    string
}

// Validate checks that the required input is present before a job starts.
func (p GenerationParams) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" && strings.TrimSpace(p.ImagePath) == "" {
		return WrapOp("generation.validate", ErrInvalidInput)
	}
	return nil
}

// StoryService is the non-streaming backend surface: auth and CRUD reads.
type StoryService interface {
	Login(ctx context.Context, email, password string) (string, error)
	GetStory(ctx context.Context, id string) (*Story, error)
	ListLibrary(ctx context.Context) ([]LibraryEntry, error)
}

// GenerationStreamer starts a generation job and delivers its wire events
// to the supplied handlers. It returns once the stream ends: nil on a
// normally closed stream, ctx.Err() when cancelled, or the transport or
// protocol error that terminated the read loop.
type GenerationStreamer interface {
	StreamGeneration(ctx context.Context, params GenerationParams, h StreamHandlers) error
}

// StoryStore is a local cache of finished stories.
type StoryStore interface {
	Put(ctx context.Context, story *Story) error
	Get(ctx context.Context, id string) (*Story, error)
	List(ctx context.Context) ([]LibraryEntry, error)
	Close() error
}
