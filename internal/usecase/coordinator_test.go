package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/internal/domain"
	"storyweave/internal/infra/logger"
)

// fakeStreamer scripts the stream side of a generation job.
type fakeStreamer struct {
	mu    sync.Mutex
	calls int
	run   func(ctx context.Context, h domain.StreamHandlers) error
}

func (f *fakeStreamer) StreamGeneration(ctx context.Context, _ domain.GenerationParams, h domain.StreamHandlers) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.run != nil {
		return f.run(ctx, h)
	}
	return nil
}

func (f *fakeStreamer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestCoordinator(streamer *fakeStreamer) (*Coordinator, *SessionStore) {
	store := NewSessionStore()
	c := NewCoordinator(CoordinatorDeps{
		Streamer: streamer,
		Store:    store,
		Logger:   logger.Discard(),
	})
	return c, store
}

func waitIdle(t *testing.T, c *Coordinator) {
	t.Helper()
	require.Eventually(t, func() bool { return !c.IsGenerating() },
		2*time.Second, 5*time.Millisecond, "job never released the slot")
}

func TestStartGenerationHappyPath(t *testing.T) {
	streamer := &fakeStreamer{run: func(_ context.Context, h domain.StreamHandlers) error {
		h.OnStatus(domain.StatusPayload{Status: domain.StatusStarted, Message: "warming up"})
		h.OnThinking(domain.ThinkingPayload{Content: "a cat...", Turn: 1})
		h.OnResult(domain.ResultPayload{StoryID: "st_42", Title: "Harbor Cat"})
		h.OnComplete(domain.CompletePayload{Message: "done"})
		return nil
	}}
	c, store := newTestCoordinator(streamer)

	var navigated []string
	c.RegisterNavigate(func(path string) { navigated = append(navigated, path) })

	c.StartGeneration(context.Background(), domain.GenerationParams{Prompt: "a harbor cat"})
	waitIdle(t, c)

	st := store.Snapshot()
	assert.Equal(t, domain.PhaseComplete, st.Phase)
	assert.False(t, st.IsStreaming)
	require.NotNil(t, st.Result)
	assert.Equal(t, "st_42", st.Result.StoryID)
	assert.Equal(t, []string{"/story/st_42"}, navigated)
}

func TestStartGenerationSingleJobInvariant(t *testing.T) {
	release := make(chan struct{})
	streamer := &fakeStreamer{run: func(ctx context.Context, _ domain.StreamHandlers) error {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}}
	c, _ := newTestCoordinator(streamer)

	params := domain.GenerationParams{Prompt: "p"}
	c.StartGeneration(context.Background(), params)
	c.StartGeneration(context.Background(), params) // must be a silent no-op
	c.StartGeneration(context.Background(), params)

	require.Eventually(t, func() bool { return streamer.callCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.True(t, c.IsGenerating())

	close(release)
	waitIdle(t, c)
	assert.Equal(t, 1, streamer.callCount(), "only one stream request may be issued")
}

func TestStartGenerationValidationFailure(t *testing.T) {
	streamer := &fakeStreamer{}
	c, store := newTestCoordinator(streamer)

	c.StartGeneration(context.Background(), domain.GenerationParams{})

	assert.False(t, c.IsGenerating(), "validation failure must not create a job")
	assert.Equal(t, 0, streamer.callCount(), "validation failure must not touch the network")
	st := store.Snapshot()
	assert.Equal(t, domain.PhaseError, st.Phase)
	assert.NotEmpty(t, st.Message)
}

func TestCancelGenerationMidStream(t *testing.T) {
	started := make(chan struct{})
	streamer := &fakeStreamer{run: func(ctx context.Context, h domain.StreamHandlers) error {
		h.OnStatus(domain.StatusPayload{Status: domain.StatusProcessing})
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	c, store := newTestCoordinator(streamer)

	c.StartGeneration(context.Background(), domain.GenerationParams{Prompt: "p"})
	<-started

	c.CancelGeneration()

	assert.False(t, c.IsGenerating(), "slot must clear synchronously")
	st := store.Snapshot()
	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Empty(t, st.Message, "cancellation must not surface an error message")

	// The slot is free immediately: a new job can start right away.
	release := make(chan struct{})
	streamer.run = func(ctx context.Context, _ domain.StreamHandlers) error {
		close(release)
		return nil
	}
	c.StartGeneration(context.Background(), domain.GenerationParams{Prompt: "again"})
	select {
	case <-release:
	case <-time.After(time.Second):
		t.Fatal("restart after cancel did not issue a new stream request")
	}
	waitIdle(t, c)
}

func TestCancelGenerationDropsLateEvents(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	delivered := make(chan struct{})
	streamer := &fakeStreamer{run: func(ctx context.Context, h domain.StreamHandlers) error {
		close(started)
		<-release
		// Frames already buffered when the abort landed are still
		// dispatched by the read loop; they must not touch the store.
		h.OnThinking(domain.ThinkingPayload{Content: "late frame", Turn: 3})
		h.OnResult(domain.ResultPayload{StoryID: "st_stale"})
		close(delivered)
		return ctx.Err()
	}}
	c, store := newTestCoordinator(streamer)

	c.StartGeneration(context.Background(), domain.GenerationParams{Prompt: "p"})
	<-started

	c.CancelGeneration()
	close(release)
	<-delivered

	st := store.Snapshot()
	assert.Equal(t, domain.PhaseIdle, st.Phase, "post-cancel event must not re-activate the session")
	assert.Empty(t, st.ThinkingContent)
	assert.Nil(t, st.Result)

	var navigated []string
	c.RegisterNavigate(func(path string) { navigated = append(navigated, path) })
	assert.Empty(t, navigated, "a cancelled job's result must not queue navigation")
}

func TestCancelGenerationIdempotent(t *testing.T) {
	c, store := newTestCoordinator(&fakeStreamer{})

	c.CancelGeneration() // no active job: no-op, no panic
	assert.Equal(t, domain.PhaseIdle, store.Snapshot().Phase)

	started := make(chan struct{})
	streamer := &fakeStreamer{run: func(ctx context.Context, _ domain.StreamHandlers) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	c, store = newTestCoordinator(streamer)
	c.StartGeneration(context.Background(), domain.GenerationParams{Prompt: "p"})
	<-started

	c.CancelGeneration()
	c.CancelGeneration() // second call has the same effect as the first

	assert.False(t, c.IsGenerating())
	assert.Equal(t, domain.PhaseIdle, store.Snapshot().Phase)
}

func TestStreamErrorSurfacesErrorPhase(t *testing.T) {
	streamer := &fakeStreamer{run: func(_ context.Context, _ domain.StreamHandlers) error {
		return domain.WrapOp("stream.read", domain.ErrServerError)
	}}
	c, store := newTestCoordinator(streamer)

	c.StartGeneration(context.Background(), domain.GenerationParams{Prompt: "p"})
	waitIdle(t, c)

	st := store.Snapshot()
	assert.Equal(t, domain.PhaseError, st.Phase)
	assert.Contains(t, st.Message, "server error")
}

func TestPendingNavigationExactlyOnce(t *testing.T) {
	streamer := &fakeStreamer{run: func(_ context.Context, h domain.StreamHandlers) error {
		h.OnResult(domain.ResultPayload{StoryID: "st_5"})
		h.OnComplete(domain.CompletePayload{})
		return nil
	}}
	c, _ := newTestCoordinator(streamer)

	// No navigate handler registered: the result must be queued.
	c.StartGeneration(context.Background(), domain.GenerationParams{Prompt: "p"})
	waitIdle(t, c)

	var first []string
	c.RegisterNavigate(func(path string) { first = append(first, path) })
	require.Equal(t, []string{"/story/st_5"}, first, "queued navigation fires on registration")

	var second []string
	c.RegisterNavigate(func(path string) { second = append(second, path) })
	assert.Empty(t, second, "a consumed navigation must not re-fire")
}

func TestRegisterNavigateImmediateDelivery(t *testing.T) {
	navigated := make(chan string, 1)
	streamer := &fakeStreamer{run: func(_ context.Context, h domain.StreamHandlers) error {
		h.OnResult(domain.ResultPayload{StoryID: "st_8"})
		return nil
	}}
	c, _ := newTestCoordinator(streamer)
	c.RegisterNavigate(func(path string) { navigated <- path })

	c.StartGeneration(context.Background(), domain.GenerationParams{Prompt: "p"})

	select {
	case path := <-navigated:
		assert.Equal(t, "/story/st_8", path)
	case <-time.After(time.Second):
		t.Fatal("navigation handler never fired")
	}
	waitIdle(t, c)
}

func TestJobSurvivesCallerContext(t *testing.T) {
	finished := make(chan struct{})
	streamer := &fakeStreamer{run: func(ctx context.Context, h domain.StreamHandlers) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		h.OnComplete(domain.CompletePayload{})
		close(finished)
		return nil
	}}
	c, store := newTestCoordinator(streamer)

	callerCtx, cancelCaller := context.WithCancel(context.Background())
	c.StartGeneration(callerCtx, domain.GenerationParams{Prompt: "p"})
	cancelCaller() // the screen that started the job goes away

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("job should keep running after the caller's context is cancelled")
	}
	waitIdle(t, c)
	assert.Equal(t, domain.PhaseComplete, store.Snapshot().Phase)
}
