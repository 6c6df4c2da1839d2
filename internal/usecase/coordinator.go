package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"storyweave/internal/domain"
	"storyweave/internal/infra/tracer"
)

// CoordinatorDeps holds injected dependencies for the generation coordinator.
type CoordinatorDeps struct {
	Streamer  domain.GenerationStreamer
	Store     *SessionStore
	Logger    *slog.Logger
	Celebrate func() // optional, invoked at terminal success
}

// Coordinator owns at most one in-flight generation job. Job lifetime is
// decoupled from the caller: StartGeneration launches a background read
// loop and returns; progress is observed through the session store.
// Navigation at job completion goes through a registered handler, or is
// queued in a single pending slot when no handler is installed.
type Coordinator struct {
	deps    CoordinatorDeps
	reducer *Reducer

	mu         sync.Mutex
	cancel     context.CancelFunc // non-nil while a job is active
	jobID      string
	navigate   func(path string)
	pendingNav *string
}

// NewCoordinator creates a coordinator. It is constructed once per process;
// all state lives on the struct, nothing at package level.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	c := &Coordinator{deps: deps}
	c.reducer = NewReducer(deps.Store, deps.Logger, deps.Celebrate)
	return c
}

// RegisterNavigate installs the navigation handler. Last writer wins. If a
// navigation is pending from a job that finished while no handler was
// registered, it is consumed now, exactly once.
func (c *Coordinator) RegisterNavigate(handler func(path string)) {
	c.mu.Lock()
	c.navigate = handler
	var queued string
	fire := false
	if c.pendingNav != nil && handler != nil {
		queued = *c.pendingNav
		c.pendingNav = nil
		fire = true
	}
	c.mu.Unlock()

	if fire {
		handler(queued)
	}
}

// IsGenerating reports whether a job is currently active.
func (c *Coordinator) IsGenerating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// StartGeneration begins a generation job. While a job is active the call is
// a silent no-op. Invalid params surface as an error state in the store
// without creating a job or touching the network. The call returns once the
// background stream loop is launched.
func (c *Coordinator) StartGeneration(ctx context.Context, params domain.GenerationParams) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		c.deps.Logger.Debug("generation already in progress, ignoring start")
		return
	}

	if err := params.Validate(); err != nil {
		c.mu.Unlock()
		c.deps.Logger.Warn("generation rejected", "error", err)
		c.deps.Store.FailValidation("a story prompt or an image is required")
		return
	}

	// The job must survive the calling screen: detach from the caller's
	// cancellation and keep only our own cancel handle.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.jobID = newJobID()
	jobID := c.jobID
	c.mu.Unlock()

	c.deps.Store.BeginStreaming()
	c.deps.Logger.Info("generation started", "job_id", jobID, "image", params.ImagePath != "")

	go c.run(jobCtx, jobID, params)
}

// CancelGeneration aborts the active job, clears the job slot, and resets
// the session to idle. Synchronous from the caller's perspective: the slot
// is free for a new StartGeneration immediately, without waiting for the
// network layer to acknowledge the abort. Calling with no active job is a
// no-op, and repeated calls are idempotent.
func (c *Coordinator) CancelGeneration() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	jobID := c.jobID
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.deps.Store.Reset()
	c.deps.Logger.Info("generation cancelled", "job_id", jobID)
}

// run is the background stream loop for one job.
func (c *Coordinator) run(ctx context.Context, jobID string, params domain.GenerationParams) {
	ctx, span := tracer.StartSpan(ctx, "coordinator.generate",
		trace.WithAttributes(tracer.StringAttr("job.id", jobID)),
	)
	defer span.End()

	handlers := c.reducer.Handlers()
	onResult := handlers.OnResult
	handlers.OnResult = func(p domain.ResultPayload) {
		onResult(p)
		c.navigateTo("/story/" + p.StoryID)
	}

	err := c.deps.Streamer.StreamGeneration(ctx, params, c.gate(jobID, handlers))
	c.finish(jobID, err, span)
}

// active reports whether jobID still owns the job slot.
func (c *Coordinator) active(jobID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil && c.jobID == jobID
}

// gate wraps handlers so that events from a job that no longer owns the
// slot are dropped. A frame already buffered in the parser when the abort
// lands must not mutate a session that CancelGeneration reset, and a late
// result must not queue a stale navigation.
func (c *Coordinator) gate(jobID string, h domain.StreamHandlers) domain.StreamHandlers {
	return domain.StreamHandlers{
		OnStatus: func(p domain.StatusPayload) {
			if c.active(jobID) {
				h.OnStatus(p)
			}
		},
		OnThinking: func(p domain.ThinkingPayload) {
			if c.active(jobID) {
				h.OnThinking(p)
			}
		},
		OnToolUse: func(p domain.ToolUsePayload) {
			if c.active(jobID) {
				h.OnToolUse(p)
			}
		},
		OnToolResult: func(p domain.ToolResultPayload) {
			if c.active(jobID) {
				h.OnToolResult(p)
			}
		},
		OnSession: func(p domain.SessionPayload) {
			if c.active(jobID) {
				h.OnSession(p)
			}
		},
		OnResult: func(p domain.ResultPayload) {
			if c.active(jobID) {
				h.OnResult(p)
			}
		},
		OnComplete: func(p domain.CompletePayload) {
			if c.active(jobID) {
				h.OnComplete(p)
			}
		},
		OnError: func(p domain.ErrorPayload) {
			if c.active(jobID) {
				h.OnError(p)
			}
		},
	}
}

// finish releases the job slot and classifies the stream outcome: clean end,
// user-initiated cancellation (swallowed), or failure (surfaced as an error
// phase). Once the slot is cleared no further event for this job can reach
// the store.
func (c *Coordinator) finish(jobID string, err error, span trace.Span) {
	c.mu.Lock()
	stillActive := c.cancel != nil && c.jobID == jobID
	if stillActive {
		c.cancel = nil
	}
	c.mu.Unlock()

	switch {
	case err == nil:
		c.deps.Store.EndStreaming()
		tracer.SetOK(span)
		c.deps.Logger.Info("generation stream finished", "job_id", jobID)
	case errors.Is(err, context.Canceled):
		// User-initiated abort: not an error. CancelGeneration already
		// reset the store.
		c.deps.Logger.Debug("generation stream aborted", "job_id", jobID)
	case !stillActive:
		// The slot was already released (cancellation race); too late for
		// this job to touch the store.
		c.deps.Logger.Debug("stale stream result dropped", "job_id", jobID)
	default:
		tracer.RecordError(span, err)
		c.deps.Store.Fail(err.Error())
		c.deps.Logger.Error("generation stream failed",
			"job_id", jobID,
			"error", err,
			"code", string(domain.ErrorCodeOf(err)),
		)
	}
}

// navigateTo routes to path through the registered handler, or parks the
// path in the pending slot when no handler is installed.
func (c *Coordinator) navigateTo(path string) {
	c.mu.Lock()
	handler := c.navigate
	if handler == nil {
		c.pendingNav = &path
		c.mu.Unlock()
		c.deps.Logger.Debug("navigation queued", "path", path)
		return
	}
	c.mu.Unlock()
	handler(path)
}

func newJobID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
