package usecase

import (
	"log/slog"

	"storyweave/internal/domain"
)

// Reducer translates wire events into session store mutations. The mapping
// is fixed:
//
//	status{started}    -> connecting
//	status{processing} -> thinking
//	status{completed}  -> complete (+ celebrate)
//	thinking           -> thinking (content, turn)
//	tool_use           -> tool_executing (current tool, message)
//	tool_result        -> thinking (tool cleared)
//	session            -> metadata only
//	result             -> revealing (result stored)
//	complete           -> complete (+ celebrate)
//	error              -> error (message stored)
//
// Complete and error are absorbing: streaming events arriving afterwards
// leave the phase untouched until an explicit reset.
type Reducer struct {
	store     *SessionStore
	logger    *slog.Logger
	celebrate func() // invoked at terminal success, nil = no-op
}

// NewReducer creates a reducer bound to store. celebrate may be nil.
func NewReducer(store *SessionStore, logger *slog.Logger, celebrate func()) *Reducer {
	return &Reducer{store: store, logger: logger, celebrate: celebrate}
}

// Handlers returns the stream callbacks wired to this reducer.
func (r *Reducer) Handlers() domain.StreamHandlers {
	return domain.StreamHandlers{
		OnStatus:     r.onStatus,
		OnThinking:   r.onThinking,
		OnToolUse:    r.onToolUse,
		OnToolResult: r.onToolResult,
		OnSession:    r.onSession,
		OnResult:     r.onResult,
		OnComplete:   r.onComplete,
		OnError:      r.onError,
	}
}

func (r *Reducer) onStatus(p domain.StatusPayload) {
	switch p.Status {
	case domain.StatusStarted:
		r.store.update(func(st *domain.SessionState) {
			if st.Phase.Terminal() {
				return
			}
			st.Phase = domain.PhaseConnecting
			st.Message = p.Message
		})
	case domain.StatusProcessing:
		r.store.update(func(st *domain.SessionState) {
			if st.Phase.Terminal() {
				return
			}
			st.Phase = domain.PhaseThinking
			st.Message = p.Message
		})
	case domain.StatusCompleted:
		r.store.update(func(st *domain.SessionState) {
			st.Phase = domain.PhaseComplete
			st.Message = p.Message
			st.IsStreaming = false
		})
		r.fireCelebrate()
	default:
		r.logger.Debug("unknown status value", "status", p.Status)
	}
}

func (r *Reducer) onThinking(p domain.ThinkingPayload) {
	r.store.update(func(st *domain.SessionState) {
		if st.Phase.Terminal() {
			return
		}
		st.Phase = domain.PhaseThinking
		st.ThinkingContent = p.Content
		st.Turn = p.Turn
	})
}

func (r *Reducer) onToolUse(p domain.ToolUsePayload) {
	r.store.update(func(st *domain.SessionState) {
		if st.Phase.Terminal() {
			return
		}
		st.Phase = domain.PhaseToolExecuting
		st.CurrentTool = p.Tool
		if p.Message != "" {
			st.Message = p.Message
		}
	})
}

func (r *Reducer) onToolResult(p domain.ToolResultPayload) {
	r.store.update(func(st *domain.SessionState) {
		if st.Phase.Terminal() {
			return
		}
		st.Phase = domain.PhaseThinking
		st.CurrentTool = ""
	})
}

func (r *Reducer) onSession(p domain.SessionPayload) {
	r.store.update(func(st *domain.SessionState) {
		st.SessionID = p.SessionID
	})
}

func (r *Reducer) onResult(p domain.ResultPayload) {
	r.store.update(func(st *domain.SessionState) {
		if st.Phase.Terminal() {
			return
		}
		st.Phase = domain.PhaseRevealing
		st.Result = &p
	})
}

func (r *Reducer) onComplete(p domain.CompletePayload) {
	r.store.update(func(st *domain.SessionState) {
		st.Phase = domain.PhaseComplete
		if p.Message != "" {
			st.Message = p.Message
		}
		st.IsStreaming = false
	})
	r.fireCelebrate()
}

func (r *Reducer) onError(p domain.ErrorPayload) {
	msg := p.Message
	if msg == "" {
		msg = p.Error
	}
	r.store.update(func(st *domain.SessionState) {
		st.Phase = domain.PhaseError
		st.Message = msg
		st.IsStreaming = false
	})
	r.logger.Warn("generation stream reported error", "error", p.Error, "message", p.Message)
}

func (r *Reducer) fireCelebrate() {
	if r.celebrate != nil {
		r.celebrate()
	}
}
