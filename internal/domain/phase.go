package domain

// Phase is the coarse UI-visible state derived from the generation stream.
// Exactly one phase is current at any time. PhaseIdle is the only phase a
// new job may start from; PhaseComplete and PhaseError are absorbing until
// an explicit reset back to idle.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseConnecting    Phase = "connecting"
	PhaseThinking      Phase = "thinking"
	PhaseToolExecuting Phase = "tool_executing"
	PhaseRevealing     Phase = "revealing"
	PhaseComplete      Phase = "complete"
	PhaseError         Phase = "error"
)

// Terminal reports whether p absorbs further streaming events.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// SessionState is the streaming session snapshot owned by the session store.
// It is mutated only through reducer methods driven by wire events; consumers
// read copies and never write it directly.
type SessionState struct {
	IsStreaming     bool
	Phase           Phase
	Message         string
	ThinkingContent string
	CurrentTool     string
	Turn            int
	SessionID       string
	Result          *ResultPayload
}

// NewSessionState returns the initial idle state.
func NewSessionState() SessionState {
	return SessionState{Phase: PhaseIdle}
}
