package domain

// EventType identifies the kind of frame carried on the generation stream.
// The set is closed: the backend never emits a tag outside this list, and
// unknown tags received anyway are dropped without dispatch.
type EventType string

const (
	EventStatus     EventType = "status"
	EventThinking   EventType = "thinking"
	EventToolUse    EventType = "tool_use"
	EventToolResult EventType = "tool_result"
	EventSession    EventType = "session"
	EventResult     EventType = "result"
	EventComplete   EventType = "complete"
	EventError      EventType = "error"
)

// Status values carried by StatusPayload.Status.
const (
	StatusStarted    = "started"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// StatusPayload reports coarse backend progress for a generation job.
type StatusPayload struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	IsEnding bool   `json:"is_ending,omitempty"`
}

// ThinkingPayload carries an incremental reasoning excerpt from the
// generation model, tagged with the agent turn that produced it.
type ThinkingPayload struct {
	Content string `json:"content"`
	Turn    int    `json:"turn"`
}

// ToolUsePayload announces that the backend started executing a tool.
type ToolUsePayload struct {
	Tool    string `json:"tool"`
	Message string `json:"message,omitempty"`
}

// ToolResultPayload announces that the named tool finished.
type ToolResultPayload struct {
	Tool string `json:"tool,omitempty"`
}

// SessionPayload assigns the backend session id for the job.
// Metadata only; it never changes the visible phase.
type SessionPayload struct {
	SessionID string `json:"session_id"`
}

// ResultPayload is the terminal payload pointing at the finished story.
type ResultPayload struct {
	StoryID  string `json:"story_id"`
	Title    string `json:"title,omitempty"`
	CoverURL string `json:"cover_url,omitempty"`
	Pages    int    `json:"pages,omitempty"`
}

// CompletePayload closes the stream after the result has been delivered.
type CompletePayload struct {
	Message string `json:"message,omitempty"`
}

// ErrorPayload reports a backend-side generation failure.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StreamHandlers carries one callback per event tag. The stream reader
// decodes each data payload into the concrete type for its tag and invokes
// the matching callback, in wire order, exactly once per frame. A nil
// callback drops frames of that tag.
type StreamHandlers struct {
	OnStatus     func(StatusPayload)
	OnThinking   func(ThinkingPayload)
	OnToolUse    func(ToolUsePayload)
	OnToolResult func(ToolResultPayload)
	OnSession    func(SessionPayload)
	OnResult     func(ResultPayload)
	OnComplete   func(CompletePayload)
	OnError      func(ErrorPayload)
}
