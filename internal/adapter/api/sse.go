package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"storyweave/internal/domain"
)

// SSE line prefixes emitted by the generation endpoint. Each frame is an
// "event:" line naming the tag, a "data:" line carrying the JSON payload,
// and a blank separator line.
var (
	prefixEvent = []byte("event: ")
	prefixData  = []byte("data: ")
)

const readChunkSize = 4096

// readEventStream incrementally decodes SSE frames from body and dispatches
// each one to the handler matching its tag, in wire order. It buffers raw
// bytes, so chunk boundaries may fall anywhere, including inside a line or
// a multi-byte rune. A frame is dispatched only once both its event line and
// its data line have arrived; a data line with no preceding event line is
// dropped. The function returns nil when the stream ends cleanly, ctx.Err()
// on cancellation, and a domain.ErrStreamProtocol-wrapped error when a data
// payload fails to decode; that error terminates the stream.
//
// The reader has no HTTP awareness: callers check the response status before
// handing over the body.
func readEventStream(ctx context.Context, body io.Reader, h domain.StreamHandlers) error {
	var buf []byte
	var pending domain.EventType
	chunk := make([]byte, readChunkSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				i := bytes.IndexByte(buf, '\n')
				if i < 0 {
					break
				}
				line := buf[:i]
				buf = buf[i+1:]
				if derr := consumeLine(line, &pending, h); derr != nil {
					return derr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

// consumeLine handles one complete line. It tracks the pending event tag and
// dispatches when the paired data line arrives.
func consumeLine(line []byte, pending *domain.EventType, h domain.StreamHandlers) error {
	line = bytes.TrimSuffix(line, []byte("\r"))

	switch {
	case len(line) == 0 || line[0] == ':':
		// Blank separator or comment.
		return nil
	case bytes.HasPrefix(line, prefixEvent):
		*pending = domain.EventType(bytes.TrimSpace(bytes.TrimPrefix(line, prefixEvent)))
		return nil
	case bytes.HasPrefix(line, prefixData):
		if *pending == "" {
			// Orphan data line, protocol violation. Dropped, not escalated.
			return nil
		}
		tag := *pending
		*pending = ""
		return dispatch(tag, bytes.TrimPrefix(line, prefixData), h)
	default:
		// Unrecognized field (id:, retry:, ...). Ignored.
		return nil
	}
}

// dispatch decodes data into the payload type for tag and invokes the
// matching callback. Unknown tags are dropped. A JSON decode failure is
// fatal for the stream; there is no partial-event recovery.
func dispatch(tag domain.EventType, data []byte, h domain.StreamHandlers) error {
	decode := func(v any) error {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w: decode %s payload: %v", domain.ErrStreamProtocol, tag, err)
		}
		return nil
	}

	switch tag {
	case domain.EventStatus:
		var p domain.StatusPayload
		if err := decode(&p); err != nil {
			return err
		}
		if h.OnStatus != nil {
			h.OnStatus(p)
		}
	case domain.EventThinking:
		var p domain.ThinkingPayload
		if err := decode(&p); err != nil {
			return err
		}
		if h.OnThinking != nil {
			h.OnThinking(p)
		}
	case domain.EventToolUse:
		var p domain.ToolUsePayload
		if err := decode(&p); err != nil {
			return err
		}
		if h.OnToolUse != nil {
			h.OnToolUse(p)
		}
	case domain.EventToolResult:
		var p domain.ToolResultPayload
		if err := decode(&p); err != nil {
			return err
		}
		if h.OnToolResult != nil {
			h.OnToolResult(p)
		}
	case domain.EventSession:
		var p domain.SessionPayload
		if err := decode(&p); err != nil {
			return err
		}
		if h.OnSession != nil {
			h.OnSession(p)
		}
	case domain.EventResult:
		var p domain.ResultPayload
		if err := decode(&p); err != nil {
			return err
		}
		if h.OnResult != nil {
			h.OnResult(p)
		}
	case domain.EventComplete:
		var p domain.CompletePayload
		if err := decode(&p); err != nil {
			return err
		}
		if h.OnComplete != nil {
			h.OnComplete(p)
		}
	case domain.EventError:
		var p domain.ErrorPayload
		if err := decode(&p); err != nil {
			return err
		}
		if h.OnError != nil {
			h.OnError(p)
		}
	}
	return nil
}
