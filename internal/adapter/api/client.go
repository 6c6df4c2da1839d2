package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"storyweave/internal/domain"
	"storyweave/internal/infra/config"
	"storyweave/internal/infra/tracer"
)

// maxResponseBody caps how much of a CRUD response body we read.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// Circuit breaker defaults for CRUD calls.
const (
	cbMaxFailures uint32 = 5
	cbTimeout            = 30 * time.Second
	cbInterval           = 60 * time.Second
)

// Client talks to the story backend: JSON CRUD calls plus the streaming
// generation endpoint. It implements domain.StoryService and
// domain.GenerationStreamer.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]

	mu    sync.RWMutex
	token string
}

// NewClient creates a backend client from cfg. The bearer token may be empty
// until Login or SetToken provides one.
func NewClient(cfg config.APIConfig, logger *slog.Logger) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout()},
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMin)/60.0), max(cfg.Burst, 1)),
		token:   cfg.Token,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:     "storyweave-api",
		Interval: cbInterval,
		Timeout:  cbTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("api circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login implements domain.StoryService. On success the returned token is
// also installed on the client.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "api.login")
	defer span.End()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("marshal login request: %w", err)
	}

	respBody, err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("unmarshal login response: %w", err)
	}
	if resp.Token == "" {
		return "", domain.NewDomainError("api.Login", domain.ErrAuthInvalid, "empty token in response")
	}

	c.SetToken(resp.Token)
	tracer.SetOK(span)
	return resp.Token, nil
}

// GetStory implements domain.StoryService.
func (c *Client) GetStory(ctx context.Context, id string) (*domain.Story, error) {
	ctx, span := tracer.StartSpan(ctx, "api.get_story",
		trace.WithAttributes(tracer.StringAttr("story.id", id)),
	)
	defer span.End()

	respBody, err := c.doJSON(ctx, http.MethodGet, "/api/stories/"+id, nil)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var story domain.Story
	if err := json.Unmarshal(respBody, &story); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("unmarshal story: %w", err)
	}
	tracer.SetOK(span)
	return &story, nil
}

// ListLibrary implements domain.StoryService.
func (c *Client) ListLibrary(ctx context.Context) ([]domain.LibraryEntry, error) {
	ctx, span := tracer.StartSpan(ctx, "api.list_library")
	defer span.End()

	respBody, err := c.doJSON(ctx, http.MethodGet, "/api/stories", nil)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var resp struct {
		Stories []domain.LibraryEntry `json:"stories"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("unmarshal library: %w", err)
	}
	tracer.SetOK(span)
	return resp.Stories, nil
}

// doJSON performs a JSON request through the rate limiter and circuit
// breaker and returns the response body. Non-200 responses are mapped to
// domain sentinels.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	return c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if tok := c.bearer(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, mapHTTPError(resp.StatusCode, respBody)
		}
		return respBody, nil
	})
}

// mapHTTPError maps an HTTP status code + response body to a domain error,
// so callers can classify failures with errors.Is.
func mapHTTPError(statusCode int, body []byte) error {
	detail := fmt.Sprintf("API error %d: %s", statusCode, bytes.TrimSpace(body))

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrAuthInvalid, detail)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, detail)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimit, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s", domain.ErrServerError, detail)
	default:
		return fmt.Errorf("%s", detail)
	}
}
