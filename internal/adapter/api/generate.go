package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"storyweave/internal/domain"
	"storyweave/internal/infra/tracer"
)

// streamClient has no overall timeout: a generation stream stays open for
// the full lifetime of the job. Cancellation happens through the request
// context.
var streamClient = &http.Client{}

// StreamGeneration implements domain.GenerationStreamer. It POSTs the
// generation request (JSON for text jobs, multipart for image jobs), checks
// the response status, and then hands the body to the SSE reader. It returns
// when the stream ends; the caller observes progress only through the
// handler callbacks.
func (c *Client) StreamGeneration(ctx context.Context, params domain.GenerationParams, h domain.StreamHandlers) error {
	ctx, span := tracer.StartSpan(ctx, "api.stream_generation")
	defer span.End()

	var body io.Reader
	var contentType string
	var err error
	if params.ImagePath != "" {
		body, contentType, err = multipartBody(params)
	} else {
		body, contentType, err = jsonBody(params)
	}
	if err != nil {
		tracer.RecordError(span, err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stories/generate", body)
	if err != nil {
		tracer.RecordError(span, err)
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/event-stream")
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		tracer.RecordError(span, err)
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := mapHTTPError(resp.StatusCode, respBody)
		tracer.RecordError(span, err)
		return err
	}

	c.logger.Debug("generation stream opened", "image", params.ImagePath != "")

	if err := readEventStream(ctx, resp.Body, h); err != nil {
		tracer.RecordError(span, err)
		return err
	}
	tracer.SetOK(span)
	return nil
}

// jsonBody builds the request body for a text-prompt job.
func jsonBody(params domain.GenerationParams) (io.Reader, string, error) {
	payload := map[string]string{"prompt": params.Prompt}
	if params.Style != "" {
		payload["style"] = params.Style
	}
	if params.Length != "" {
		payload["length"] = params.Length
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("marshal generation request: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// multipartBody builds the request body for an image-based job. The image
// file is read fully so the request can carry a plain byte buffer.
func multipartBody(params domain.GenerationParams) (io.Reader, string, error) {
	f, err := os.Open(params.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", filepath.Base(params.ImagePath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy image: %w", err)
	}
	if params.Prompt != "" {
		if err := w.WriteField("prompt", params.Prompt); err != nil {
			return nil, "", fmt.Errorf("write prompt field: %w", err)
		}
	}
	if params.Style != "" {
		if err := w.WriteField("style", params.Style); err != nil {
			return nil, "", fmt.Errorf("write style field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
