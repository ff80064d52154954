package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"resume-optimizer/pkg/document"

	"go.uber.org/zap"
)

// Client calls the ai-service chat endpoint to produce an optimized
// single-page resume as a self-contained HTML document.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// optimizeInstructions is the fixed instructional prompt. The reply is
// requested as a one-field JSON envelope; downstream extraction still
// defends against replies that ignore the schema.
const optimizeInstructions = `You are an expert resume writer. Rewrite the resume below so it is optimized for the given job requirements.

Output rules (enforce exactly):
- Produce a COMPLETE, self-contained HTML document: <!DOCTYPE html>, <html>, <head> with inline <style>, and <body>. No external stylesheets, scripts, fonts, or images.
- The document MUST fit on a single A4 page with 0.5 inch margins. Prefer concise bullets over prose; drop the least relevant content first.
- Keep every stated fact truthful; reorder and rephrase, never invent.
- Respond with ONLY a single JSON object of the form {"htmlres": "<the full HTML document as one JSON string>"} and NOTHING ELSE - no commentary, no markdown, no code fences.`

type chatRequest struct {
	Agent string `json:"agent"`
	Input string `json:"input"`
}

type chatResponse struct {
	Agent  string `json:"agent"`
	Output string `json:"output"`
}

// OptimizeResume inlines the resume stored at resumePath, sends it with
// the job text to the ai-service, and returns the model's reply text
// verbatim. A non-empty language asks the model to write the resume in
// that language. Recovering HTML from the reply is the extractor's job.
func (c *Client) OptimizeResume(ctx context.Context, resumePath, jobText, language string) (string, error) {
	resumeText, err := document.Inline(resumePath)
	if err != nil {
		return "", err
	}

	input := optimizeInstructions
	if language != "" {
		input += "\n- Write the resume in " + language + "."
	}
	input += "\n\nJOB REQUIREMENTS:\n" + jobText +
		"\n\nRESUME:\n" + resumeText

	b, err := json.Marshal(chatRequest{Agent: "auto", Input: input})
	if err != nil {
		return "", err
	}

	c.logger.Info("calling ai-service", zap.String("url", c.BaseURL+"/v1/chat"), zap.Int("payload_bytes", len(b)))

	resp, err := c.doPostWithRetry(ctx, "/v1/chat", b)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai-service returned non-200 status: %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(respBytes, &chat); err != nil {
		return "", fmt.Errorf("ai-service returned malformed response: %w", err)
	}

	c.logger.Info("ai-service replied", zap.String("agent", chat.Agent), zap.Int("output_bytes", len(chat.Output)))
	return chat.Output, nil
}

// doPostWithRetry performs an HTTP POST to the given path with
// retry/backoff on transport errors.
func (c *Client) doPostWithRetry(ctx context.Context, path string, body []byte) (*http.Response, error) {
	attempts := 3
	var lastErr error
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i < attempts-1 {
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
