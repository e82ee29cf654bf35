/*
Package geminiservice is the generation backend: it fills a prompt template with
a key/value context, sends it to Gemini with a structured-output schema and
returns the raw JSON text of the first candidate.
*/
package geminiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"text/template"
	"time"

	"AyurAhar_V1/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	structuredMimeType = "application/json"
	// maxResponseSize limits the response body to prevent memory exhaustion.
	maxResponseSize = 10 * 1024 * 1024
)

// initialBackoff is doubled after every failed attempt.
var initialBackoff = 1 * time.Second

// Request is one generation call: a system prompt, a template filled from
// Context, and the schema the answer must follow.
type Request struct {
	// Task names the flow for logs and metrics, e.g. "diet_plan".
	Task         string
	SystemPrompt string
	Template     string
	Context      map[string]string
	Schema       *Schema
}

// Backend generates structured text for a Request. Implementations must honour
// ctx cancellation and deadlines.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// APIError is a non-200 answer from the Gemini API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned non-200 status: %d, Body: %s", e.StatusCode, e.Body)
}

// retryable reports whether another attempt may succeed.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("gemini backend is not configured")

// --- Structs for Gemini API Request/Response ---

type geminiPayload struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	ResponseSchema   *Schema `json:"response_schema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Config configures a Client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	// MaxRetries is the number of attempts made after the first one fails.
	MaxRetries int
	// HTTPClient defaults to a client without its own timeout; callers bound
	// each call with a context deadline instead.
	HTTPClient *http.Client
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a Client for cfg.
func NewClient(cfg Config) *Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Generate renders the prompt and calls Gemini, retrying transient failures
// with exponential backoff. Cancellation of ctx stops both the in-flight
// request and any pending backoff.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.cfg.APIKey == "" {
		log.Error().Msg("FATAL: GEMINI_API_KEY environment variable is not set.")
		return "", ErrNotConfigured
	}

	userPrompt, err := RenderPrompt(req.Template, req.Context)
	if err != nil {
		return "", err
	}

	payload := geminiPayload{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: userPrompt}}},
		},
		GenerationConfig: &generationConfig{
			ResponseMimeType: structuredMimeType,
			ResponseSchema:   req.Schema,
		},
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	logger := log.With().Str("task", req.Task).Str("model", c.cfg.Model).Logger()
	var lastErr error

	attempts := c.cfg.MaxRetries + 1
	for i := 0; i < attempts; i++ {
		if i > 0 {
			backoff := initialBackoff * time.Duration(math.Pow(2, float64(i-1)))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("gemini call abandoned after %d attempts: %w", i, ctx.Err())
			case <-time.After(backoff):
			}
		}

		logger.Info().Msgf("Attempt %d: Calling Gemini API...", i+1)
		text, err := c.do(ctx, payloadBytes)
		if err == nil {
			metrics.BackendAttempts.WithLabelValues(req.Task, "ok").Inc()
			return text, nil
		}

		lastErr = err
		metrics.BackendAttempts.WithLabelValues(req.Task, "error").Inc()
		logger.Warn().Err(err).Msgf("Attempt %d failed", i+1)

		if ctx.Err() != nil {
			return "", fmt.Errorf("gemini call abandoned: %w", ctx.Err())
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return "", err
		}
		if errors.Is(err, errNoContent) {
			return "", err
		}
	}

	return "", fmt.Errorf("failed to call Gemini API after %d attempts: %w", attempts, lastErr)
}

var errNoContent = errors.New("no content found in Gemini response")

func (c *Client) do(ctx context.Context, payload []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", errNoContent
	}

	var sb strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// RenderPrompt fills tmpl with values from data. Keys referenced by the
// template but absent from data are an error.
func RenderPrompt(tmpl string, data map[string]string) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}
	if data == nil {
		data = map[string]string{}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}
	return buf.String(), nil
}
