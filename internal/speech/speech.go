// Package speech forwards text-to-speech and speech-to-text requests to the
// Google Cloud Speech REST APIs. It does no audio processing of its own.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTTSURL       = "https://texttospeech.googleapis.com/v1/text:synthesize"
	DefaultSTTURL       = "https://speech.googleapis.com/v1/speech:recognize"
	DefaultLanguageCode = "en-IN"
	maxResponseSize     = 20 * 1024 * 1024
)

var (
	// ErrEmptyInput is returned when there is no text or audio to send.
	ErrEmptyInput = errors.New("speech input is empty")
	// ErrEmptyResult is returned when the backend answers without audio or transcript.
	ErrEmptyResult = errors.New("speech backend returned an empty result")
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("speech backend is not configured")
	// ErrBackend wraps transport failures and non-200 answers.
	ErrBackend = errors.New("speech backend error")
)

// Client talks to the synthesis and recognition endpoints.
type Client struct {
	apiKey string
	ttsURL string
	sttURL string
	http   *http.Client
}

// NewClient returns a Client using the public Google endpoints.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		ttsURL: DefaultTTSURL,
		sttURL: DefaultSTTURL,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithEndpoints overrides the synthesis and recognition URLs.
func (c *Client) WithEndpoints(ttsURL, sttURL string) *Client {
	c.ttsURL = ttsURL
	c.sttURL = sttURL
	return c
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

type recognizeRequest struct {
	Config struct {
		LanguageCode string `json:"languageCode"`
	} `json:"config"`
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

// TextToSpeech synthesizes text and returns MP3 audio. languageCode defaults to
// en-IN and an empty voiceName lets the backend choose.
func (c *Client) TextToSpeech(ctx context.Context, text, languageCode, voiceName string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	var req synthesizeRequest
	req.Input.Text = text
	req.Voice.LanguageCode = orDefault(languageCode, DefaultLanguageCode)
	req.Voice.Name = voiceName
	req.AudioConfig.AudioEncoding = "MP3"

	var resp synthesizeResponse
	if err := c.post(ctx, c.ttsURL, req, &resp); err != nil {
		return nil, err
	}
	if resp.AudioContent == "" {
		return nil, ErrEmptyResult
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode audio content: %v", ErrBackend, err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyResult
	}
	return audio, nil
}

// SpeechToText transcribes audio. Transcripts of consecutive results are joined
// with a space.
func (c *Client) SpeechToText(ctx context.Context, audio []byte, languageCode string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyInput
	}

	var req recognizeRequest
	req.Config.LanguageCode = orDefault(languageCode, DefaultLanguageCode)
	req.Audio.Content = base64.StdEncoding.EncodeToString(audio)

	var resp recognizeResponse
	if err := c.post(ctx, c.sttURL, req, &resp); err != nil {
		return "", err
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) > 0 {
			if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
				parts = append(parts, t)
			}
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyResult
	}
	return strings.Join(parts, " "), nil
}

func (c *Client) post(ctx context.Context, url string, payload, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrBackend, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("Speech backend returned an error")
		return fmt.Errorf("%w: status %d: %s", ErrBackend, resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrBackend, err)
	}
	return nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
