// Package ai wraps an OpenAI-compatible chat completions API for itinerary
// generation, budget analysis and free-text parsing.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/models"
)

// ErrNoAPIKey is returned by operations that cannot run without a language model.
var ErrNoAPIKey = errors.New("no language model API key configured (set openai_api_key)")

const requestTimeout = 90 * time.Second

// APIError is a non-2xx answer from the model provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model API returned status %d: %s", e.Status, e.Message)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type chatOptions struct {
	temperature float64
	maxTokens   int
	jsonObject  bool
}

// Client talks to the provider named by openai_base_url.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient builds a client from the API config. A missing base URL or
// model falls back to the OpenAI defaults.
func NewClient(cfg models.APIConfig) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/")
	if base == "" {
		base = constants.DefaultOpenAIBaseURL
	}
	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		model = constants.DefaultOpenAIModel
	}
	return &Client{
		baseURL: base,
		apiKey:  strings.TrimSpace(cfg.OpenAIAPIKey),
		model:   model,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// WithHTTPClient replaces the HTTP client, used by tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) HasKey() bool  { return c.apiKey != "" }
func (c *Client) Model() string { return c.model }

// endpoint joins path onto the base URL so that exactly one /v1 segment is present.
func (c *Client) endpoint(path string) string {
	p := strings.TrimLeft(path, "/")
	hasV1 := strings.HasSuffix(c.baseURL, "/v1")
	if strings.HasPrefix(p, "v1/") {
		if hasV1 {
			return c.baseURL + "/" + strings.TrimPrefix(p, "v1/")
		}
		return c.baseURL + "/" + p
	}
	if hasV1 {
		return c.baseURL + "/" + p
	}
	return c.baseURL + "/v1/" + p
}

func (c *Client) chat(ctx context.Context, messages []Message, opts chatOptions) (string, error) {
	if !c.HasKey() {
		return "", ErrNoAPIKey
	}
	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.temperature,
		MaxTokens:   opts.maxTokens,
	}
	if opts.jsonObject {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := c.do(ctx, http.MethodPost, "/chat/completions", req)
	if err != nil {
		return "", err
	}
	var resp chatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", &MalformedResponseError{Reason: "chat response is not JSON", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &MalformedResponseError{Reason: "chat response has no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model API request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read model API response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(payload)}
	}
	return payload, nil
}

// errorMessage pulls error.message out of a provider error body.
func errorMessage(payload []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Error.Message != "" {
			return body.Error.Message
		}
		if body.Message != "" {
			return body.Message
		}
	}
	text := strings.TrimSpace(string(payload))
	if len(text) > 300 {
		text = text[:300]
	}
	return text
}
