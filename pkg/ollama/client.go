// Package ollama is a minimal client for the Ollama text-generation API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3"
)

// Client generates text with a local Ollama server.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	ListModels(ctx context.Context) ([]Model, error)
}

// GenerateRequest is the request body for POST /api/generate.
type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options"`
}

// GenerateOptions holds sampling parameters.
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultOptions are the sampling parameters used for every generation stage.
var DefaultOptions = GenerateOptions{Temperature: 0.7, TopP: 0.9, MaxTokens: 2000}

// GenerateResponse is the non-streaming response from POST /api/generate.
type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Model is an installed model as listed by GET /api/tags.
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// APIError is returned when Ollama responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ollama: HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default server URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates an Ollama client. Per-call deadlines come from the
// caller's context.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "ollama: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "ollama: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var result GenerateResponse
	if err := c.do(httpReq, &result); err != nil {
		return nil, eris.Wrap(err, "ollama: generate")
	}
	return &result, nil
}

func (c *httpClient) ListModels(ctx context.Context) ([]Model, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, eris.Wrap(err, "ollama: create request")
	}

	var result struct {
		Models []Model `json:"models"`
	}
	if err := c.do(httpReq, &result); err != nil {
		return nil, eris.Wrap(err, "ollama: list models")
	}
	if result.Models == nil {
		return []Model{}, nil
	}
	return result.Models, nil
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
