// Package sdwebui is a minimal client for the Stable Diffusion web UI API.
package sdwebui

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "http://127.0.0.1:7860"

// Client generates images with a Stable Diffusion web UI server.
type Client interface {
	Txt2Img(ctx context.Context, req Txt2ImgRequest) (*Txt2ImgResponse, error)
	Ping(ctx context.Context) error
}

// Txt2ImgRequest is the request body for POST /sdapi/v1/txt2img.
type Txt2ImgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
	SamplerName    string  `json:"sampler_name"`
	BatchSize      int     `json:"batch_size"`
	NIter          int     `json:"n_iter"`
}

// NewMockupRequest returns a request with the fixed mockup generation
// parameters.
func NewMockupRequest(prompt string) Txt2ImgRequest {
	return Txt2ImgRequest{
		Prompt:         prompt,
		NegativePrompt: "blurry, low quality, distorted, ugly, bad anatomy, watermark, text, signature",
		Width:          512,
		Height:         512,
		Steps:          20,
		CFGScale:       7,
		SamplerName:    "DPM++ 2M Karras",
		BatchSize:      1,
		NIter:          1,
	}
}

// Txt2ImgResponse holds base64-encoded images.
type Txt2ImgResponse struct {
	Images []string `json:"images"`
}

// FirstImage decodes the first returned image.
func (r *Txt2ImgResponse) FirstImage() ([]byte, error) {
	if len(r.Images) == 0 {
		return nil, eris.New("sdwebui: response contained no images")
	}
	data, err := base64.StdEncoding.DecodeString(r.Images[0])
	if err != nil {
		return nil, eris.Wrap(err, "sdwebui: decode image")
	}
	return data, nil
}

// APIError is returned when the server responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sdwebui: HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default server URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
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
	http    *http.Client
}

// NewClient creates a client. Per-call deadlines come from the caller's
// context.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Txt2Img(ctx context.Context, req Txt2ImgRequest) (*Txt2ImgResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "sdwebui: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "sdwebui: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var result Txt2ImgResponse
	if err := c.do(httpReq, &result); err != nil {
		return nil, eris.Wrap(err, "sdwebui: txt2img")
	}
	return &result, nil
}

// Ping checks reachability via GET /sdapi/v1/options.
func (c *httpClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sdapi/v1/options", nil)
	if err != nil {
		return eris.Wrap(err, "sdwebui: create request")
	}
	var opts map[string]any
	if err := c.do(httpReq, &opts); err != nil {
		return eris.Wrap(err, "sdwebui: ping")
	}
	return nil
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
