// Package llm adapts the text and image generation clients to the narrow
// interfaces used by the enrichment stages.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/ollama"
	"github.com/sells-group/prospect-cli/pkg/sdwebui"
)

// TextGenerator produces text from a system prompt and a user prompt.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// ImageGenerator renders a prompt to encoded image bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ErrEmptyResponse is returned when a generator answers with no content.
var ErrEmptyResponse = errors.New("llm: empty response")

// transient marks retryable HTTP statuses so resilience.IsTransient picks
// them up.
func transient(err error, status int) error {
	if status != 0 && resilience.IsTransientHTTPStatus(status) {
		return resilience.NewTransientError(err, status)
	}
	return err
}

// Ollama generates text with an Ollama server.
type Ollama struct {
	client ollama.Client
	model  string
}

// NewOllama creates an Ollama-backed TextGenerator.
func NewOllama(client ollama.Client, model string) *Ollama {
	return &Ollama{client: client, model: model}
}

func (o *Ollama) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.client.Generate(ctx, ollama.GenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		System:  system,
		Options: ollama.DefaultOptions,
	})
	if err != nil {
		var apiErr *ollama.APIError
		if errors.As(err, &apiErr) {
			return "", transient(err, apiErr.StatusCode)
		}
		return "", err
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Response, nil
}

// Anthropic generates text with the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates an Anthropic-backed TextGenerator.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = int64(ollama.DefaultOptions.MaxTokens)
	}
	return &Anthropic{client: client, model: model, maxTokens: maxTokens}
}

func (a *Anthropic) Generate(ctx context.Context, system, prompt string) (string, error) {
	temp := ollama.DefaultOptions.Temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", transient(err, anthropic.StatusCode(err))
	}
	resp.Usage.LogCost(a.model, "generate")

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// StableDiffusion renders images with a Stable Diffusion web UI server.
type StableDiffusion struct {
	client sdwebui.Client
}

// NewStableDiffusion creates an sdwebui-backed ImageGenerator.
func NewStableDiffusion(client sdwebui.Client) *StableDiffusion {
	return &StableDiffusion{client: client}
}

func (s *StableDiffusion) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := s.client.Txt2Img(ctx, sdwebui.NewMockupRequest(prompt))
	if err != nil {
		var apiErr *sdwebui.APIError
		if errors.As(err, &apiErr) {
			return nil, transient(err, apiErr.StatusCode)
		}
		return nil, err
	}
	img, err := resp.FirstImage()
	if err != nil {
		return nil, eris.Wrap(err, "llm: generate image")
	}
	return img, nil
}
