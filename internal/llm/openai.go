// Package llm talks to an OpenAI-compatible chat completions endpoint. The default
// endpoint is Gemini's OpenAI compatibility layer.
package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/pipeline"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-1.5-pro"

	collaborator = "llm"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client implements pipeline.LLM.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		// retries belong to the pipeline
		option.WithMaxRetries(0),
	)
	return &Client{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate sends one system and one user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", pipeline.Permanent(collaborator, errors.New("response has no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps SDK failures onto the pipeline taxonomy: throttling, timeouts, server
// errors and network failures are transient; auth, quota and validation errors are not.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return pipeline.Permanent(collaborator, ctx.Err())
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		wrapped := errors.Errorf("http %d: %s", apiErr.StatusCode, apiMessage(apiErr))
		if apiErr.Code == "insufficient_quota" {
			return pipeline.Permanent(collaborator, wrapped)
		}
		switch {
		case apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusConflict,
			apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode >= 500:
			return pipeline.Transient(collaborator, wrapped)
		default:
			return pipeline.Permanent(collaborator, wrapped)
		}
	}
	return pipeline.Transient(collaborator, err)
}

func apiMessage(e *openai.Error) string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return http.StatusText(e.StatusCode)
}
