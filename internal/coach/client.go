// Package coach asks an OpenAI-compatible chat model for feedback on a
// replay prompt.
package coach

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "deepseek/deepseek-chat"
	defaultTimeout = 120 * time.Second
)

const systemPrompt = "You are an experienced Starcraft 2 coach. Answer in plain text, " +
	"in a few short paragraphs, and refer to in-game timestamps where useful."

var (
	ErrDisabled      = errors.New("coach: no API key configured")
	ErrEmptyPrompt   = errors.New("coach: prompt is empty")
	ErrEmptyResponse = errors.New("coach: received empty response")
)

// Client wraps a go-openai client pointed at any compatible endpoint
type Client struct {
	openaiClient *openai.Client
	modelName    string
	logger       *zap.Logger
}

// Option configures a Client
type Option func(*options)

type options struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// WithBaseURL points the client at a different endpoint
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithModel sets the chat model name
func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// NewClient returns nil when apiKey is empty, which callers treat as disabled
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		return nil
	}

	o := &options{
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimSuffix(o.baseURL, "/")
	config.HTTPClient = o.httpClient

	return &Client{
		openaiClient: openai.NewClientWithConfig(config),
		modelName:    o.model,
		logger:       o.logger,
	}
}

// Feedback sends prompt to the model and returns its reply
func (c *Client) Feedback(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", ErrDisabled
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	start := time.Now()
	resp, err := c.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("coach feedback received",
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("took", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}
