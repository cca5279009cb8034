package pageindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// LLMClient sends a single prompt and returns the model's reply.
type LLMClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// OpenAIConfig holds configuration for the OpenAI chat client.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string        // Optional, for OpenAI-compatible endpoints and tests
	MaxRetries int           // Attempts per completion (default 3)
	RetryDelay time.Duration // Base backoff between attempts (default 2s)
	Timeout    time.Duration // HTTP timeout (default 300s)
	HTTPClient *http.Client  // Optional (tests)
	Logger     *slog.Logger
}

// OpenAIClient implements LLMClient with the official OpenAI SDK.
type OpenAIClient struct {
	model      string
	maxRetries int
	retryDelay time.Duration
	client     openai.Client
	logger     *slog.Logger
}

// NewOpenAIClient creates a new OpenAI chat client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = DefaultOptions().Model
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	// Retries are handled here so they show up in our logs.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client:     openai.NewClient(opts...),
		logger:     cfg.Logger.With("llm", "openai", "model", cfg.Model),
	}
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete sends a system and user message and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	var content string

	err := retry.Do(
		func() error {
			resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
				Model: openai.ChatModel(c.model),
				Messages: []openai.ChatCompletionMessageParamUnion{
					openai.SystemMessage(system),
					openai.UserMessage(prompt),
				},
				Temperature: openai.Float(0),
			})
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return errors.New("no choices in response")
			}
			content = resp.Choices[0].Message.Content
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("llm call failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}
	return content, nil
}

// isRetryable reports whether a completion error is worth another attempt.
// Rate limits, server errors and transport errors are; other API errors are not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}
