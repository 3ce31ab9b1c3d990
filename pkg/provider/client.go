// Package provider holds the LLM chat clients and TTS engine that make up
// the Provider Pool (C1): identical API surface, distinct credentials,
// round-robin distribution, and a shared retry+backoff wrapper.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/paper-app/backend/internal/retry"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse is the parsed reply text plus the model actually used.
type ChatResponse struct {
	Content string
	Model   string
}

// ChatClient is the API surface shared by every credential-distinct LLM client.
type ChatClient interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Config configures one OpenAI-compatible chat client.
type Config struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type openAIClient struct {
	name   string
	model  string
	client *resty.Client
}

// NewOpenAIClient builds a resty-backed OpenAI-compatible chat client.
func NewOpenAIClient(cfg Config) ChatClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &openAIClient{name: cfg.Name, model: cfg.Model, client: rc}
}

func (c *openAIClient) Name() string { return c.name }

type chatCompletionBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *openAIClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	body := chatCompletionBody{Model: model, Messages: req.Messages, Temperature: req.Temperature}

	var out chatCompletionResponse
	var resp *resty.Response
	err := retry.Do(ctx, 3, time.Second, 30*time.Second, isRetryableHTTP, func(ctx context.Context) error {
		r, err := c.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			Post("/chat/completions")
		resp = r
		if err != nil {
			return err
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("chat completion: server error %d", resp.StatusCode())
		}
		if resp.StatusCode() >= 400 {
			return retryableSkip{fmt.Errorf("chat completion: client error %d: %s", resp.StatusCode(), resp.String())}
		}
		return nil
	})
	if err != nil {
		return ChatResponse{}, err
	}
	if len(out.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("chat completion: empty choices")
	}
	return ChatResponse{Content: out.Choices[0].Message.Content, Model: out.Model}, nil
}

// retryableSkip marks an error as explicitly non-retryable (4xx client error).
type retryableSkip struct{ error }

func isRetryableHTTP(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(retryableSkip); ok {
		return false
	}
	return true
}
