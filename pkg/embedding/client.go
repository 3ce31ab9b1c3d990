// Package embedding wraps a fixed-dimension embedding endpoint used to
// compute PaperEmbedding vectors during ingestion.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/paper-app/backend/internal/retry"
)

type Client struct {
	http      *resty.Client
	model     string
	dimension int
}

func NewClient(baseURL, apiKey, model string, dimension int) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json")
	return &Client{http: rc, model: model, dimension: dimension}
}

func (c *Client) Model() string { return c.model }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func isRetryableHTTP(err error) bool { return err != nil }

// EmbedBatch returns one vector per input text, in order. Batch size is
// capped by the caller per spec's embedding_max_batch_size configuration.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out embedResponse
	err := retry.Do(ctx, 3, time.Second, 30*time.Second, isRetryableHTTP, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(embedRequest{Model: c.model, Input: texts}).
			SetResult(&out).
			Post("/embeddings")
		if err != nil {
			return err
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("embedding: server error %d", resp.StatusCode())
		}
		if resp.StatusCode() >= 400 {
			return fmt.Errorf("embedding: client error %d: %s", resp.StatusCode(), resp.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(out.Data))
	}
	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
