// Package embedding implements contracts.Embedder against an
// OpenAI-compatible embeddings HTTP endpoint.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/intelligencedev/clinical-core/internal/config"
	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/observability"
)

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Client calls a configured embeddings endpoint, synchronously, honoring
// cancellation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	dim        int
	timeout    time.Duration
}

// New builds a Client. dim is the expected embedding dimension, used to
// satisfy contracts.Embedder.Dimension without a round trip.
func New(cfg config.EndpointConfig, model string, dim int) *Client {
	client := observability.NewHTTPClient(nil)
	if cfg.APIKey != "" {
		client = observability.WithHeaders(client, map[string]string{"Authorization": "Bearer " + cfg.APIKey})
	}
	return &Client{httpClient: client, baseURL: cfg.BaseURL, model: model, dim: dim, timeout: 30 * time.Second}
}

func (c *Client) Dimension() int      { return c.dim }
func (c *Client) ModelVersion() string { return c.model }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding: no inputs")
	}
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(embedReq{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: read response body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedding: status %s: %s", resp.Status, string(bodyBytes))
	}

	var er embedResp
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		return nil, fmt.Errorf("embedding: parse response: %w", err)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: unexpected count: got %d, want %d", len(er.Data), len(texts))
	}
	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
	}
	return out, nil
}

var _ contracts.Embedder = (*Client)(nil)
