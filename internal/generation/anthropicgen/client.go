// Package anthropicgen adapts the Anthropic SDK into a contracts.Generator,
// for use against a local, HIPAA-isolated Anthropic-compatible endpoint.
package anthropicgen

import (
	"context"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/intelligencedev/clinical-core/internal/config"
	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/observability"
)

// Client wraps the Anthropic SDK to satisfy contracts.Generator.
type Client struct {
	sdk   anthropic.Client
	model string
}

// New builds a Client from an endpoint config, pointed at a local
// Anthropic-compatible server so patient data never leaves the deployment
// boundary.
func New(cfg config.EndpointConfig, model string) *Client {
	httpClient := observability.NewHTTPClient(nil)
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &Client{sdk: anthropic.NewClient(opts...), model: model}
}

// Generate issues a single, non-streaming message call, honoring ctx
// cancellation.
func (c *Client) Generate(ctx context.Context, system, user string, gcfg contracts.GenerationConfig) (contracts.GenerationResult, error) {
	log := observability.LoggerWithTrace(ctx)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(gcfg.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	params.Temperature = anthropic.Float(gcfg.Temperature)

	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Dur("duration", dur).Msg("anthropic_generate_error")
		return contracts.GenerationResult{}, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	return contracts.GenerationResult{
		Text:         text.String(),
		Tokens:       int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		LatencyMS:    dur.Milliseconds(),
		ModelVersion: string(resp.Model),
	}, nil
}

var _ contracts.Generator = (*Client)(nil)
