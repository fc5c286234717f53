// Package openaigen adapts the OpenAI-compatible SDK into a
// contracts.Generator, for use against a local OpenAI-compatible server
// (vLLM, llama.cpp, mlx_lm) so patient data stays on-host.
package openaigen

import (
	"context"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/intelligencedev/clinical-core/internal/config"
	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/observability"
)

// Client wraps the OpenAI-compatible SDK to satisfy contracts.Generator.
type Client struct {
	sdk   sdk.Client
	model string
}

// New builds a Client pointed at cfg.BaseURL, defaulting to the public
// OpenAI API surface when unset (self-hosted deployments always set it).
func New(cfg config.EndpointConfig, model string) *Client {
	httpClient := observability.NewHTTPClient(nil)
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

// Generate issues a single chat-completion call, honoring ctx cancellation.
func (c *Client) Generate(ctx context.Context, system, user string, gcfg contracts.GenerationConfig) (contracts.GenerationResult, error) {
	log := observability.LoggerWithTrace(ctx)

	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(system),
			sdk.UserMessage(user),
		},
		Temperature: sdk.Float(gcfg.Temperature),
		MaxTokens:   sdk.Int(int64(gcfg.MaxTokens)),
	}

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Dur("duration", dur).Msg("openai_generate_error")
		return contracts.GenerationResult{}, err
	}
	if len(comp.Choices) == 0 {
		return contracts.GenerationResult{}, nil
	}

	return contracts.GenerationResult{
		Text:         comp.Choices[0].Message.Content,
		Tokens:       int(comp.Usage.TotalTokens),
		LatencyMS:    dur.Milliseconds(),
		ModelVersion: comp.Model,
	}, nil
}

var _ contracts.Generator = (*Client)(nil)
