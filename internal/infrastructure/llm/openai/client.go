// Package openai adapts the OpenAI chat and embeddings APIs to the core
// Generator/Embedder ports, with per-call token usage converted into an
// estimated USD cost.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/infrastructure/resilience"
)

// Per-million-token prices. Unknown models cost zero rather than guessing.
var pricePerMillion = map[string]struct{ in, out float64 }{
	"gpt-4o-mini":            {in: 0.15, out: 0.60},
	"gpt-4o":                 {in: 2.50, out: 10.00},
	"text-embedding-3-small": {in: 0.02},
	"text-embedding-3-large": {in: 0.13},
}

type Client struct {
	api        *openai.Client
	genModel   string
	embedModel string
	limiter    *rate.Limiter
	exec       *resilience.Executor
}

func New(apiKey, baseURL, genModel, embedModel string, requestsPerSecond float64, exec *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "openai client", errors.New("OPENAI_API_KEY is required"))
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig())
	}

	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		genModel:   genModel,
		embedModel: embedModel,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		exec:       exec,
	}, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Complete(ctx context.Context, prompt string) (string, domain.Usage, error) {
	return g.client.chat(ctx, prompt, nil)
}

func (g *Generator) CompleteJSON(ctx context.Context, prompt string) (string, domain.Usage, error) {
	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	out, usage, err := g.client.chat(ctx, prompt, format)
	if err != nil {
		return "", usage, err
	}
	// JSON mode still occasionally wraps the object in prose.
	return ExtractJSONObject(out), usage, nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, domain.Usage, error) {
	if len(texts) == 0 {
		return nil, domain.Usage{}, nil
	}
	if err := e.client.limiter.Wait(ctx); err != nil {
		return nil, domain.Usage{}, err
	}

	var resp openai.EmbeddingResponse
	err := e.client.exec.Execute(ctx, "openai_embed", func(callCtx context.Context) error {
		var callErr error
		resp, callErr = e.client.api.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.client.embedModel),
			Input: texts,
		})
		return callErr
	}, classifyOpenAIError)
	if err != nil {
		return nil, domain.Usage{}, wrapTemporaryIfNeeded("embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.Usage{}, fmt.Errorf("embedding count mismatch: want %d, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, e.client.usageFor(e.client.embedModel, resp.Usage.PromptTokens, 0), nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, domain.Usage, error) {
	vectors, usage, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, usage, err
	}
	if len(vectors) == 0 {
		return nil, usage, fmt.Errorf("empty embedding result")
	}
	return vectors[0], usage, nil
}

func (c *Client) chat(ctx context.Context, prompt string, format *openai.ChatCompletionResponseFormat) (string, domain.Usage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", domain.Usage{}, err
	}

	req := openai.ChatCompletionRequest{
		Model: c.genModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: format,
	}

	var resp openai.ChatCompletionResponse
	err := c.exec.Execute(ctx, "openai_chat", func(callCtx context.Context) error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(callCtx, req)
		return callErr
	}, classifyOpenAIError)
	if err != nil {
		return "", domain.Usage{}, wrapTemporaryIfNeeded("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.Usage{}, fmt.Errorf("chat completion returned no choices")
	}

	usage := c.usageFor(c.genModel, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), usage, nil
}

func (c *Client) usageFor(model string, promptTokens, completionTokens int) domain.Usage {
	price := pricePerMillion[model]
	return domain.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CostUSD: float64(promptTokens)/1e6*price.in +
			float64(completionTokens)/1e6*price.out,
	}
}

// ExtractJSONObject trims model chatter around a JSON object body.
func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
