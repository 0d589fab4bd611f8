package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/leadertalk/leadertalk/internal/config"
	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client talks to an OpenAI-compatible endpoint for both generation and
// embeddings. Every call carries a bounded timeout; transport failures are
// classified as domain.ErrModelUnavailable so callers can decide to retry.
type Client struct {
	model    llms.Model
	embedder embeddings.Embedder
	timeout  time.Duration
}

// NewClient creates a client from LLM configuration.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI-compatible services reject empty tokens
		token = "none"
	}

	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithModel(cfg.LLMModel),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(model, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &Client{
		model:    model,
		embedder: embedder,
		timeout:  cfg.Timeout,
	}, nil
}

// Generate returns a complete answer for the prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, promptMessages(prompt), llms.WithTemperature(0.2))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", domain.ErrGenerationFailed)
	}
	return resp.Choices[0].Content, nil
}

// GenerateStream streams the answer fragment by fragment through fn and
// returns the accumulated text.
func (c *Client) GenerateStream(ctx context.Context, prompt string, fn func(ctx context.Context, fragment string) error) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var full string
	streamingFunc := func(ctx context.Context, chunk []byte) error {
		full += string(chunk)
		return fn(ctx, string(chunk))
	}

	_, err := c.model.GenerateContent(ctx, promptMessages(prompt),
		llms.WithTemperature(0.2), llms.WithStreamingFunc(streamingFunc))
	if err != nil {
		return full, classify(err)
	}
	return full, nil
}

// EmbedTexts generates vector embeddings for a batch of texts.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, classify(err)
	}
	return vectors, nil
}

// EmbedQuery generates a vector embedding for a single query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	vector, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, classify(err)
	}
	return vector, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func promptMessages(prompt string) []llms.MessageContent {
	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
}

// classify maps transport-level failures to ErrModelUnavailable. Caller
// cancellation passes through untouched so a disconnect is not reported as
// a service outage.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	return err
}
