// Package ai wraps the OpenAI API for the semantic similarity factor.
package ai

import (
	"context"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/myrjola/caselink/internal/errors"
	"github.com/sashabaranov/go-openai"
	"log/slog"
	"slices"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultCacheSize = 1024
)

var (
	ErrEmptyText     = errors.NewSentinel("empty text")
	ErrEmptyResponse = errors.NewSentinel("no embedding in response")
)

// EmbeddingConfig configures an EmbeddingClient. Zero values select the defaults.
type EmbeddingConfig struct {
	APIKey string
	// BaseURL overrides the OpenAI API endpoint, e.g. for a compatible proxy.
	BaseURL   string
	Model     string
	Timeout   time.Duration
	CacheSize int
}

// EmbeddingClient embeds case texts with the OpenAI embeddings endpoint. Results are memoized per model and
// text in a bounded LRU cache. It is safe for concurrent use.
type EmbeddingClient struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
	cache   *lru.Cache[string, []float64]
	logger  *slog.Logger
}

func NewEmbeddingClient(cfg EmbeddingConfig, logger *slog.Logger) (*EmbeddingClient, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.AdaEmbeddingV2)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []float64](cfg.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create embedding cache", slog.Int("size", cfg.CacheSize))
	}
	return &EmbeddingClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   openai.EmbeddingModel(cfg.Model),
		timeout: cfg.Timeout,
		cache:   cache,
		logger:  logger.With("source", "EmbeddingClient"),
	}, nil
}

// Embed returns the embedding vector of text. The caller owns the returned slice.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	key := string(c.model) + "\x00" + text
	if vector, ok := c.cache.Get(key); ok {
		return slices.Clone(vector), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{ //nolint:exhaustruct // defaults are fine
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings", slog.String("model", string(c.model)))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.Wrap(ErrEmptyResponse, "create embeddings", slog.String("model", string(c.model)))
	}

	vector := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float64(v)
	}
	c.cache.Add(key, slices.Clone(vector))
	c.logger.LogAttrs(ctx, slog.LevelDebug, "embedded text",
		slog.Int("dimensions", len(vector)), slog.Duration("duration", time.Since(start)))
	return vector, nil
}
