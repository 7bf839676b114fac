package retrieval

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig configures the OpenAI-compatible embedding endpoint.
type EmbedderConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// NewEmbedder creates a langchaingo embedder for an OpenAI-compatible API.
// Local TEI servers work with any placeholder key.
func NewEmbedder(cfg EmbedderConfig) (Embedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("retrieval: embedding model is required")
	}
	token := cfg.APIKey
	if token == "" {
		// langchaingo requires a token; TEI ignores it.
		token = "placeholder"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}
