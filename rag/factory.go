package rag

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/config"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms/gemini"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms/ollama"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores/memory"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores/pgvector"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores/qdrant"
)

// Provider is a model that both generates text and embeds it.
type Provider interface {
	llms.Model
	embeddings.Embedder
}

var (
	_ Provider = (*gemini.LLM)(nil)
	_ Provider = (*ollama.LLM)(nil)
)

// NewProvider builds the chat and embedding client named by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.New(ctx,
			gemini.WithModel(cfg.Gemini.ChatModel),
			gemini.WithEmbeddingModel(cfg.Gemini.EmbeddingModel),
			gemini.WithAPIKey(cfg.Gemini.APIKey),
			gemini.WithLogger(logger),
		)
	case config.ProviderOllama:
		pull := cfg.Ollama.PullMissing == nil || *cfg.Ollama.PullMissing
		return ollama.New(
			ollama.WithServerURL(cfg.Ollama.Host),
			ollama.WithModel(cfg.Ollama.ChatModel),
			ollama.WithEmbeddingModel(cfg.Ollama.EmbeddingModel),
			ollama.WithPullMissing(pull),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

// NewStore opens the vector store named by the scheme of cfg.URL.
// Unknown schemes and unreachable stores fail with vectorstores.ErrConnection.
func NewStore(ctx context.Context, cfg config.StoreConfig, embedder embeddings.Embedder, logger *slog.Logger) (vectorstores.VectorStore, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid store URL: %w", vectorstores.ErrConnection, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return pgvector.New(ctx, cfg.URL, embedder,
			pgvector.WithCollectionName(cfg.Collection),
			pgvector.WithBatchSize(cfg.BatchSize),
			pgvector.WithLogger(logger),
		)
	case "qdrant", "qdrants":
		endpoint, err := qdrant.WithURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", vectorstores.ErrConnection, err)
		}
		return qdrant.New(ctx, embedder,
			endpoint,
			qdrant.WithCollectionName(cfg.Collection),
			qdrant.WithBatchSize(cfg.BatchSize),
			qdrant.WithLogger(logger),
		)
	case "memory":
		return memory.New(embedder,
			memory.WithCollectionName(cfg.Collection),
			memory.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("%w: unsupported store scheme %q", vectorstores.ErrConnection, u.Scheme)
	}
}
