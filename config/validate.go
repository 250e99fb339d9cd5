package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// ValidationError reports one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks cfg and returns every problem found, or nil.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.Gemini.APIKey == "" {
			add("llm.gemini.api_key", "required for the gemini provider (set GOOGLE_API_KEY)")
		}
		if c.LLM.Gemini.ChatModel == "" {
			add("llm.gemini.chat_model", "must not be empty")
		}
		if c.LLM.Gemini.EmbeddingModel == "" {
			add("llm.gemini.embedding_model", "must not be empty")
		}
	case ProviderOllama:
		if c.LLM.Ollama.ChatModel == "" {
			add("llm.ollama.chat_model", "must not be empty")
		}
		if c.LLM.Ollama.EmbeddingModel == "" {
			add("llm.ollama.embedding_model", "must not be empty")
		}
	default:
		add("llm.provider", "unsupported provider %q (use %s or %s)", c.LLM.Provider, ProviderGemini, ProviderOllama)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature", "must be between 0 and 2, got %v", c.LLM.Temperature)
	}

	if c.Store.URL == "" {
		add("store.url", "required (set PGVECTOR_URL)")
	} else if u, err := url.Parse(c.Store.URL); err != nil {
		add("store.url", "invalid URL: %v", err)
	} else {
		switch strings.ToLower(u.Scheme) {
		case "postgres", "postgresql", "qdrant", "qdrants", "memory":
		default:
			add("store.url", "unsupported scheme %q", u.Scheme)
		}
	}
	if strings.TrimSpace(c.Store.Collection) == "" {
		add("store.collection", "must not be empty")
	}
	if c.Store.BatchSize <= 0 {
		add("store.batch_size", "must be positive")
	}

	if c.Chunking.Size <= 0 {
		add("chunking.size", "must be positive")
	}
	if c.Chunking.Overlap == nil || *c.Chunking.Overlap < 0 || *c.Chunking.Overlap >= c.Chunking.Size {
		add("chunking.overlap", "must be at least 0 and smaller than chunking.size")
	}
	if c.Retrieval.K <= 0 {
		add("retrieval.k", "must be positive")
	}
	if c.Retrieval.ScoreThreshold < 0 || c.Retrieval.ScoreThreshold > 1 {
		add("retrieval.score_threshold", "must be between 0 and 1")
	}

	if c.Embeddings.BatchSize <= 0 {
		add("embeddings.batch_size", "must be positive")
	}
	if c.Embeddings.MaxConcurrency <= 0 {
		add("embeddings.max_concurrency", "must be positive")
	}
	if c.Embeddings.RequestsPerMinute < 0 {
		add("embeddings.requests_per_minute", "must not be negative")
	}

	if strings.TrimSpace(c.Answer.Refusal) == "" {
		add("answer.refusal", "must not be empty")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		add("log.level", "unknown level %q", c.Log.Level)
	}
	if c.RequestTimeout < 0 {
		add("request_timeout", "must not be negative")
	}

	return errs
}
