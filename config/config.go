// Package config resolves the pipeline settings from a YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/prompts"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

type Config struct {
	Document   DocumentConfig   `yaml:"document"`
	LLM        LLMConfig        `yaml:"llm"`
	Store      StoreConfig      `yaml:"store"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Answer     AnswerConfig     `yaml:"answer"`
	Log        LogConfig        `yaml:"log"`

	// RequestTimeout bounds every call to the embedding service, the store
	// and the model. Zero disables the limit.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DocumentConfig struct {
	Path string `yaml:"path"`
}

type LLMConfig struct {
	Provider    string       `yaml:"provider"`
	Temperature float64      `yaml:"temperature"`
	Gemini      GeminiConfig `yaml:"gemini"`
	Ollama      OllamaConfig `yaml:"ollama"`
}

type GeminiConfig struct {
	APIKey         string `yaml:"api_key"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type OllamaConfig struct {
	Host           string `yaml:"host"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	PullMissing    *bool  `yaml:"pull_missing"`
}

// StoreConfig selects the vector store by URL scheme: postgres://,
// qdrant:// or memory://.
type StoreConfig struct {
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
	BatchSize  int    `yaml:"batch_size"`
}

// ChunkingConfig sizes are in characters. A nil Overlap takes the default;
// an explicit 0 disables overlap.
type ChunkingConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap"`
}

type RetrievalConfig struct {
	K              int     `yaml:"k"`
	ScoreThreshold float32 `yaml:"score_threshold"`
}

type EmbeddingsConfig struct {
	BatchSize      int `yaml:"batch_size"`
	MaxConcurrency int `yaml:"max_concurrency"`
	// RequestsPerMinute throttles embedding batches. Zero means unlimited.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type AnswerConfig struct {
	Refusal string `yaml:"refusal"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses Level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads .env from the working directory when present, then the YAML
// file at path (skipped when path is empty), then environment variables,
// and fills the remaining fields with defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	mergeWithEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Document.Path == "" {
		cfg.Document.Path = "document.pdf"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderGemini
	}
	if cfg.LLM.Gemini.ChatModel == "" {
		cfg.LLM.Gemini.ChatModel = "gemini-2.5-flash"
	}
	if cfg.LLM.Gemini.EmbeddingModel == "" {
		cfg.LLM.Gemini.EmbeddingModel = "models/text-embedding-004"
	}
	if cfg.LLM.Ollama.Host == "" {
		cfg.LLM.Ollama.Host = "http://localhost:11434"
	}
	if cfg.LLM.Ollama.ChatModel == "" {
		cfg.LLM.Ollama.ChatModel = "llama3.2"
	}
	if cfg.LLM.Ollama.EmbeddingModel == "" {
		cfg.LLM.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.LLM.Ollama.PullMissing == nil {
		pull := true
		cfg.LLM.Ollama.PullMissing = &pull
	}

	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "documents"
	}
	if cfg.Store.BatchSize == 0 {
		cfg.Store.BatchSize = 100
	}

	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 1000
	}
	if cfg.Chunking.Overlap == nil {
		overlap := min(150, cfg.Chunking.Size/2)
		cfg.Chunking.Overlap = &overlap
	}
	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 4
	}

	if cfg.Embeddings.BatchSize == 0 {
		cfg.Embeddings.BatchSize = 32
	}
	if cfg.Embeddings.MaxConcurrency == 0 {
		cfg.Embeddings.MaxConcurrency = 4
	}

	if cfg.Answer.Refusal == "" {
		cfg.Answer.Refusal = prompts.DefaultRefusal
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
}

// mergeWithEnv applies the environment variables the original scripts read.
func mergeWithEnv(cfg *Config) {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := os.Getenv(key); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&cfg.Document.Path, "PDF_PATH")
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Gemini.APIKey, "GOOGLE_API_KEY", "GEMINI_API_KEY")
	setString(&cfg.LLM.Gemini.ChatModel, "GOOGLE_CHAT_MODEL")
	setString(&cfg.LLM.Gemini.EmbeddingModel, "GOOGLE_EMBEDDING_MODEL", "GOOGLE_MODEL")
	setString(&cfg.LLM.Ollama.Host, "OLLAMA_HOST")
	setString(&cfg.LLM.Ollama.ChatModel, "OLLAMA_CHAT_MODEL")
	setString(&cfg.LLM.Ollama.EmbeddingModel, "OLLAMA_EMBEDDING_MODEL")
	setString(&cfg.Store.URL, "PGVECTOR_URL")
	setString(&cfg.Store.Collection, "PGVECTOR_COLLECTION")
	setString(&cfg.Log.Level, "LOG_LEVEL")
}
