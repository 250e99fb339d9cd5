package ollama

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms/ollama/ollamaclient"
)

// options holds configuration settings for the Ollama client.
type options struct {
	model           string
	embeddingModel  string
	ollamaServerURL *url.URL
	httpClient      *http.Client
	pullMissing     bool
	logger          *slog.Logger
}

// Option is a function type for configuring Ollama client options.
type Option func(*options)

// applyOptions creates a new options instance with defaults and applies the provided options.
func applyOptions(opts ...Option) options {
	o := options{
		model:          "llama3.2",
		embeddingModel: "nomic-embed-text",
		pullMissing:    true,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

func WithEmbeddingModel(model string) Option {
	return func(opts *options) {
		opts.embeddingModel = model
	}
}

// WithServerURL accepts a URL or a bare host[:port] as in OLLAMA_HOST.
func WithServerURL(rawURL string) Option {
	return func(opts *options) {
		if parsedURL, err := ollamaclient.ParseHost(rawURL); err == nil {
			opts.ollamaServerURL = parsedURL
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithPullMissing controls whether models absent from the server are pulled on first use.
func WithPullMissing(pull bool) Option {
	return func(opts *options) {
		opts.pullMissing = pull
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}
