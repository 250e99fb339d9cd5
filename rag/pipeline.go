// Package rag assembles the ingestion and question answering pipeline from
// a config.Config.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/chains"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/config"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/prompts"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/textsplitter"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
)

// ErrInvalidConfig wraps the field errors returned by config.Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

type options struct {
	logger   *slog.Logger
	model    llms.Model
	embedder embeddings.Embedder
	store    vectorstores.VectorStore
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithModel replaces the configured chat provider.
func WithModel(model llms.Model) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(embedder embeddings.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
	}
}

// WithStore replaces the store named by the configured URL.
func WithStore(store vectorstores.VectorStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// Pipeline holds the components built once per process: the store handle,
// the ingester and the question answering chain.
type Pipeline struct {
	cfg      *config.Config
	store    vectorstores.VectorStore
	ingester *Ingester
	chain    *chains.RetrievalQA
	logger   *slog.Logger
}

// New validates cfg and builds every component. Providers are only
// created for the parts not replaced through options.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "pipeline")

	if errs := cfg.Validate(); len(errs) > 0 {
		joined := make([]error, 0, len(errs)+1)
		joined = append(joined, ErrInvalidConfig)
		for _, e := range errs {
			joined = append(joined, e)
		}
		return nil, errors.Join(joined...)
	}

	model, rawEmbedder := o.model, o.embedder
	if model == nil || rawEmbedder == nil {
		provider, err := NewProvider(ctx, cfg.LLM, o.logger)
		if err != nil {
			return nil, fmt.Errorf("create %s provider: %w", cfg.LLM.Provider, err)
		}
		if model == nil {
			model = provider
		}
		if rawEmbedder == nil {
			rawEmbedder = provider
		}
	}

	embedder, err := embeddings.NewEmbedder(rawEmbedder,
		embeddings.WithBatchSize(cfg.Embeddings.BatchSize),
		embeddings.WithMaxConcurrency(cfg.Embeddings.MaxConcurrency),
		embeddings.WithRateLimit(cfg.Embeddings.RequestsPerMinute),
		embeddings.WithTimeout(cfg.RequestTimeout),
		embeddings.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		store, err = NewStore(ctx, cfg.Store, embedder, o.logger)
		if err != nil {
			return nil, err
		}
	}

	splitter, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.Chunking.Size),
		textsplitter.WithChunkOverlap(*cfg.Chunking.Overlap),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	answerer, err := chains.NewAnswerer(model,
		chains.WithTemplate(prompts.NewGroundedQAPrompt(cfg.Answer.Refusal)),
		chains.WithTemperature(cfg.LLM.Temperature),
		chains.WithTimeout(cfg.RequestTimeout),
		chains.WithLogger(o.logger),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	searchOpts := []vectorstores.Option{vectorstores.WithNameSpace(cfg.Store.Collection)}
	if cfg.Retrieval.ScoreThreshold > 0 {
		searchOpts = append(searchOpts, vectorstores.WithScoreThreshold(cfg.Retrieval.ScoreThreshold))
	}
	retriever := vectorstores.ToRetriever(store, cfg.Retrieval.K, searchOpts...)
	retriever.Timeout = cfg.RequestTimeout

	chain, err := chains.NewRetrievalQA(retriever, answerer, chains.WithLogger(o.logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "Pipeline ready",
		"provider", cfg.LLM.Provider, "collection", cfg.Store.Collection, "k", cfg.Retrieval.K)
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		ingester: NewIngester(splitter, store, cfg.Store.Collection, o.logger),
		chain:    chain,
		logger:   logger,
	}, nil
}

// Ask answers question from the configured collection. Calls are
// independent of each other.
func (p *Pipeline) Ask(ctx context.Context, question string) (string, error) {
	return p.chain.Call(ctx, question)
}

// Ingest loads the configured document, or path when given, into the collection.
func (p *Pipeline) Ingest(ctx context.Context, path string, opts ...IngestOption) (IngestResult, error) {
	if path == "" {
		path = p.cfg.Document.Path
	}
	p.logger.InfoContext(ctx, "Ingesting document", "path", path)
	return p.ingester.IngestFile(ctx, path, opts...)
}

func (p *Pipeline) Ingester() *Ingester {
	return p.ingester
}

func (p *Pipeline) Store() vectorstores.VectorStore {
	return p.store
}

func (p *Pipeline) Close() error {
	return p.store.Close()
}
