package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/documentloaders"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/textsplitter"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
)

// IngestResult describes one ingestion run. NoOp is set when the source
// produced no chunks and the store was left untouched.
type IngestResult struct {
	Documents int
	Chunks    int
	IDs       []string
	NoOp      bool
	Duration  time.Duration
}

type ingestOptions struct {
	reset    bool
	progress vectorstores.ProgressFunc
}

type IngestOption func(*ingestOptions)

// WithReset replaces the collection contents with the new chunks. The old
// chunks survive when embedding or storing fails.
func WithReset(reset bool) IngestOption {
	return func(o *ingestOptions) {
		o.reset = reset
	}
}

// WithIngestProgress reports stored chunks as the store writes them.
func WithIngestProgress(fn vectorstores.ProgressFunc) IngestOption {
	return func(o *ingestOptions) {
		o.progress = fn
	}
}

// Ingester splits documents into chunks and stores them in one collection.
type Ingester struct {
	splitter   textsplitter.TextSplitter
	store      vectorstores.VectorStore
	collection string
	logger     *slog.Logger
}

func NewIngester(splitter textsplitter.TextSplitter, store vectorstores.VectorStore, collection string, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		splitter:   splitter,
		store:      store,
		collection: collection,
		logger:     logger.With("component", "ingester", "collection", collection),
	}
}

// IngestFile loads path with the loader matching its extension and ingests it.
func (i *Ingester) IngestFile(ctx context.Context, path string, opts ...IngestOption) (IngestResult, error) {
	loader, err := documentloaders.ForPath(path, documentloaders.WithLogger(i.logger))
	if err != nil {
		return IngestResult{}, err
	}
	docs, err := loader.Load(ctx)
	if err != nil {
		return IngestResult{}, err
	}
	return i.Ingest(ctx, docs, opts...)
}

// Ingest aborts on the first error; nothing is reported as stored unless
// the store accepted every chunk.
func (i *Ingester) Ingest(ctx context.Context, docs []schema.Document, opts ...IngestOption) (IngestResult, error) {
	var o ingestOptions
	for _, opt := range opts {
		opt(&o)
	}
	start := time.Now()
	result := IngestResult{Documents: len(docs)}

	chunks, err := i.splitter.SplitDocuments(ctx, docs)
	if err != nil {
		return result, fmt.Errorf("split documents: %w", err)
	}
	result.Chunks = len(chunks)
	if len(chunks) == 0 {
		i.logger.WarnContext(ctx, "No chunks produced, nothing to ingest", "documents", len(docs))
		result.NoOp = true
		result.Duration = time.Since(start)
		return result, nil
	}

	storeOpts := []vectorstores.Option{vectorstores.WithNameSpace(i.collection)}
	if o.reset {
		storeOpts = append(storeOpts, vectorstores.WithReset())
	}
	if o.progress != nil {
		storeOpts = append(storeOpts, vectorstores.WithProgress(o.progress))
	}
	ids, err := i.store.AddDocuments(ctx, chunks, storeOpts...)
	if err != nil {
		i.logger.ErrorContext(ctx, "Ingestion failed", "error", err)
		return result, fmt.Errorf("store chunks: %w", err)
	}

	result.IDs = ids
	result.Duration = time.Since(start)
	i.logger.InfoContext(ctx, "Ingestion finished",
		"source", docs[0].Source(), "documents", result.Documents, "chunks", result.Chunks, "duration", result.Duration)
	return result, nil
}
