// Package vectorstores defines the storage capability used for indexing
// chunks and retrieving the ones nearest to a query.
package vectorstores

import (
	"context"
	"errors"
	"maps"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

var (
	// ErrConnection marks an unreachable or misconfigured store.
	ErrConnection = errors.New("vector store connection error")

	// ErrDimensionMismatch marks vectors whose size differs from the collection's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	ErrCollectionNotFound  = errors.New("collection not found")
	ErrInvalidNumDocuments = errors.New("number of documents must be positive")
)

// VectorStore persists (vector, content, metadata) triples in named
// collections and searches them by vector similarity. Searching a missing
// or empty collection yields no documents and no error.
type VectorStore interface {
	AddDocuments(ctx context.Context, docs []schema.Document, options ...Option) ([]string, error)
	SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...Option) ([]schema.Document, error)
	SimilaritySearchWithScores(ctx context.Context, query string, numDocuments int, options ...Option) ([]DocumentWithScore, error)
	DeleteCollection(ctx context.Context, collectionName string) error
	Close() error
}

// DocumentWithScore pairs a document with its cosine similarity to the
// query. Higher is closer.
type DocumentWithScore struct {
	Document schema.Document
	Score    float32
}

// ProgressFunc is called after each stored batch with the running total.
type ProgressFunc func(done, total int)

type Option func(*Options)

type Options struct {
	NameSpace      string
	ScoreThreshold float32
	Filters        map[string]any
	Progress       ProgressFunc
	Reset          bool
}

// WithNameSpace overrides the store's collection for one call.
func WithNameSpace(namespace string) Option {
	return func(opts *Options) {
		opts.NameSpace = namespace
	}
}

func WithScoreThreshold(threshold float32) Option {
	return func(opts *Options) {
		opts.ScoreThreshold = threshold
	}
}

// WithFilters restricts a search to documents whose metadata equals every given value.
func WithFilters(filters map[string]any) Option {
	return func(opts *Options) {
		if opts.Filters == nil {
			opts.Filters = make(map[string]any)
		}
		maps.Copy(opts.Filters, filters)
	}
}

func WithFilter(key string, value any) Option {
	return func(opts *Options) {
		if opts.Filters == nil {
			opts.Filters = make(map[string]any)
		}
		opts.Filters[key] = value
	}
}

// WithProgress reports indexing progress.
func WithProgress(fn ProgressFunc) Option {
	return func(opts *Options) {
		opts.Progress = fn
	}
}

// WithReset makes AddDocuments replace the collection's contents. The old
// contents are removed only once the new documents are embedded, so a
// failed call leaves the collection as it was.
func WithReset() Option {
	return func(opts *Options) {
		opts.Reset = true
	}
}

func ParseOptions(options ...Option) Options {
	opts := Options{
		Filters: make(map[string]any),
	}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// ReportProgress calls the progress callback when one is set.
func (o Options) ReportProgress(done, total int) {
	if o.Progress != nil {
		o.Progress(done, total)
	}
}
