// Package memory is an in-process vector store with brute-force cosine
// search. It backs "memory://" connection strings and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
)

var ErrMissingEmbedder = errors.New("memory: embedder is required")

type entry struct {
	id     string
	vector []float32
	doc    schema.Document
}

type collection struct {
	dim     int
	entries []entry
}

// Store keeps every collection in memory. Ties in similarity keep insertion order.
type Store struct {
	embedder       embeddings.Embedder
	collectionName string
	logger         *slog.Logger

	mu          sync.RWMutex
	collections map[string]*collection
}

var _ vectorstores.VectorStore = (*Store)(nil)

type options struct {
	collectionName string
	logger         *slog.Logger
}

type Option func(*options)

func WithCollectionName(name string) Option {
	return func(o *options) {
		o.collectionName = strings.TrimSpace(name)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func New(embedder embeddings.Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, ErrMissingEmbedder
	}
	o := options{collectionName: "default", logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		embedder:       embedder,
		collectionName: o.collectionName,
		logger:         o.logger.With("component", "memory_store", "collection", o.collectionName),
		collections:    make(map[string]*collection),
	}, nil
}

func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}
	opts := vectorstores.ParseOptions(options...)
	name := s.getCollectionName(opts)

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("document embedding stage failed: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collections[name]
	if opts.Reset {
		col = nil
	}
	dim := len(vectors[0])
	if col != nil {
		dim = col.dim
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: document %d has %d dimensions, collection %q expects %d",
				vectorstores.ErrDimensionMismatch, i, len(v), name, dim)
		}
	}
	if col == nil {
		col = &collection{dim: dim}
		s.collections[name] = col
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = uuid.NewString()
		col.entries = append(col.entries, entry{
			id:     ids[i],
			vector: slices.Clone(vectors[i]),
			doc:    schema.NewDocument(doc.PageContent, maps.Clone(doc.Metadata)),
		})
	}
	opts.ReportProgress(len(docs), len(docs))

	s.logger.DebugContext(ctx, "Documents added", "count", len(docs), "total", len(col.entries))
	return ids, nil
}

func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	scored, err := s.SimilaritySearchWithScores(ctx, query, numDocuments, options...)
	if err != nil {
		return nil, err
	}
	docs := make([]schema.Document, len(scored))
	for i, d := range scored {
		docs[i] = d.Document
	}
	return docs, nil
}

func (s *Store) SimilaritySearchWithScores(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]vectorstores.DocumentWithScore, error) {
	if numDocuments <= 0 {
		return nil, vectorstores.ErrInvalidNumDocuments
	}
	opts := vectorstores.ParseOptions(options...)
	name := s.getCollectionName(opts)

	s.mu.RLock()
	col := s.collections[name]
	empty := col == nil || len(col.entries) == 0
	s.mu.RUnlock()
	if empty {
		s.logger.WarnContext(ctx, "Searching an empty collection", "search_collection", name)
		return []vectorstores.DocumentWithScore{}, nil
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryVector) != col.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %q has %d",
			vectorstores.ErrDimensionMismatch, len(queryVector), name, col.dim)
	}

	results := make([]vectorstores.DocumentWithScore, 0, len(col.entries))
	for _, e := range col.entries {
		if !vectorstores.MatchesFilters(e.doc.Metadata, opts.Filters) {
			continue
		}
		score := cosine(queryVector, e.vector)
		if opts.ScoreThreshold > 0 && score < opts.ScoreThreshold {
			continue
		}
		results = append(results, vectorstores.DocumentWithScore{
			Document: schema.NewDocument(e.doc.PageContent, maps.Clone(e.doc.Metadata)),
			Score:    score,
		})
	}

	slices.SortStableFunc(results, func(a, b vectorstores.DocumentWithScore) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(results) > numDocuments {
		results = results[:numDocuments]
	}
	return results, nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return vectorstores.ErrCollectionNotFound
	}
	delete(s.collections, name)
	s.logger.InfoContext(ctx, "Collection deleted", "deleted_collection", name)
	return nil
}

// Count returns the number of documents stored in a collection.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if col, ok := s.collections[name]; ok {
		return len(col.entries)
	}
	return 0
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) getCollectionName(opts vectorstores.Options) string {
	if opts.NameSpace != "" {
		return opts.NameSpace
	}
	return s.collectionName
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
