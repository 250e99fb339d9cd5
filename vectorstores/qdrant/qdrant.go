// Package qdrant stores documents in a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
)

var ErrMissingEmbedder = errors.New("qdrant: embedder is required")

const contentKey = "page_content"

type Store struct {
	client   *qdrant.Client
	embedder embeddings.Embedder
	opts     options
	logger   *slog.Logger
}

var _ vectorstores.VectorStore = (*Store)(nil)

// New connects to Qdrant and checks the server is reachable.
func New(ctx context.Context, embedder embeddings.Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, ErrMissingEmbedder
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := o.logger.With("component", "qdrant_store", "collection", o.collectionName)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   o.host,
		Port:                   o.port,
		APIKey:                 o.apiKey,
		UseTLS:                 o.useTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant: create client: %w", vectorstores.ErrConnection, err)
	}
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: qdrant: health check %s:%d: %w", vectorstores.ErrConnection, o.host, o.port, err)
	}

	logger.Info("Qdrant store initialized successfully", "host", o.host, "port", o.port, "tls", o.useTLS)
	return &Store{client: client, embedder: embedder, opts: o, logger: logger}, nil
}

func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}
	start := time.Now()
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
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: document %d has %d dimensions, expected %d",
				vectorstores.ErrDimensionMismatch, i, len(v), dim)
		}
	}

	if opts.Reset {
		if err := s.DeleteCollection(ctx, name); err != nil && !errors.Is(err, vectorstores.ErrCollectionNotFound) {
			return nil, err
		}
	}
	if err := s.ensureCollection(ctx, name, dim); err != nil {
		return nil, err
	}

	ids := make([]string, len(docs))
	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		ids[i] = uuid.NewString()
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(ids[i]),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: documentToPayload(doc),
		}
	}

	if err := s.upsertPointsInBatches(ctx, name, points, opts); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Documents stored", "count", len(docs), "target_collection", name, "duration", time.Since(start))
	return ids, nil
}

func (s *Store) upsertPointsInBatches(ctx context.Context, name string, points []*qdrant.PointStruct, opts vectorstores.Options) error {
	total := len(points)
	numBatches := int(math.Ceil(float64(total) / float64(s.opts.batchSize)))

	semaphore := make(chan struct{}, s.opts.maxConcurrency)
	errs := make(chan error, numBatches)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		finished int
	)

	for startIdx := 0; startIdx < total; startIdx += s.opts.batchSize {
		batch := points[startIdx:min(startIdx+s.opts.batchSize, total)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := s.upsertWithRetry(ctx, name, batch); err != nil {
				errs <- err
				return
			}
			mu.Lock()
			finished += len(batch)
			opts.ReportProgress(finished, total)
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)

	var failures []error
	for err := range errs {
		failures = append(failures, err)
	}
	if len(failures) > 0 {
		s.logger.ErrorContext(ctx, "Upsert batches failed", "failed", len(failures), "batches", numBatches)
		return errors.Join(failures...)
	}
	return nil
}

// upsertWithRetry grows the delay by 1.5x per attempt, capped at thirty
// seconds.
func (s *Store) upsertWithRetry(ctx context.Context, name string, points []*qdrant.PointStruct) error {
	var lastErr error
	delay := s.opts.retryDelay

	for attempt := 0; attempt <= s.opts.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return wrapErr("upsert", ctx.Err())
			}
			delay = min(time.Duration(float64(delay)*1.5), defaultMaxRetryDelay)
		}

		wait := true
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Wait:           &wait,
			Points:         points,
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return wrapErr("upsert", lastErr)
}

// ensureCollection creates the collection with cosine distance on first
// use, or verifies an existing one has the same vector size.
func (s *Store) ensureCollection(ctx context.Context, name string, dim int) error {
	size, _, err := s.collectionInfo(ctx, name)
	if err != nil {
		return err
	}
	if size > 0 {
		if size != dim {
			return fmt.Errorf("%w: collection %q stores %d dimensions, embedder produced %d",
				vectorstores.ErrDimensionMismatch, name, size, dim)
		}
		return nil
	}

	s.logger.InfoContext(ctx, "Creating collection automatically", "new_collection", name, "dimension", dim)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return wrapErr("create collection", err)
	}
	return nil
}

// collectionInfo returns the vector size and point count of a collection,
// or zeros when it does not exist.
func (s *Store) collectionInfo(ctx context.Context, name string) (int, uint64, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return 0, 0, nil
		}
		return 0, 0, wrapErr("collection info", err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	return int(size), info.GetPointsCount(), nil
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
	if strings.TrimSpace(query) == "" {
		s.logger.WarnContext(ctx, "Empty query provided")
		return []vectorstores.DocumentWithScore{}, nil
	}
	opts := vectorstores.ParseOptions(options...)
	name := s.getCollectionName(opts)

	dim, count, err := s.collectionInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	if dim == 0 || count == 0 {
		s.logger.WarnContext(ctx, "Searching an empty or missing collection", "search_collection", name)
		return []vectorstores.DocumentWithScore{}, nil
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(queryVector) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %q has %d",
			vectorstores.ErrDimensionMismatch, len(queryVector), name, dim)
	}

	limit := uint64(numDocuments)
	request := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQueryDense(queryVector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         buildQdrantFilter(opts.Filters, s.logger),
	}
	if opts.ScoreThreshold > 0 {
		request.ScoreThreshold = &opts.ScoreThreshold
	}

	start := time.Now()
	points, err := s.client.Query(ctx, request)
	if err != nil {
		if isNotFound(err) {
			return []vectorstores.DocumentWithScore{}, nil
		}
		return nil, wrapErr("search", err)
	}

	results := make([]vectorstores.DocumentWithScore, len(points))
	for i, point := range points {
		results[i] = vectorstores.DocumentWithScore{
			Document: payloadToDocument(point.GetPayload()),
			Score:    point.GetScore(),
		}
	}
	s.logger.DebugContext(ctx, "Similarity search completed", "results", len(results), "duration", time.Since(start))
	return results, nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return vectorstores.ErrCollectionNotFound
	}
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return wrapErr("delete collection", err)
	}
	if !exists {
		return vectorstores.ErrCollectionNotFound
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		if isNotFound(err) {
			return vectorstores.ErrCollectionNotFound
		}
		return wrapErr("delete collection", err)
	}
	s.logger.InfoContext(ctx, "Collection deleted", "deleted_collection", name)
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) getCollectionName(opts vectorstores.Options) string {
	if opts.NameSpace != "" {
		return opts.NameSpace
	}
	return s.opts.collectionName
}

func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}

func retryable(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.DeadlineExceeded:
		return true
	}
	return false
}

// wrapErr maps unreachable servers and timeouts to vectorstores.ErrConnection.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: qdrant: %s: %w", vectorstores.ErrConnection, op, err)
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return fmt.Errorf("%w: qdrant: %s: %w", vectorstores.ErrConnection, op, err)
		}
	}
	return fmt.Errorf("qdrant: %s: %w", op, err)
}
