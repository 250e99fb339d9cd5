// Package embeddings defines the text-to-vector capability and a wrapper
// that batches, throttles and normalises calls to any provider.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	GetDimension(ctx context.Context) (int, error)
}

var (
	// ErrEmbeddingService marks a failed or timed out embedding call.
	ErrEmbeddingService = errors.New("embedding service error")
	ErrEmptyText        = errors.New("text cannot be empty")
)

// EmbedderImpl wraps a provider Embedder. Documents are embedded in
// batches that run concurrently; the output keeps the input order.
type EmbedderImpl struct {
	client Embedder
	opts   options
	logger *slog.Logger
}

var _ Embedder = (*EmbedderImpl)(nil)

func NewEmbedder(client Embedder, opts ...Option) (*EmbedderImpl, error) {
	embedderOpts := defaultOptions()
	for _, opt := range opts {
		opt(&embedderOpts)
	}

	if embedderOpts.BatchSize <= 0 {
		embedderOpts.BatchSize = 32
	}
	if embedderOpts.MaxConcurrency <= 0 {
		embedderOpts.MaxConcurrency = 1
	}

	if client == nil {
		return nil, errors.New("embedder client cannot be nil")
	}
	if _, ok := client.(*EmbedderImpl); ok {
		return nil, errors.New("cannot wrap an already-wrapped EmbedderImpl")
	}

	return &EmbedderImpl{
		client: client,
		opts:   embedderOpts,
		logger: embedderOpts.Logger.With("component", "embedder"),
	}, nil
}

func (e *EmbedderImpl) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	if err := e.wait(ctx); err != nil {
		return nil, asServiceError(err)
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	vector, err := e.client.EmbedQuery(callCtx, e.preprocessText(text))
	if err != nil {
		e.logger.ErrorContext(ctx, "Query embedding failed", "error", err)
		return nil, asServiceError(err)
	}
	return vector, nil
}

func (e *EmbedderImpl) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, asServiceError(err)
	}

	processedTexts := make([]string, len(texts))
	for i, text := range texts {
		processedTexts[i] = e.preprocessText(text)
	}

	batchedTexts := batchTexts(processedTexts, e.opts.BatchSize)
	batchResults := make([][][]float32, len(batchedTexts))
	errCh := make(chan error, len(batchedTexts))
	semaphore := make(chan struct{}, e.opts.MaxConcurrency)

	e.logger.DebugContext(ctx, "Embedding documents", "texts", len(texts), "batches", len(batchedTexts))

	var wg sync.WaitGroup
	for i, batch := range batchedTexts {
		wg.Add(1)
		go func(i int, batch []string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := e.wait(ctx); err != nil {
				errCh <- err
				return
			}

			callCtx, cancel := e.callContext(ctx)
			defer cancel()
			vectors, err := e.client.EmbedDocuments(callCtx, batch)
			if err != nil {
				errCh <- fmt.Errorf("error embedding batch %d: %w", i, err)
				return
			}
			if len(vectors) != len(batch) {
				errCh <- fmt.Errorf("batch %d: expected %d embeddings, got %d", i, len(batch), len(vectors))
				return
			}
			batchResults[i] = vectors
		}(i, batch)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		e.logger.ErrorContext(ctx, "Document embedding failed", "error", err)
		return nil, asServiceError(err)
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for _, batch := range batchResults {
		allEmbeddings = append(allEmbeddings, batch...)
	}

	return allEmbeddings, nil
}

func (e *EmbedderImpl) GetDimension(ctx context.Context) (int, error) {
	dim, err := e.client.GetDimension(ctx)
	if err != nil {
		return 0, asServiceError(err)
	}
	return dim, nil
}

func (e *EmbedderImpl) wait(ctx context.Context) error {
	if e.opts.Limiter == nil {
		return ctx.Err()
	}
	return e.opts.Limiter.Wait(ctx)
}

func (e *EmbedderImpl) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout > 0 {
		return context.WithTimeout(ctx, e.opts.Timeout)
	}
	return ctx, func() {}
}

func (e *EmbedderImpl) preprocessText(text string) string {
	if e.opts.StripNewLines {
		return strings.ReplaceAll(text, "\n", " ")
	}
	return text
}

// asServiceError wraps err with ErrEmbeddingService unless it already is one.
func asServiceError(err error) error {
	if errors.Is(err, ErrEmbeddingService) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEmbeddingService, err)
}

func batchTexts(texts []string, batchSize int) [][]string {
	if batchSize <= 0 {
		return [][]string{texts}
	}

	numBatches := (len(texts) + batchSize - 1) / batchSize
	batches := make([][]string, 0, numBatches)

	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))
		batches = append(batches, texts[i:end])
	}

	return batches
}
