// Package pgvector stores documents in PostgreSQL with the pgvector
// extension, using the same tables as LangChain's PGVector.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
)

var ErrMissingEmbedder = errors.New("pgvector: embedder is required")

type Store struct {
	pool           *pgxpool.Pool
	embedder       embeddings.Embedder
	collectionName string
	batchSize      int
	logger         *slog.Logger
}

var _ vectorstores.VectorStore = (*Store)(nil)

// New connects to connString, creates the extension and tables when
// missing and returns a store bound to the configured collection.
// Connection problems are reported as vectorstores.ErrConnection.
func New(ctx context.Context, connString string, embedder embeddings.Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, ErrMissingEmbedder
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "pgvector_store", "collection", o.collectionName)

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector: invalid connection string: %w", vectorstores.ErrConnection, err)
	}

	if err := migrate(ctx, cfg.ConnConfig); err != nil {
		return nil, err
	}

	cfg.AfterConnect = pgxvec.RegisterTypes
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, wrapErr("create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pgvector: ping: %w", vectorstores.ErrConnection, err)
	}

	logger.Info("pgvector store initialized successfully", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return &Store{
		pool:           pool,
		embedder:       embedder,
		collectionName: o.collectionName,
		batchSize:      o.batchSize,
		logger:         logger,
	}, nil
}

// migrate runs the schema statements on a dedicated connection, since the
// vector type must exist before pooled connections can register it.
func migrate(ctx context.Context, cfg *pgx.ConnConfig) error {
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%w: pgvector: connect: %w", vectorstores.ErrConnection, err)
	}
	defer conn.Close(context.Background())

	for _, stmt := range schemaStatements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return wrapErr("migrate", err)
		}
	}
	return nil
}

// AddDocuments embeds docs and inserts them in a single transaction, so a
// failed ingestion leaves the collection untouched.
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

	if !opts.Reset {
		existingDim, err := s.collectionDimension(ctx, name)
		if err != nil {
			return nil, err
		}
		if existingDim > 0 && existingDim != dim {
			return nil, fmt.Errorf("%w: collection %q stores %d dimensions, embedder produced %d",
				vectorstores.ErrDimensionMismatch, name, existingDim, dim)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapErr("begin", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	collectionID, err := s.ensureCollection(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if opts.Reset {
		tag, err := tx.Exec(ctx, clearCollectionSQL, collectionID)
		if err != nil {
			return nil, wrapErr("reset collection", err)
		}
		s.logger.InfoContext(ctx, "Collection reset", "target_collection", name, "removed", tag.RowsAffected())
	}

	ids := make([]string, len(docs))
	for startIdx := 0; startIdx < len(docs); startIdx += s.batchSize {
		endIdx := min(startIdx+s.batchSize, len(docs))

		batch := &pgx.Batch{}
		for i := startIdx; i < endIdx; i++ {
			ids[i] = uuid.NewString()
			metadata := docs[i].Metadata
			if metadata == nil {
				metadata = map[string]any{}
			}
			batch.Queue(insertEmbeddingSQL, ids[i], collectionID, pgv.NewVector(vectors[i]), docs[i].PageContent, metadata)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			s.logger.ErrorContext(ctx, "Insert batch failed", "error", err, "batch_start", startIdx)
			return nil, wrapErr("insert", err)
		}
		opts.ReportProgress(endIdx, len(docs))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapErr("commit", err)
	}

	s.logger.InfoContext(ctx, "Documents stored", "count", len(docs), "target_collection", name, "duration", time.Since(start))
	return ids, nil
}

func (s *Store) ensureCollection(ctx context.Context, tx pgx.Tx, name string) (uuid.UUID, error) {
	if _, err := tx.Exec(ctx, upsertCollectionSQL, uuid.New(), name); err != nil {
		return uuid.Nil, wrapErr("create collection", err)
	}
	var id uuid.UUID
	if err := tx.QueryRow(ctx, collectionIDSQL, name).Scan(&id); err != nil {
		return uuid.Nil, wrapErr("read collection", err)
	}
	return id, nil
}

// collectionDimension returns the vector size stored in the collection, or
// zero when the collection is missing or empty.
func (s *Store) collectionDimension(ctx context.Context, name string) (int, error) {
	var dim int
	err := s.pool.QueryRow(ctx, collectionDimSQL, name).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapErr("read dimension", err)
	}
	return dim, nil
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

	dim, err := s.collectionDimension(ctx, name)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
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

	args := []any{pgv.NewVector(queryVector), name, numDocuments}
	withFilter := len(opts.Filters) > 0
	if withFilter {
		filter, err := filterJSON(opts.Filters)
		if err != nil {
			return nil, err
		}
		args = append(args, filter)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, searchSQL(withFilter), args...)
	if err != nil {
		return nil, wrapErr("search", err)
	}
	defer rows.Close()

	results := make([]vectorstores.DocumentWithScore, 0, numDocuments)
	for rows.Next() {
		var (
			content  string
			metadata map[string]any
			distance float64
		)
		if err := rows.Scan(&content, &metadata, &distance); err != nil {
			return nil, wrapErr("scan", err)
		}
		score := scoreFromDistance(distance)
		if opts.ScoreThreshold > 0 && score < opts.ScoreThreshold {
			continue
		}
		results = append(results, vectorstores.DocumentWithScore{
			Document: schema.NewDocument(content, metadata),
			Score:    score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("search", err)
	}

	s.logger.DebugContext(ctx, "Similarity search completed", "results", len(results), "duration", time.Since(start))
	return results, nil
}

// DeleteCollection removes a collection and, through the foreign key, its embeddings.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, deleteCollectionSQL, name)
	if err != nil {
		return wrapErr("delete collection", err)
	}
	if tag.RowsAffected() == 0 {
		return vectorstores.ErrCollectionNotFound
	}
	s.logger.InfoContext(ctx, "Collection deleted", "deleted_collection", name)
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) getCollectionName(opts vectorstores.Options) string {
	if opts.NameSpace != "" {
		return opts.NameSpace
	}
	return s.collectionName
}
