package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
)

// Table layout shared with LangChain's PGVector so collections written by
// either side can be read by the other.
const (
	collectionTable = "langchain_pg_collection"
	embeddingTable  = "langchain_pg_embedding"
)

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS ` + collectionTable + ` (
		uuid UUID PRIMARY KEY,
		name VARCHAR NOT NULL UNIQUE,
		cmetadata JSON
	)`,
	`CREATE TABLE IF NOT EXISTS ` + embeddingTable + ` (
		id VARCHAR PRIMARY KEY,
		collection_id UUID REFERENCES ` + collectionTable + `(uuid) ON DELETE CASCADE,
		embedding VECTOR,
		document VARCHAR,
		cmetadata JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS ix_cmetadata_gin ON ` + embeddingTable + ` USING gin (cmetadata jsonb_path_ops)`,
}

const (
	upsertCollectionSQL = `INSERT INTO ` + collectionTable + ` (uuid, name, cmetadata) VALUES ($1, $2, '{}')
		ON CONFLICT (name) DO NOTHING`

	collectionIDSQL = `SELECT uuid FROM ` + collectionTable + ` WHERE name = $1`

	collectionDimSQL = `SELECT vector_dims(e.embedding) FROM ` + embeddingTable + ` e
		JOIN ` + collectionTable + ` c ON e.collection_id = c.uuid
		WHERE c.name = $1 LIMIT 1`

	insertEmbeddingSQL = `INSERT INTO ` + embeddingTable + ` (id, collection_id, embedding, document, cmetadata)
		VALUES ($1, $2, $3, $4, $5)`

	deleteCollectionSQL = `DELETE FROM ` + collectionTable + ` WHERE name = $1`

	clearCollectionSQL = `DELETE FROM ` + embeddingTable + ` WHERE collection_id = $1`
)

// searchSQL returns the nearest-neighbour query by cosine distance. Rows
// with equal distance keep the order the planner returns them in.
func searchSQL(withFilter bool) string {
	q := `SELECT e.document, e.cmetadata, e.embedding <=> $1 AS distance
		FROM ` + embeddingTable + ` e
		JOIN ` + collectionTable + ` c ON e.collection_id = c.uuid
		WHERE c.name = $2`
	if withFilter {
		q += ` AND e.cmetadata @> $4::jsonb`
	}
	return q + ` ORDER BY distance LIMIT $3`
}

// filterJSON encodes metadata filters for a jsonb containment match.
func filterJSON(filters map[string]any) (string, error) {
	b, err := json.Marshal(filters)
	if err != nil {
		return "", fmt.Errorf("pgvector: invalid filter: %w", err)
	}
	return string(b), nil
}

// scoreFromDistance converts cosine distance into similarity.
func scoreFromDistance(distance float64) float32 {
	return float32(1 - distance)
}

// wrapErr maps connection failures and timeouts to vectorstores.ErrConnection.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: pgvector: %s: %w", vectorstores.ErrConnection, op, err)
	}
	return fmt.Errorf("pgvector: %s: %w", op, err)
}
