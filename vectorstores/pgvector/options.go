package pgvector

import (
	"log/slog"
	"strings"
)

const (
	DefaultCollectionName = "langchain"
	DefaultBatchSize      = 100
)

type options struct {
	collectionName string
	batchSize      int
	logger         *slog.Logger
}

// Option configures the pgvector store.
type Option func(*options)

func defaultOptions() options {
	return options{
		collectionName: DefaultCollectionName,
		batchSize:      DefaultBatchSize,
		logger:         slog.Default(),
	}
}

// WithCollectionName sets the collection documents are written to and searched in.
func WithCollectionName(name string) Option {
	return func(o *options) {
		if name = strings.TrimSpace(name); name != "" {
			o.collectionName = name
		}
	}
}

// WithBatchSize sets how many rows are sent per insert batch.
func WithBatchSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.batchSize = size
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
