package vectorstores

import (
	"context"
	"time"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// Retriever adapts a VectorStore to schema.Retriever, returning the NumDocs
// documents closest to the query.
type Retriever struct {
	Store   VectorStore
	NumDocs int
	Options []Option
	// Timeout bounds each retrieval, query embedding included. Zero disables it.
	Timeout time.Duration
}

var _ schema.Retriever = (*Retriever)(nil)

func (r *Retriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.Store.SimilaritySearch(ctx, query, r.NumDocs, r.Options...)
}

// ToRetriever creates a retriever returning the numDocs nearest documents.
func ToRetriever(vectorStore VectorStore, numDocs int, options ...Option) *Retriever {
	return &Retriever{
		Store:   vectorStore,
		NumDocs: numDocs,
		Options: options,
	}
}
