// Package textsplitter cuts loaded documents into overlapping chunks sized
// for embedding.
package textsplitter

import (
	"context"
	"errors"
	"maps"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

var ErrInvalidChunkSize = errors.New("invalid chunk size")

type TextSplitter interface {
	SplitText(ctx context.Context, text string) ([]string, error)
	SplitDocuments(ctx context.Context, docs []schema.Document) ([]schema.Document, error)
}

// CleanMetadata returns a copy of metadata without nil or empty-string values.
func CleanMetadata(metadata map[string]any) map[string]any {
	cleaned := make(map[string]any, len(metadata))
	maps.Copy(cleaned, metadata)
	maps.DeleteFunc(cleaned, func(_ string, v any) bool {
		if v == nil {
			return true
		}
		s, ok := v.(string)
		return ok && s == ""
	})
	return cleaned
}
