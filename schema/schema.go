package schema

import (
	"context"
	"fmt"
)

// Metadata keys set by the document loaders.
const (
	MetadataSource = "source"
	MetadataPage   = "page"
)

// Document is the unit of text flowing through the pipeline: a loaded page,
// a chunk produced by a splitter or a search hit returned by a vector store.
type Document struct {
	PageContent string
	Metadata    map[string]any
}

func (d Document) String() string {
	return d.PageContent
}

// Source returns the path recorded by the loader, or "" when absent.
func (d Document) Source() string {
	s, _ := d.Metadata[MetadataSource].(string)
	return s
}

func NewDocument(content string, metadata map[string]any) Document {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return Document{
		PageContent: content,
		Metadata:    metadata,
	}
}

// ModelDetails describes a model served by an LLM backend.
type ModelDetails struct {
	Family        string
	ParameterSize string
	Quantization  string
	Dimension     int64
}

func (md ModelDetails) String() string {
	return fmt.Sprintf("%s (%s, %s, dim: %d)",
		md.Family, md.ParameterSize, md.Quantization, md.Dimension)
}

// Retriever returns the documents most relevant to a query.
type Retriever interface {
	GetRelevantDocuments(ctx context.Context, query string) ([]Document, error)
}

// ContentResponse is the raw reply of a model call.
type ContentResponse struct {
	Choices []*ContentChoice
}

type ContentChoice struct {
	Content        string
	StopReason     string
	GenerationInfo map[string]any
}
