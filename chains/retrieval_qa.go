package chains

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
)

var ErrEmptyQuestion = errors.New("question cannot be empty")

// RetrievalQA answers questions from retrieved documents. Every call runs
// retrieval, formatting and generation in that order and keeps no state
// between calls; an empty retrieval still reaches the model, which replies
// with the refusal sentence.
type RetrievalQA struct {
	Retriever schema.Retriever
	Answerer  *Answerer
	logger    *slog.Logger
}

func NewRetrievalQA(retriever schema.Retriever, answerer *Answerer, opts ...Option) (*RetrievalQA, error) {
	if retriever == nil {
		return nil, errors.New("retriever cannot be nil")
	}
	if answerer == nil {
		return nil, errors.New("answerer cannot be nil")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RetrievalQA{
		Retriever: retriever,
		Answerer:  answerer,
		logger:    o.logger.With("component", "retrieval_qa"),
	}, nil
}

func (c *RetrievalQA) Call(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	c.logger.DebugContext(ctx, "Starting document retrieval", "question", question)
	docs, err := c.Retriever.GetRelevantDocuments(ctx, question)
	if errors.Is(err, vectorstores.ErrCollectionNotFound) {
		c.logger.WarnContext(ctx, "Collection not found, answering with empty context")
		docs, err = nil, nil
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "Document retrieval failed", "error", err)
		return "", fmt.Errorf("document retrieval failed: %w", err)
	}

	contextText := FormatDocuments(docs)
	c.logger.DebugContext(ctx, "Built context string", "doc_count", len(docs), "context_length", len(contextText))

	return c.Answerer.Answer(ctx, contextText, question)
}
