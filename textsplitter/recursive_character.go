package textsplitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// RecursiveCharacter is a text splitter that recursively tries to split text
// using a list of separators. It aims to keep semantically related parts of
// the text together as long as possible.
type RecursiveCharacter struct {
	opts options
}

var _ TextSplitter = (*RecursiveCharacter)(nil)

// NewRecursiveCharacter creates a new RecursiveCharacter text splitter.
func NewRecursiveCharacter(opts ...Option) (*RecursiveCharacter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkSize, o.chunkSize)
	}
	if o.chunkOverlap < 0 || o.chunkOverlap >= o.chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be in [0, %d)", ErrInvalidChunkSize, o.chunkOverlap, o.chunkSize)
	}

	return &RecursiveCharacter{opts: o}, nil
}

// SplitDocuments splits every document and copies its cleaned metadata onto
// each chunk. Documents without text produce no chunks.
func (s *RecursiveCharacter) SplitDocuments(ctx context.Context, docs []schema.Document) ([]schema.Document, error) {
	var chunks []schema.Document
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		texts, err := s.SplitText(ctx, doc.PageContent)
		if err != nil {
			return nil, err
		}
		for _, text := range texts {
			chunks = append(chunks, schema.NewDocument(text, CleanMetadata(doc.Metadata)))
		}
	}
	return chunks, nil
}

// SplitText splits a single text into chunks no longer than the chunk size.
func (s *RecursiveCharacter) SplitText(_ context.Context, text string) ([]string, error) {
	return s.splitTextRecursive(text, s.opts.separators), nil
}

// splitTextRecursive picks the first separator present in text, splits on
// it and recurses into pieces that are still too long with the remaining
// separators. Small pieces are merged back together with overlap.
func (s *RecursiveCharacter) splitTextRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var finalChunks, goodSplits []string
	for _, split := range splitKeepingSeparator(text, separator) {
		if s.opts.lengthFunc(split) < s.opts.chunkSize {
			goodSplits = append(goodSplits, split)
			continue
		}
		if len(goodSplits) > 0 {
			finalChunks = append(finalChunks, s.mergeSplits(goodSplits)...)
			goodSplits = nil
		}
		if len(remaining) == 0 {
			finalChunks = append(finalChunks, split)
			continue
		}
		finalChunks = append(finalChunks, s.splitTextRecursive(split, remaining)...)
	}
	if len(goodSplits) > 0 {
		finalChunks = append(finalChunks, s.mergeSplits(goodSplits)...)
	}
	return finalChunks
}

// mergeSplits packs consecutive splits into chunks. When a chunk is full the
// window slides forward, keeping at most chunkOverlap of its tail as the
// start of the next chunk.
func (s *RecursiveCharacter) mergeSplits(splits []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, split := range splits {
		n := s.opts.lengthFunc(split)
		if total+n > s.opts.chunkSize && len(current) > 0 {
			if chunk := joinSplits(current); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.opts.chunkOverlap || (total+n > s.opts.chunkSize && total > 0) {
				total -= s.opts.lengthFunc(current[0])
				current = current[1:]
			}
		}
		current = append(current, split)
		total += n
	}
	if chunk := joinSplits(current); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepingSeparator splits text after every separator so the separator
// stays with the piece it terminates. An empty separator yields runes.
func splitKeepingSeparator(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = strings.Split(text, "")
	} else {
		parts = strings.SplitAfter(text, separator)
	}

	splits := parts[:0]
	for _, p := range parts {
		if p != "" {
			splits = append(splits, p)
		}
	}
	return splits
}

func joinSplits(splits []string) string {
	return strings.TrimSpace(strings.Join(splits, ""))
}
