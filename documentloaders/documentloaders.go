// Package documentloaders reads source files into documents for the
// ingestion pipeline.
package documentloaders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// ErrLoad marks a source that could not be read or parsed.
var ErrLoad = errors.New("document load failed")

// Loader defines the interface for loading documents from various sources.
type Loader interface {
	// Load reads the source and returns its documents. Sources without
	// text produce an empty slice, not an error.
	Load(ctx context.Context) ([]schema.Document, error)
}

type options struct {
	logger *slog.Logger
}

type Option func(*options)

// WithLogger sets a custom logger for the loader.
// If not provided, slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func parseOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ForPath picks a loader by file extension: .pdf, .md/.markdown or .txt.
func ForPath(path string, opts ...Option) (Loader, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return NewPDF(path, opts...), nil
	case ".md", ".markdown":
		return NewMarkdown(path, opts...), nil
	case ".txt", ".text":
		return NewText(path, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q for %s", ErrLoad, ext, path)
	}
}

// normalizeText converts text to NFC so composed and decomposed accents
// embed and match identically.
func normalizeText(text string) string {
	return norm.NFC.String(text)
}

func loadErr(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
}
