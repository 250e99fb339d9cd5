package documentloaders

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// TextLoader reads a whole file as a single document.
type TextLoader struct {
	path   string
	logger *slog.Logger
}

var _ Loader = (*TextLoader)(nil)

func NewText(path string, opts ...Option) *TextLoader {
	o := parseOptions(opts)
	return &TextLoader{path: path, logger: o.logger.With("component", "text_loader", "path", path)}
}

func (l *TextLoader) Load(ctx context.Context) ([]schema.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, loadErr(l.path, err)
	}
	text := normalizeText(string(data))
	if strings.TrimSpace(text) == "" {
		l.logger.WarnContext(ctx, "File has no text")
		return []schema.Document{}, nil
	}
	return []schema.Document{schema.NewDocument(text, map[string]any{schema.MetadataSource: l.path})}, nil
}
