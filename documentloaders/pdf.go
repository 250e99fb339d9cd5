package documentloaders

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// PDFLoader emits one document per page with the file path under "source"
// and the zero-based page index under "page". Pages without text are skipped.
type PDFLoader struct {
	path   string
	logger *slog.Logger
}

var _ Loader = (*PDFLoader)(nil)

func NewPDF(path string, opts ...Option) *PDFLoader {
	o := parseOptions(opts)
	return &PDFLoader{
		path:   path,
		logger: o.logger.With("component", "pdf_loader", "path", path),
	}
}

func (l *PDFLoader) Load(ctx context.Context) (docs []schema.Document, err error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, loadErr(l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, loadErr(l.path, err)
	}

	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, loadErr(l.path, fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, loadErr(l.path, err)
	}

	numPages := reader.NumPage()
	fonts := make(map[string]*pdf.Font)
	docs = make([]schema.Document, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, loadErr(l.path, fmt.Errorf("page %d: %w", i, err))
		}
		text = normalizeText(text)
		if strings.TrimSpace(text) == "" {
			l.logger.DebugContext(ctx, "Skipping page without text", "page", i-1)
			continue
		}
		docs = append(docs, schema.NewDocument(text, map[string]any{
			schema.MetadataSource: l.path,
			schema.MetadataPage:   i - 1,
		}))
	}

	l.logger.InfoContext(ctx, "PDF loaded", "pages", numPages, "documents", len(docs))
	return docs, nil
}
