package documentloaders

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// MarkdownLoader strips Markdown syntax and keeps block boundaries as blank
// lines, so the splitter can still prefer paragraph breaks.
type MarkdownLoader struct {
	path   string
	logger *slog.Logger
}

var _ Loader = (*MarkdownLoader)(nil)

func NewMarkdown(path string, opts ...Option) *MarkdownLoader {
	o := parseOptions(opts)
	return &MarkdownLoader{path: path, logger: o.logger.With("component", "markdown_loader", "path", path)}
}

func (l *MarkdownLoader) Load(ctx context.Context) ([]schema.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source, err := os.ReadFile(l.path)
	if err != nil {
		return nil, loadErr(l.path, err)
	}

	plain, err := markdownToText(source)
	if err != nil {
		return nil, loadErr(l.path, err)
	}
	if plain == "" {
		l.logger.WarnContext(ctx, "File has no text")
		return []schema.Document{}, nil
	}
	return []schema.Document{schema.NewDocument(plain, map[string]any{schema.MetadataSource: l.path})}, nil
}

func markdownToText(source []byte) (string, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				buf.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.HardLineBreak() || node.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	out := extraBlankLines.ReplaceAllString(buf.String(), "\n\n")
	return normalizeText(strings.TrimSpace(out)), nil
}
