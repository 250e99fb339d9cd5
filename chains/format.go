package chains

import (
	"strings"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// FormatDocuments joins the page contents of docs in order, separated by a
// blank line. No documents yield an empty string.
func FormatDocuments(docs []schema.Document) string {
	contents := make([]string, len(docs))
	for i, doc := range docs {
		contents[i] = doc.PageContent
	}
	return strings.Join(contents, "\n\n")
}
