package textsplitter_test

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/textsplitter"
)

func TestNewRecursiveCharacter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults are valid", size: 1000, overlap: 150},
		{name: "zero overlap", size: 10, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -1, overlap: 0, wantErr: true},
		{name: "overlap equal to size", size: 10, overlap: 10, wantErr: true},
		{name: "negative overlap", size: 10, overlap: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := textsplitter.NewRecursiveCharacter(
				textsplitter.WithChunkSize(tt.size),
				textsplitter.WithChunkOverlap(tt.overlap),
			)
			if tt.wantErr {
				require.ErrorIs(t, err, textsplitter.ErrInvalidChunkSize)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRecursiveCharacter_SplitText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{
			name: "empty text yields no chunks",
			text: "",
			size: 10,
			want: nil,
		},
		{
			name: "whitespace only yields no chunks",
			text: " \n\n \n ",
			size: 10,
			want: nil,
		},
		{
			name: "short text is a single chunk",
			text: "Paragraph one.\n\nParagraph two.",
			size: 100,
			want: []string{"Paragraph one.\n\nParagraph two."},
		},
		{
			name: "paragraph boundaries are preferred",
			text: "Paragraph one.\n\nParagraph two.",
			size: 20,
			want: []string{"Paragraph one.", "Paragraph two."},
		},
		{
			name: "sentence boundaries when no newlines",
			text: "First sentence here. Second sentence here. Third one.",
			size: 30,
			want: []string{"First sentence here.", "Second sentence here.", "Third one."},
		},
		{
			name:    "word boundaries with overlap",
			text:    "aaaa bbbb cccc dddd eeee",
			size:    10,
			overlap: 5,
			want:    []string{"aaaa bbbb", "bbbb cccc", "cccc dddd", "dddd eeee"},
		},
		{
			name:    "character fallback keeps exact overlap",
			text:    "abcdefghijklmnopqrstuvwxyz",
			size:    10,
			overlap: 3,
			want:    []string{"abcdefghij", "hijklmnopq", "opqrstuvwx", "vwxyz"},
		},
		{
			name: "multibyte text is measured in characters",
			text: "ãããããããããã",
			size: 5,
			want: []string{"ããããã", "ããããã"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splitter, err := textsplitter.NewRecursiveCharacter(
				textsplitter.WithChunkSize(tt.size),
				textsplitter.WithChunkOverlap(tt.overlap),
			)
			require.NoError(t, err)

			got, err := splitter.SplitText(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecursiveCharacter_ChunksNeverExceedSize(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ")
		if i%7 == 0 {
			sb.WriteString("\n")
		}
		if i%23 == 0 {
			sb.WriteString("Supercalifragilisticexpialidocious-without-any-break-at-all\n\n")
		}
	}

	splitter, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(40),
		textsplitter.WithChunkOverlap(8),
	)
	require.NoError(t, err)

	chunks, err := splitter.SplitText(context.Background(), sb.String())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 40, "chunk %q", c)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestRecursiveCharacter_SplitDocuments(t *testing.T) {
	splitter, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(20),
		textsplitter.WithChunkOverlap(0),
	)
	require.NoError(t, err)

	docs := []schema.Document{
		schema.NewDocument("Paragraph one.\n\nParagraph two.", map[string]any{
			"source": "doc.pdf",
			"page":   0,
			"author": "",
			"title":  nil,
		}),
		schema.NewDocument("", map[string]any{"source": "empty.pdf"}),
	}

	chunks, err := splitter.SplitDocuments(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	for _, c := range chunks {
		assert.Equal(t, map[string]any{"source": "doc.pdf", "page": 0}, c.Metadata)
	}
	assert.Equal(t, "Paragraph one.", chunks[0].PageContent)
	assert.Equal(t, "Paragraph two.", chunks[1].PageContent)

	chunks[0].Metadata["source"] = "changed"
	assert.Equal(t, "doc.pdf", chunks[1].Metadata["source"], "chunks must not share metadata maps")
	assert.Equal(t, "", docs[0].Metadata["author"], "input metadata must not be mutated")
}

func TestRecursiveCharacter_SplitDocumentsCanceled(t *testing.T) {
	splitter, err := textsplitter.NewRecursiveCharacter()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = splitter.SplitDocuments(ctx, []schema.Document{schema.NewDocument("text", nil)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCleanMetadata(t *testing.T) {
	in := map[string]any{"a": "x", "b": "", "c": nil, "d": 0, "e": false}
	got := textsplitter.CleanMetadata(in)

	assert.Equal(t, map[string]any{"a": "x", "d": 0, "e": false}, got)
	assert.Len(t, in, 5)
	assert.Empty(t, textsplitter.CleanMetadata(nil))
}
