package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

func TestStringOutputParser(t *testing.T) {
	parser := schema.StringOutputParser{}

	t.Run("returns first choice verbatim", func(t *testing.T) {
		got, err := parser.Parse(&schema.ContentResponse{
			Choices: []*schema.ContentChoice{{Content: "  Brasília.\n"}, {Content: "ignored"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "  Brasília.\n", got)
	})

	t.Run("empty response", func(t *testing.T) {
		_, err := parser.Parse(&schema.ContentResponse{})
		assert.ErrorIs(t, err, schema.ErrEmptyResponse)

		_, err = parser.Parse(nil)
		assert.ErrorIs(t, err, schema.ErrEmptyResponse)
	})
}

func TestMessageContent_GetTextContent(t *testing.T) {
	msg := schema.MessageContent{
		Role: schema.ChatMessageTypeHuman,
		Parts: []schema.ContentPart{
			schema.TextContent{Text: "first"},
			schema.TextContent{Text: ""},
			schema.TextContent{Text: "second"},
		},
	}
	assert.Equal(t, "first\nsecond", msg.GetTextContent())
	assert.Equal(t, "hello", schema.NewHumanMessage("hello").GetTextContent())
}
