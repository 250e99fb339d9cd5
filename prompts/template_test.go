package prompts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/prompts"
)

func TestPromptTemplate_Format(t *testing.T) {
	tmpl := prompts.NewPromptTemplate("Context: {{.context}}\nQuestion: {{.query}} {{.query}}")

	t.Run("substitutes every occurrence", func(t *testing.T) {
		got := tmpl.Format(map[string]string{"context": "ctx", "query": "q"})
		assert.Equal(t, "Context: ctx\nQuestion: q q", got)
	})

	t.Run("values are not re-expanded", func(t *testing.T) {
		got := tmpl.Format(map[string]string{"context": "{{.query}}", "query": "q"})
		assert.Equal(t, "Context: {{.query}}\nQuestion: q q", got)
	})

	t.Run("missing variables stay in place", func(t *testing.T) {
		got := tmpl.Format(map[string]string{"context": "ctx"})
		assert.Equal(t, "Context: ctx\nQuestion: {{.query}} {{.query}}", got)
	})
}

func TestPromptTemplate_Variables(t *testing.T) {
	tmpl := prompts.NewPromptTemplate("{{.b}} {{.a}} {{.b}} {not} {{ .c }}")
	assert.Equal(t, []string{"b", "a"}, tmpl.Variables())
	assert.Empty(t, prompts.NewPromptTemplate("plain").Variables())
}

func TestPromptTemplate_Extract(t *testing.T) {
	tmpl := prompts.NewPromptTemplate("C: {{.context}}\nQ: {{.query}}\nA:")

	t.Run("round trip", func(t *testing.T) {
		vars := map[string]string{"context": "line one\n\nline two", "query": "why?"}
		got, ok := tmpl.Extract(tmpl.Format(vars))
		require.True(t, ok)
		assert.Equal(t, vars, got)
	})

	t.Run("empty values", func(t *testing.T) {
		got, ok := tmpl.Extract(tmpl.Format(map[string]string{"context": "", "query": ""}))
		require.True(t, ok)
		assert.Equal(t, map[string]string{"context": "", "query": ""}, got)
	})

	t.Run("foreign text", func(t *testing.T) {
		_, ok := tmpl.Extract("something else entirely")
		assert.False(t, ok)
	})

	t.Run("repeated placeholder must agree", func(t *testing.T) {
		rep := prompts.NewPromptTemplate("{{.x}}-{{.x}}")
		got, ok := rep.Extract("a-a")
		require.True(t, ok)
		assert.Equal(t, "a", got["x"])
	})
}

func TestGroundedQAPrompt(t *testing.T) {
	tmpl := prompts.DefaultGroundedQAPrompt

	assert.Equal(t, []string{prompts.ContextVar, prompts.QuestionVar}, tmpl.Variables())
	assert.Contains(t, tmpl.Template, `"`+prompts.DefaultRefusal+`"`)
	assert.NotContains(t, tmpl.Template, "{{.recusa}}")

	rendered := tmpl.Format(map[string]string{
		prompts.ContextVar:  "The capital of Brazil is Brasília.",
		prompts.QuestionVar: "What is the capital of Brazil?",
	})
	assert.Contains(t, rendered, "CONTEXTO:\nThe capital of Brazil is Brasília.\n")
	assert.Contains(t, rendered, "PERGUNTA DO USUÁRIO:\nWhat is the capital of Brazil?\n")

	custom := prompts.NewGroundedQAPrompt("I don't know.")
	assert.Contains(t, custom.Template, `Resposta: "I don't know."`)
	assert.NotContains(t, custom.Template, prompts.DefaultRefusal)
}
