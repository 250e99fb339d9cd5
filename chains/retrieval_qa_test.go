package chains_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/chains"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms/fake"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/prompts"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
	fakeretriever "github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema/fake"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
)

func TestFormatDocuments(t *testing.T) {
	docs := []schema.Document{
		{PageContent: "The sky is blue."},
		{PageContent: "Grass is green."},
	}
	assert.Equal(t, "The sky is blue.\n\nGrass is green.", chains.FormatDocuments(docs))
	assert.Equal(t, chains.FormatDocuments(docs), chains.FormatDocuments(docs))
	assert.Empty(t, chains.FormatDocuments(nil))
}

func TestNewAnswerer(t *testing.T) {
	fakeLLM := fake.NewFakeLLM([]string{"ok"})

	_, err := chains.NewAnswerer(nil)
	require.Error(t, err)

	_, err = chains.NewAnswerer(fakeLLM, chains.WithTemplate(prompts.NewPromptTemplate("{{.contexto}} only")))
	require.ErrorIs(t, err, chains.ErrInvalidTemplate)

	_, err = chains.NewAnswerer(fakeLLM, chains.WithTemplate(
		prompts.NewPromptTemplate("{{.pergunta}} {{.contexto}} {{.extra}}")))
	require.ErrorIs(t, err, chains.ErrInvalidTemplate)

	_, err = chains.NewAnswerer(fakeLLM, chains.WithTemplate(
		prompts.NewPromptTemplate("Q: {{.pergunta}}\nC: {{.contexto}}")))
	require.NoError(t, err)
}

func TestAnswerer_Answer(t *testing.T) {
	ctx := context.Background()

	t.Run("renders template at temperature zero", func(t *testing.T) {
		fakeLLM := fake.NewFakeLLM([]string{"  Brasília.  "})
		answerer, err := chains.NewAnswerer(fakeLLM)
		require.NoError(t, err)

		answer, err := answerer.Answer(ctx, "The capital of Brazil is Brasília.", "What is the capital of Brazil?")
		require.NoError(t, err)
		assert.Equal(t, "  Brasília.  ", answer, "model text is returned unchanged")

		prompt, ok := fakeLLM.LastPrompt()
		require.True(t, ok)
		assert.Equal(t, prompts.DefaultGroundedQAPrompt.Format(map[string]string{
			prompts.ContextVar:  "The capital of Brazil is Brasília.",
			prompts.QuestionVar: "What is the capital of Brazil?",
		}), prompt)

		opts := fakeLLM.LastCallOptions()
		require.NotNil(t, opts.Temperature)
		assert.Zero(t, *opts.Temperature)
	})

	t.Run("configured temperature", func(t *testing.T) {
		fakeLLM := fake.NewFakeLLM([]string{"ok"})
		answerer, err := chains.NewAnswerer(fakeLLM, chains.WithTemperature(0.3))
		require.NoError(t, err)

		_, err = answerer.Answer(ctx, "ctx", "q")
		require.NoError(t, err)
		require.NotNil(t, fakeLLM.LastCallOptions().Temperature)
		assert.InDelta(t, 0.3, *fakeLLM.LastCallOptions().Temperature, 1e-9)
	})

	t.Run("model failure is a generation error", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		fakeLLM := fake.NewFakeLLM([]string{"unused"})
		fakeLLM.SetError(boom)
		answerer, err := chains.NewAnswerer(fakeLLM)
		require.NoError(t, err)

		_, err = answerer.Answer(ctx, "context", "question")
		require.ErrorIs(t, err, llms.ErrGeneration)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("already wrapped error is not wrapped twice", func(t *testing.T) {
		fakeLLM := fake.NewFakeLLM([]string{"unused"})
		fakeLLM.SetError(fmt.Errorf("%w: blocked", llms.ErrGeneration))
		answerer, err := chains.NewAnswerer(fakeLLM)
		require.NoError(t, err)

		_, err = answerer.Answer(ctx, "context", "question")
		require.ErrorIs(t, err, llms.ErrGeneration)
		assert.Equal(t, "generation failed: blocked", err.Error())
	})

	t.Run("timeout bounds the call", func(t *testing.T) {
		answerer, err := chains.NewAnswerer(slowLLM{}, chains.WithTimeout(10*time.Millisecond))
		require.NoError(t, err)

		_, err = answerer.Answer(ctx, "context", "question")
		require.ErrorIs(t, err, llms.ErrGeneration)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRetrievalQA_Call(t *testing.T) {
	ctx := context.Background()
	extractive := func() *fake.Extractive {
		return fake.NewExtractive(prompts.DefaultGroundedQAPrompt, prompts.DefaultRefusal)
	}

	t.Run("grounded answer", func(t *testing.T) {
		retriever := fakeretriever.NewRetriever(
			schema.NewDocument("Paris is lovely in spring.", nil),
			schema.NewDocument("The capital of Brazil is Brasília.", nil),
		)
		chain := newChain(t, retriever, extractive())

		answer, err := chain.Call(ctx, "What is the capital of Brazil?")
		require.NoError(t, err)
		assert.Contains(t, answer, "Brasília")
		assert.NotEqual(t, prompts.DefaultRefusal, answer)
		assert.Equal(t, []string{"What is the capital of Brazil?"}, retriever.Queries())
	})

	t.Run("empty retrieval still reaches the model", func(t *testing.T) {
		model := extractive()
		chain := newChain(t, fakeretriever.NewRetriever(), model)

		answer, err := chain.Call(ctx, "What is the capital of Brazil?")
		require.NoError(t, err)
		assert.Equal(t, prompts.DefaultRefusal, answer)
		require.Len(t, model.Prompts(), 1)
	})

	t.Run("missing collection is an empty context", func(t *testing.T) {
		retriever := fakeretriever.NewRetriever()
		retriever.ErrToReturn = vectorstores.ErrCollectionNotFound
		chain := newChain(t, retriever, extractive())

		answer, err := chain.Call(ctx, "What is the capital of Brazil?")
		require.NoError(t, err)
		assert.Equal(t, prompts.DefaultRefusal, answer)
	})

	t.Run("retrieval error", func(t *testing.T) {
		retrievalErr := fmt.Errorf("%w: database down", vectorstores.ErrConnection)
		fakeLLM := fake.NewFakeLLM([]string{"unused"})
		retriever := fakeretriever.NewRetriever()
		retriever.ErrToReturn = retrievalErr
		chain := newChain(t, retriever, fakeLLM)

		_, err := chain.Call(ctx, "Any question.")
		require.ErrorIs(t, err, vectorstores.ErrConnection)
		assert.Contains(t, err.Error(), "document retrieval failed")
		assert.Equal(t, 0, fakeLLM.GetCallCount(), "LLM should not have been called when retrieval fails")
	})

	t.Run("empty question", func(t *testing.T) {
		chain := newChain(t, fakeretriever.NewRetriever(), extractive())
		_, err := chain.Call(ctx, "   ")
		require.ErrorIs(t, err, chains.ErrEmptyQuestion)
	})

	t.Run("calls are independent", func(t *testing.T) {
		fakeLLM := fake.NewFakeLLM([]string{"first", "second"})
		retriever := fakeretriever.NewRetriever(schema.NewDocument("shared context", nil))
		chain := newChain(t, retriever, fakeLLM)

		_, err := chain.Call(ctx, "question one")
		require.NoError(t, err)
		_, err = chain.Call(ctx, "question two")
		require.NoError(t, err)

		assert.Equal(t, []string{"question one", "question two"}, retriever.Queries())
		second, _ := fakeLLM.LastPrompt()
		assert.Contains(t, second, "question two")
		assert.NotContains(t, second, "question one")
	})
}

func TestNewRetrievalQA(t *testing.T) {
	answerer, err := chains.NewAnswerer(fake.NewFakeLLM([]string{"ok"}))
	require.NoError(t, err)

	_, err = chains.NewRetrievalQA(nil, answerer)
	require.Error(t, err)
	_, err = chains.NewRetrievalQA(fakeretriever.NewRetriever(), nil)
	require.Error(t, err)
}

func newChain(t *testing.T, retriever schema.Retriever, model llms.Model) *chains.RetrievalQA {
	t.Helper()
	answerer, err := chains.NewAnswerer(model)
	require.NoError(t, err)
	chain, err := chains.NewRetrievalQA(retriever, answerer)
	require.NoError(t, err)
	return chain
}

type slowLLM struct{}

func (slowLLM) GenerateContent(ctx context.Context, _ []schema.MessageContent, _ ...llms.CallOption) (*schema.ContentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s slowLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}
