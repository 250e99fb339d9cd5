// Package llms defines the text generation capability used to answer
// questions and the options shared by every provider.
package llms

import (
	"context"
	"errors"
	"fmt"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// ErrGeneration marks failures of the model call itself: transport errors,
// timeouts and empty or blocked responses.
var ErrGeneration = errors.New("generation failed")

type Model interface {
	GenerateContent(ctx context.Context, messages []schema.MessageContent, options ...CallOption) (*schema.ContentResponse, error)
	Call(ctx context.Context, prompt string, options ...CallOption) (string, error)
}

func GenerateFromSinglePrompt(ctx context.Context, llm Model, prompt string, options ...CallOption) (string, error) {
	resp, err := llm.GenerateContent(ctx, []schema.MessageContent{schema.NewHumanMessage(prompt)}, options...)
	if err != nil {
		return "", err
	}

	text, err := schema.StringOutputParser{}.Parse(resp)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return text, nil
}

func TextParts(role schema.ChatMessageType, parts ...string) schema.MessageContent {
	result := schema.MessageContent{
		Role:  role,
		Parts: make([]schema.ContentPart, 0, len(parts)),
	}
	for _, part := range parts {
		result.Parts = append(result.Parts, schema.TextContent{Text: part})
	}
	return result
}
