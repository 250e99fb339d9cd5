package chains

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/prompts"
)

var ErrInvalidTemplate = errors.New("template must bind exactly the context and question placeholders")

// Answerer renders the grounded QA prompt and asks the model for an answer,
// at temperature zero unless configured otherwise. The parsed model text is
// returned unchanged.
type Answerer struct {
	llm         llms.Model
	template    prompts.PromptTemplate
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

func NewAnswerer(llm llms.Model, opts ...Option) (*Answerer, error) {
	if llm == nil {
		return nil, errors.New("LLM cannot be nil")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	vars := o.template.Variables()
	slices.Sort(vars)
	want := []string{prompts.ContextVar, prompts.QuestionVar}
	slices.Sort(want)
	if !slices.Equal(vars, want) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidTemplate, vars)
	}

	return &Answerer{
		llm:         llm,
		template:    o.template,
		temperature: o.temperature,
		timeout:     o.timeout,
		logger:      o.logger.With("component", "answerer"),
	}, nil
}

// Answer asks the model to answer question from contextText. Failures of
// the model call are reported as llms.ErrGeneration.
func (a *Answerer) Answer(ctx context.Context, contextText, question string) (string, error) {
	prompt := a.template.Format(map[string]string{
		prompts.ContextVar:  contextText,
		prompts.QuestionVar: question,
	})

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, llms.WithTemperature(a.temperature))
	if err != nil {
		a.logger.ErrorContext(ctx, "Answer generation failed", "error", err, "duration", time.Since(start))
		if errors.Is(err, llms.ErrGeneration) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", llms.ErrGeneration, err)
	}

	a.logger.DebugContext(ctx, "Answer generated",
		"context_length", len(contextText), "answer_length", len(answer), "duration", time.Since(start))
	return answer, nil
}
