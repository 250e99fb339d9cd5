package chains

import (
	"log/slog"
	"time"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/prompts"
)

type options struct {
	template    prompts.PromptTemplate
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures an Answerer or a RetrievalQA chain.
type Option func(*options)

func defaultOptions() options {
	return options{
		template: prompts.DefaultGroundedQAPrompt,
		logger:   slog.Default(),
	}
}

// WithTemplate replaces the grounded QA prompt. The template must bind
// exactly prompts.ContextVar and prompts.QuestionVar.
func WithTemplate(template prompts.PromptTemplate) Option {
	return func(o *options) {
		o.template = template
	}
}

// WithTemperature sets the sampling temperature of the answer call.
// The default is zero.
func WithTemperature(temperature float64) Option {
	return func(o *options) {
		o.temperature = temperature
	}
}

// WithTimeout bounds each model call. Zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout >= 0 {
			o.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
