package fake

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/prompts"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the is are was were be been what which who whom whose where when why how
		of in on at to for from by with about do does did and or not it its this that these those
		o os as um uma uns umas de da do das dos em no na nos nas e é são foi qual quais quem
		onde quando como que por para com se ao à aos às sobre`) {
		stopwords[w] = struct{}{}
	}
}

// Extractive answers prompts rendered from a grounded QA template by quoting
// the first context sentence that contains every keyword of the question.
// When no sentence qualifies it replies with the refusal sentence, which
// makes grounded and refusal behaviour reproducible without a real model.
type Extractive struct {
	template prompts.PromptTemplate
	refusal  string

	mu      sync.Mutex
	prompts []string
}

var _ llms.Model = (*Extractive)(nil)

// NewExtractive builds a model for prompts rendered from template, which must
// bind prompts.ContextVar and prompts.QuestionVar.
func NewExtractive(template prompts.PromptTemplate, refusal string) *Extractive {
	return &Extractive{
		template: template,
		refusal:  refusal,
	}
}

func (e *Extractive) GenerateContent(
	_ context.Context,
	messages []schema.MessageContent,
	_ ...llms.CallOption,
) (*schema.ContentResponse, error) {
	var prompt string
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].GetTextContent()
	}

	e.mu.Lock()
	e.prompts = append(e.prompts, prompt)
	e.mu.Unlock()

	answer := e.refusal
	if vars, ok := e.template.Extract(prompt); ok {
		answer = e.answer(vars[prompts.ContextVar], vars[prompts.QuestionVar])
	}

	return &schema.ContentResponse{
		Choices: []*schema.ContentChoice{
			{Content: answer, StopReason: "STOP"},
		},
	}, nil
}

func (e *Extractive) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, e, prompt, options...)
}

// Prompts returns every prompt received, oldest first.
func (e *Extractive) Prompts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prompts...)
}

func (e *Extractive) answer(contextText, question string) string {
	keywords := e.keywords(question)
	if len(keywords) == 0 {
		return e.refusal
	}

	for _, sentence := range splitSentences(contextText) {
		words := make(map[string]struct{})
		for _, w := range e.tokenize(sentence) {
			words[w] = struct{}{}
		}
		found := true
		for _, k := range keywords {
			if _, ok := words[k]; !ok {
				found = false
				break
			}
		}
		if found {
			return sentence
		}
	}
	return e.refusal
}

func (e *Extractive) keywords(question string) []string {
	var out []string
	for _, w := range e.tokenize(question) {
		if _, stop := stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

func (e *Extractive) tokenize(text string) []string {
	return strings.FieldsFunc(cases.Fold().String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitSentences cuts text after '.', '!' or '?' followed by whitespace, and at newlines.
func splitSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			flush()
		}
	}
	flush()
	return sentences
}
