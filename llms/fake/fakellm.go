// Package fake provides deterministic llms.Model implementations for tests.
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// LLM replays a fixed list of responses in a cycle and records what it was asked.
type LLM struct {
	mu          sync.Mutex
	responses   []string
	index       int
	err         error
	prompts     []string
	lastOptions llms.CallOptions
}

var _ llms.Model = (*LLM)(nil)

func NewFakeLLM(responses []string) *LLM {
	return &LLM{
		responses: responses,
	}
}

// GenerateContent returns the next predefined response in the cycle.
func (f *LLM) GenerateContent(
	_ context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*schema.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var prompt string
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].GetTextContent()
	}
	f.prompts = append(f.prompts, prompt)
	f.lastOptions = llms.NewCallOptions(options...)

	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no responses configured")
	}

	response := f.responses[f.index]
	f.index = (f.index + 1) % len(f.responses)

	return &schema.ContentResponse{
		Choices: []*schema.ContentChoice{
			{Content: response},
		},
	}, nil
}

// Call is a simplified interface for generating responses from a string prompt.
func (f *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

// SetError makes every following call fail with err. A nil err restores normal replies.
func (f *LLM) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Reset resets the response index and the recorded calls.
func (f *LLM) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.prompts = nil
	f.lastOptions = llms.CallOptions{}
}

// AddResponse appends a new response to the list.
func (f *LLM) AddResponse(response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response)
}

// LastPrompt returns the last prompt sent to the LLM.
func (f *LLM) LastPrompt() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return "", false
	}
	return f.prompts[len(f.prompts)-1], true
}

// Prompts returns every prompt received, oldest first.
func (f *LLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// LastCallOptions returns the options of the most recent call.
func (f *LLM) LastCallOptions() llms.CallOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOptions
}

// GetCallCount returns the number of times the LLM was called.
func (f *LLM) GetCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}
