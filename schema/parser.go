package schema

import "errors"

// ErrEmptyResponse is returned when a model reply carries no choices.
var ErrEmptyResponse = errors.New("empty response from model")

// OutputParser turns the raw reply of a model into a typed value.
type OutputParser[T any] interface {
	Parse(resp *ContentResponse) (T, error)
}

// StringOutputParser returns the text of the first choice exactly as the
// model produced it.
type StringOutputParser struct{}

var _ OutputParser[string] = StringOutputParser{}

func (StringOutputParser) Parse(resp *ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
