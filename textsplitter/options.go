package textsplitter

import "unicode/utf8"

// DefaultSeparators are tried in order: paragraphs, lines, sentences, words
// and finally single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// options holds configuration settings for the text splitter.
type options struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	lengthFunc   func(string) int
}

// Option is a function type for configuring the splitter.
type Option func(*options)

func defaultOptions() options {
	return options{
		chunkSize:    1000,
		chunkOverlap: 150,
		separators:   DefaultSeparators,
		lengthFunc:   utf8.RuneCountInString,
	}
}

// WithChunkSize sets the maximum chunk length.
func WithChunkSize(size int) Option {
	return func(o *options) {
		o.chunkSize = size
	}
}

// WithChunkOverlap sets how much trailing text of a chunk is carried into the next one.
func WithChunkOverlap(overlap int) Option {
	return func(o *options) {
		o.chunkOverlap = overlap
	}
}

// WithSeparators replaces the separator list. The last entry should be ""
// so that oversized text can always be cut.
func WithSeparators(separators ...string) Option {
	return func(o *options) {
		if len(separators) > 0 {
			o.separators = separators
		}
	}
}

// WithLengthFunc changes how chunk length is measured. Characters (runes) by default.
func WithLengthFunc(fn func(string) int) Option {
	return func(o *options) {
		if fn != nil {
			o.lengthFunc = fn
		}
	}
}
