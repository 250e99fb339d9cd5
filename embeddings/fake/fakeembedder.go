// Package fake provides a deterministic embeddings.Embedder for tests.
package fake

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings"
)

const DefaultDimension = 512

// Embedder maps text to a normalised bag-of-words vector. Each new token
// is given the next free coordinate, so texts sharing words are close and
// texts without common words are orthogonal until the vocabulary outgrows
// the dimension, after which tokens are hashed onto existing coordinates.
type Embedder struct {
	dim int

	mu     sync.Mutex
	vocab  map[string]int
	err    error
	calls  int
	inputs []string
}

var _ embeddings.Embedder = (*Embedder)(nil)

func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Embedder{
		dim:   dim,
		vocab: make(map[string]int),
	}
}

func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	if e.err != nil {
		return nil, e.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	e.inputs = append(e.inputs, texts...)
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) GetDimension(context.Context) (int, error) {
	return e.dim, nil
}

// SetError makes every following call fail with err.
func (e *Embedder) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns how many provider calls were made.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Inputs returns every text embedded so far, in call order.
func (e *Embedder) Inputs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.inputs...)
}

func (e *Embedder) embed(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, token := range Tokenize(text) {
		vec[e.index(token)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (e *Embedder) index(token string) int {
	if idx, ok := e.vocab[token]; ok {
		return idx
	}
	var idx int
	if len(e.vocab) < e.dim {
		idx = len(e.vocab)
	} else {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		idx = int(h.Sum32() % uint32(e.dim))
	}
	e.vocab[token] = idx
	return idx
}

// Tokenize case-folds text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(cases.Fold().String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ErrUnavailable is a ready-made error for SetError.
var ErrUnavailable = errors.New("fake embedder unavailable")
