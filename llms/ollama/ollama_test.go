package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms/ollama"
)

type fakeServer struct {
	mu        sync.Mutex
	models    map[string]bool
	pulls     []string
	chatBody  map[string]any
	failEmbed bool
}

func newFakeServer(t *testing.T, models ...string) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{models: map[string]bool{}}
	for _, m := range models {
		fs.models[m] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/show", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Model string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if !fs.models[req.Model] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"details":{"family":"llama","parameter_size":"3B","quantization_level":"Q4"}}`))
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Model string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		fs.mu.Lock()
		fs.models[req.Model] = true
		fs.pulls = append(fs.pulls, req.Model)
		fs.mu.Unlock()
		_, _ = w.Write([]byte("{\"status\":\"pulling\",\"total\":10,\"completed\":5}\n{\"status\":\"success\"}\n"))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fs.mu.Lock()
		fs.chatBody = body
		fs.mu.Unlock()
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Brasília"},"done":true,"done_reason":"stop","eval_count":3,"prompt_eval_count":5}` + "\n"))
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Input []string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		fs.mu.Lock()
		fail := fs.failEmbed
		fs.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		out := make([][]float32, len(req.Input))
		for i, in := range req.Input {
			out[i] = []float32{float32(len(in)), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

func TestLLM_GenerateContent(t *testing.T) {
	fs, srv := newFakeServer(t, "chat", "embed")
	llm, err := ollama.New(
		ollama.WithServerURL(srv.URL),
		ollama.WithModel("chat"),
		ollama.WithEmbeddingModel("embed"),
	)
	require.NoError(t, err)

	out, err := llm.Call(context.Background(), "What is the capital of Brazil?", llms.WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, "Brasília", out)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, "chat", fs.chatBody["model"])
	assert.Equal(t, false, fs.chatBody["stream"])
	options, ok := fs.chatBody["options"].(map[string]any)
	require.True(t, ok, "options must be sent")
	assert.Contains(t, options, "temperature")
	assert.InDelta(t, 0.0, options["temperature"], 1e-9)
}

func TestLLM_MissingModel(t *testing.T) {
	t.Run("pulled on first use", func(t *testing.T) {
		fs, srv := newFakeServer(t, "embed")
		llm, err := ollama.New(ollama.WithServerURL(srv.URL), ollama.WithModel("chat"), ollama.WithEmbeddingModel("embed"))
		require.NoError(t, err)

		_, err = llm.Call(context.Background(), "hi")
		require.NoError(t, err)
		_, err = llm.Call(context.Background(), "hi again")
		require.NoError(t, err)

		fs.mu.Lock()
		defer fs.mu.Unlock()
		assert.Equal(t, []string{"chat"}, fs.pulls)
	})

	t.Run("reported as generation error without pull", func(t *testing.T) {
		_, srv := newFakeServer(t)
		llm, err := ollama.New(
			ollama.WithServerURL(srv.URL),
			ollama.WithModel("chat"),
			ollama.WithEmbeddingModel("embed"),
			ollama.WithPullMissing(false),
		)
		require.NoError(t, err)

		_, err = llm.Call(context.Background(), "hi")
		require.ErrorIs(t, err, llms.ErrGeneration)
		require.ErrorIs(t, err, ollama.ErrModelNotFound)
	})
}

func TestLLM_Embeddings(t *testing.T) {
	fs, srv := newFakeServer(t, "chat", "embed")
	llm, err := ollama.New(ollama.WithServerURL(srv.URL), ollama.WithModel("chat"), ollama.WithEmbeddingModel("embed"))
	require.NoError(t, err)
	ctx := context.Background()

	vectors, err := llm.EmbedDocuments(ctx, []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1, 0}, {3, 1, 0}}, vectors)

	dim, err := llm.GetDimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	details, err := llm.GetModelDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, "llama", details.Family)

	fs.mu.Lock()
	fs.failEmbed = true
	fs.mu.Unlock()
	_, err = llm.EmbedQuery(ctx, "x")
	require.ErrorIs(t, err, embeddings.ErrEmbeddingService)
}

func TestNew_RequiresModels(t *testing.T) {
	_, err := ollama.New(ollama.WithModel(""))
	require.ErrorIs(t, err, ollama.ErrInvalidModel)
}
