package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms/ollama/ollamaclient"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// Common errors returned by the Ollama LLM implementation.
var (
	ErrEmptyResponse       = errors.New("ollama: empty response received")
	ErrIncompleteEmbedding = errors.New("ollama: not all input texts were embedded")
	ErrModelNotFound       = errors.New("ollama: model not found")
	ErrInvalidModel        = errors.New("ollama: invalid model specified")
)

// LLM implements text generation and embeddings against a local Ollama server.
type LLM struct {
	client  *ollamaclient.Client
	options options
	logger  *slog.Logger

	ensured sync.Map // model name -> struct{}

	dimension int
	dimMu     sync.Mutex
}

var (
	_ llms.Model          = (*LLM)(nil)
	_ embeddings.Embedder = (*LLM)(nil)
)

// New creates a new Ollama client for the configured chat and embedding models.
func New(opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)

	if o.model == "" || o.embeddingModel == "" {
		return nil, ErrInvalidModel
	}

	client, err := ollamaclient.NewClient(o.ollamaServerURL, o.httpClient, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	llm := &LLM{
		client:  client,
		options: o,
		logger:  o.logger.With("component", "ollama_llm", "model", o.model, "embedding_model", o.embeddingModel),
	}

	llm.logger.Info("Ollama LLM initialized successfully", "url", client.GetBaseURL().String())
	return llm, nil
}

// Call implements simple prompt-based text generation.
func (o *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o, prompt, options...)
}

// GenerateContent sends the conversation without streaming. Failures are
// wrapped with llms.ErrGeneration.
func (o *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*schema.ContentResponse, error) {
	start := time.Now()
	opts := llms.NewCallOptions(options...)

	model := o.options.model
	if opts.Model != "" {
		model = opts.Model
	}

	o.logger.DebugContext(ctx, "Starting Ollama content generation", "message_count", len(messages), "model", model)

	if err := o.ensureModel(ctx, model); err != nil {
		return nil, fmt.Errorf("%w: %w", llms.ErrGeneration, err)
	}

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: convertToOllamaMessages(messages),
		Stream:   &stream,
	}
	if opts.Temperature != nil {
		req.Options = map[string]any{"temperature": *opts.Temperature}
	}

	var finalResp api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		finalResp = resp
		return nil
	})
	duration := time.Since(start)
	if err != nil {
		o.logger.ErrorContext(ctx, "Ollama client failed", "error", err, "duration", duration)
		return nil, fmt.Errorf("%w: ollama: %w", llms.ErrGeneration, err)
	}

	o.logger.DebugContext(ctx, "Content generation completed", "duration", duration)
	return &schema.ContentResponse{
		Choices: []*schema.ContentChoice{
			{
				Content:    finalResp.Message.Content,
				StopReason: finalResp.DoneReason,
				GenerationInfo: map[string]any{
					"CompletionTokens": finalResp.EvalCount,
					"PromptTokens":     finalResp.PromptEvalCount,
					"TotalTokens":      finalResp.EvalCount + finalResp.PromptEvalCount,
					"Duration":         duration,
					"Model":            model,
				},
			},
		},
	}, nil
}

func convertToOllamaMessages(messages []schema.MessageContent) []api.Message {
	chatMsgs := make([]api.Message, 0, len(messages))
	for _, mc := range messages {
		chatMsgs = append(chatMsgs, api.Message{
			Role:    typeToRole(mc.Role),
			Content: mc.GetTextContent(),
		})
	}
	return chatMsgs
}

func typeToRole(typ schema.ChatMessageType) string {
	switch typ {
	case schema.ChatMessageTypeSystem:
		return "system"
	case schema.ChatMessageTypeAI:
		return "assistant"
	default:
		return "user"
	}
}

// EmbedDocuments embeds all texts in a single /api/embed call.
func (o *LLM) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if err := o.ensureModel(ctx, o.options.embeddingModel); err != nil {
		return nil, fmt.Errorf("%w: %w", embeddings.ErrEmbeddingService, err)
	}

	start := time.Now()
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.options.embeddingModel,
		Input: texts,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "Embedding API call failed", "error", err, "texts", len(texts), "duration", time.Since(start))
		return nil, fmt.Errorf("%w: ollama: %w", embeddings.ErrEmbeddingService, err)
	}

	if len(resp.Embeddings) != len(texts) {
		o.logger.ErrorContext(ctx, "Embedding count mismatch", "expected", len(texts), "got", len(resp.Embeddings))
		return nil, fmt.Errorf("%w: %w", embeddings.ErrEmbeddingService, ErrIncompleteEmbedding)
	}
	for _, e := range resp.Embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("%w: %w", embeddings.ErrEmbeddingService, ErrEmptyResponse)
		}
	}

	return resp.Embeddings, nil
}

// EmbedQuery creates an embedding for a single query.
func (o *LLM) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GetDimension returns the embedding dimension of the embedding model.
func (o *LLM) GetDimension(ctx context.Context) (int, error) {
	o.dimMu.Lock()
	defer o.dimMu.Unlock()

	if o.dimension > 0 {
		return o.dimension, nil
	}

	sample, err := o.EmbedQuery(ctx, "dimension")
	if err != nil {
		return 0, fmt.Errorf("failed to get embedding dimension: %w", err)
	}
	o.dimension = len(sample)
	return o.dimension, nil
}

// GetModelDetails returns information about the chat model.
func (o *LLM) GetModelDetails(ctx context.Context) (*schema.ModelDetails, error) {
	showResp, err := o.client.Show(ctx, &api.ShowRequest{Model: o.options.model})
	if err != nil {
		if ollamaclient.IsNotFound(err) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to retrieve model information: %w", err)
	}

	return &schema.ModelDetails{
		Family:        showResp.Details.Family,
		ParameterSize: showResp.Details.ParameterSize,
		Quantization:  showResp.Details.QuantizationLevel,
	}, nil
}

// ensureModel makes sure model is available locally, pulling it when
// allowed. Each model is checked once per LLM.
func (o *LLM) ensureModel(ctx context.Context, model string) error {
	if _, ok := o.ensured.Load(model); ok {
		return nil
	}

	_, err := o.client.Show(ctx, &api.ShowRequest{Model: model})
	switch {
	case err == nil:
	case ollamaclient.IsNotFound(err) && o.options.pullMissing:
		if err := o.pullModel(ctx, model); err != nil {
			return err
		}
	case ollamaclient.IsNotFound(err):
		return fmt.Errorf("%w: %s", ErrModelNotFound, model)
	default:
		return fmt.Errorf("model existence check failed: %w", err)
	}

	o.ensured.Store(model, struct{}{})
	return nil
}

func (o *LLM) pullModel(ctx context.Context, model string) error {
	o.logger.InfoContext(ctx, "Model not found locally, initiating pull", "pull_model", model)

	pullStart := time.Now()
	stream := true
	err := o.client.Pull(ctx, &api.PullRequest{Model: model, Stream: &stream}, func(progress api.ProgressResponse) error {
		if progress.Total > 0 {
			percent := (float64(progress.Completed) / float64(progress.Total)) * 100
			o.logger.DebugContext(ctx, "Model pull progress",
				"status", progress.Status,
				"percent", fmt.Sprintf("%.1f%%", percent))
		}
		return nil
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "Model pull failed", "error", err, "duration", time.Since(pullStart))
		return fmt.Errorf("model pull failed: %w", err)
	}

	o.logger.InfoContext(ctx, "Model pull completed successfully", "pull_model", model, "duration", time.Since(pullStart))
	return nil
}
