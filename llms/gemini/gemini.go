package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/llms"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

var (
	ErrNoAPIKey      = errors.New("gemini: API key is required")
	ErrInvalidModel  = errors.New("gemini: invalid model specified")
	ErrNoContent     = errors.New("gemini: no content generated")
	ErrSystemMessage = errors.New("gemini: system message must be the first message in the conversation")
)

const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// LLM implements both the Model and Embedder interfaces for Gemini.
type LLM struct {
	client  *genai.Client
	options options
	logger  *slog.Logger

	// dimension is cached after the first call to GetDimension
	dimension int
	dimMu     sync.Mutex
}

var _ llms.Model = (*LLM)(nil)
var _ embeddings.Embedder = (*LLM)(nil)

// New creates a new Gemini client. The API key falls back to GOOGLE_API_KEY
// and then GEMINI_API_KEY.
func New(ctx context.Context, opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)

	for _, env := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		if o.apiKey == "" {
			o.apiKey = os.Getenv(env)
		}
	}
	if o.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	if o.model == "" || o.embeddingModel == "" {
		return nil, ErrInvalidModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  o.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	llm := &LLM{
		client:  client,
		options: o,
		logger:  o.logger.With("component", "gemini_llm", "model", o.model, "embedding_model", o.embeddingModel),
	}

	llm.logger.Info("Gemini client initialized successfully")
	return llm, nil
}

// Call is a convenience method for a single-turn conversation.
func (g *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}

// GenerateContent sends the conversation and returns the first candidate.
// Failures are wrapped with llms.ErrGeneration.
func (g *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*schema.ContentResponse, error) {
	start := time.Now()
	callOpts := llms.NewCallOptions(options...)

	model := g.options.model
	if callOpts.Model != "" {
		model = callOpts.Model
	}

	genConfig := &genai.GenerateContentConfig{}
	if callOpts.Temperature != nil {
		genConfig.Temperature = genai.Ptr(float32(*callOpts.Temperature))
	}

	history, systemInstruction, err := g.convertToGeminiMessages(messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llms.ErrGeneration, err)
	}
	if systemInstruction != nil {
		genConfig.SystemInstruction = systemInstruction
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: gemini: no messages to send", llms.ErrGeneration)
	}

	g.logger.DebugContext(ctx, "Sending request to Gemini", "messages", len(history), "model", model)

	resp, err := g.client.Models.GenerateContent(ctx, model, history, genConfig)
	duration := time.Since(start)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini client failed", "error", err, "duration", duration)
		return nil, fmt.Errorf("%w: gemini: %w", llms.ErrGeneration, err)
	}

	out, err := g.responseToSchema(resp, model, duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llms.ErrGeneration, err)
	}
	return out, nil
}

// EmbedDocuments generates embeddings for a slice of texts.
func (g *LLM) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return g.embed(ctx, texts, taskRetrievalDocument)
}

// EmbedQuery generates an embedding for a single text query.
func (g *LLM) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *LLM) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	res, err := g.client.Models.EmbedContent(ctx, g.options.embeddingModel, contents, &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini embedding failed", "error", err, "texts", len(texts))
		return nil, fmt.Errorf("%w: gemini: %w", embeddings.ErrEmbeddingService, err)
	}

	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini: expected %d embeddings, but got %d",
			embeddings.ErrEmbeddingService, len(texts), len(res.Embeddings))
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: gemini: embedding %d is empty", embeddings.ErrEmbeddingService, i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

// GetDimension returns the embedding dimension of the model.
func (g *LLM) GetDimension(ctx context.Context) (int, error) {
	g.dimMu.Lock()
	defer g.dimMu.Unlock()

	if g.dimension > 0 {
		return g.dimension, nil
	}

	sample, err := g.EmbedQuery(ctx, "dimension")
	if err != nil {
		return 0, fmt.Errorf("failed to get dimension by embedding sample text: %w", err)
	}
	g.dimension = len(sample)
	return g.dimension, nil
}

// convertToGeminiMessages converts the generic schema to Gemini's native types.
func (g *LLM) convertToGeminiMessages(messages []schema.MessageContent) ([]*genai.Content, *genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	var systemInstruction *genai.Content

	for i, msg := range messages {
		var role genai.Role
		switch msg.Role {
		case schema.ChatMessageTypeAI:
			role = genai.RoleModel
		case schema.ChatMessageTypeSystem:
			if i != 0 {
				return nil, nil, ErrSystemMessage
			}
			systemInstruction = genai.NewContentFromText(msg.GetTextContent(), genai.RoleUser)
			continue
		default:
			role = genai.RoleUser
		}

		parts := make([]*genai.Part, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			switch part := p.(type) {
			case schema.TextContent:
				parts = append(parts, genai.NewPartFromText(part.String()))
			default:
				return nil, nil, fmt.Errorf("unsupported content part type: %T", part)
			}
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents, systemInstruction, nil
}

// responseToSchema converts Gemini's response to the generic schema.
func (g *LLM) responseToSchema(resp *genai.GenerateContentResponse, model string, duration time.Duration) (*schema.ContentResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ErrNoContent
	}

	choice := resp.Candidates[0]
	if choice.Content == nil || len(choice.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w (finish reason %q)", ErrNoContent, choice.FinishReason)
	}

	var builder strings.Builder
	for _, part := range choice.Content.Parts {
		if part != nil && !part.Thought {
			builder.WriteString(part.Text)
		}
	}

	var totalTokens int32
	if resp.UsageMetadata != nil {
		totalTokens = resp.UsageMetadata.TotalTokenCount
	}

	return &schema.ContentResponse{
		Choices: []*schema.ContentChoice{
			{
				Content:    builder.String(),
				StopReason: string(choice.FinishReason),
				GenerationInfo: map[string]any{
					"TotalTokens": totalTokens,
					"Duration":    duration,
					"Model":       model,
				},
			},
		},
	}, nil
}
