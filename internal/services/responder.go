package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/embedding"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
)

var ErrEmptyAnswer = errors.New("model returned an empty answer")

const (
	defaultTopK     = 4
	defaultMinScore = 0.2
)

const defaultSystemPrompt = `You are the assistant for a Google Developer Group community.
Answer questions about events, the team, registration, certificates and how to get in touch.
Use only the provided context. If the context does not contain the answer, say you do not know and suggest contacting the organizers.
Keep answers short and friendly.`

// ResponderInput is everything the generation step may see
type ResponderInput struct {
	Message string
	History []models.HistoryTurn
	UserID  string
}

// ResponderOutput is a generated answer and the knowledge it used
type ResponderOutput struct {
	Answer  string
	Context []models.ContextItem
}

// Responder produces an answer for a sanitized chat message
type Responder interface {
	Respond(ctx context.Context, in ResponderInput) (*ResponderOutput, error)
}

// RetrievalResponderConfig tunes retrieval
type RetrievalResponderConfig struct {
	TopK         int
	MinScore     float64
	SystemPrompt string
	Temperature  float64
}

// RetrievalResponder ranks stored chunks by cosine similarity and asks a chat model
type RetrievalResponder struct {
	store    KnowledgeStore
	embedder embedding.Provider
	model    llms.Model
	cfg      RetrievalResponderConfig
}

// NewOpenAIChatModel creates a langchaingo chat model for an OpenAI-compatible endpoint
func NewOpenAIChatModel(baseURL, apiKey, model string) (llms.Model, error) {
	if apiKey == "" {
		apiKey = "none"
	}
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return client, nil
}

// NewRetrievalResponder creates the default responder
func NewRetrievalResponder(store KnowledgeStore, embedder embedding.Provider, model llms.Model, cfg RetrievalResponderConfig) *RetrievalResponder {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MinScore == 0 {
		cfg.MinScore = defaultMinScore
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	return &RetrievalResponder{store: store, embedder: embedder, model: model, cfg: cfg}
}

// Respond retrieves context for the message and generates an answer
func (r *RetrievalResponder) Respond(ctx context.Context, in ResponderInput) (*ResponderOutput, error) {
	items, err := r.retrieve(ctx, in.Message)
	if err != nil {
		return nil, err
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, r.cfg.SystemPrompt+"\n\nContext:\n"+formatContext(items)),
	}
	for _, turn := range in.History {
		role := llms.ChatMessageTypeHuman
		if turn.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, turn.Content))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, in.Message))

	resp, err := r.model.GenerateContent(ctx, content, llms.WithTemperature(r.cfg.Temperature))
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, ErrEmptyAnswer
	}

	return &ResponderOutput{
		Answer:  strings.TrimSpace(resp.Choices[0].Content),
		Context: items,
	}, nil
}

func (r *RetrievalResponder) retrieve(ctx context.Context, query string) ([]models.ContextItem, error) {
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	chunks, err := r.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge: %w", err)
	}

	items := make([]models.ContextItem, 0, len(chunks))
	for _, c := range chunks {
		score := embedding.CosineSimilarity(queryVector, c.Embedding) * importanceBoost(c.Importance)
		if score < r.cfg.MinScore {
			continue
		}
		items = append(items, models.ContextItem{
			Title:    c.Title,
			Text:     c.Text,
			Category: c.Category,
			Score:    score,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) > r.cfg.TopK {
		items = items[:r.cfg.TopK]
	}
	return items, nil
}

func importanceBoost(importance models.Importance) float64 {
	switch importance {
	case models.ImportanceHigh:
		return 1.1
	case models.ImportanceLow:
		return 0.9
	}
	return 1
}

func formatContext(items []models.ContextItem) string {
	if len(items) == 0 {
		return "(no matching knowledge)"
	}
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, item.Title, item.Text)
	}
	return b.String()
}
