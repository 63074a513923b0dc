// Package embedding turns text into vectors through an OpenAI-compatible API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

var (
	ErrEmptyEmbedding     = errors.New("embedding provider returned no vector")
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)

// Provider computes the embedding vector for a piece of text
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f
func (f ProviderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// Config configures the OpenAI-compatible provider
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	RequestsPerSecond float64
	Burst             int
	MaxAttempts       int
	BaseDelay         time.Duration
}

// OpenAIProvider embeds text with a langchaingo embedder, throttled and retried
type OpenAIProvider struct {
	embedder    embeddings.Embedder
	limiter     *rate.Limiter
	logger      *logrus.Logger
	model       string
	maxAttempts int
	baseDelay   time.Duration
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible embeddings endpoint
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	token := cfg.APIKey
	if token == "" {
		// local OpenAI-compatible servers accept any token
		token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return NewProvider(embedder, cfg), nil
}

// NewProvider wraps any langchaingo embedder with throttling and retries
func NewProvider(embedder embeddings.Embedder, cfg Config) *OpenAIProvider {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(math.Max(1, rps*2))
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	p := &OpenAIProvider{
		embedder:    embedder,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		logger:      logger,
		model:       cfg.Model,
		maxAttempts: attempts,
		baseDelay:   delay,
	}

	p.logger.WithFields(logrus.Fields{
		"model": cfg.Model,
		"rps":   rps,
	}).Info("Embedding provider initialized")
	return p
}

// Embed returns the vector for text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32

	err := RetryWithBackoff(ctx, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		vectors, err := p.embedder.EmbedDocuments(ctx, []string{text})
		if err != nil {
			return err
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return ErrEmptyEmbedding
		}
		vector = vectors[0]
		return nil
	}, p.maxAttempts, p.baseDelay)

	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"model":       p.model,
			"text_length": len(text),
			"error":       err.Error(),
		}).Error("Embedding request failed")
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"model":      p.model,
		"dimensions": len(vector),
	}).Debug("Embedding generated")
	return vector, nil
}

// RetryWithBackoff retries operation with exponential backoff starting at baseDelay.
// The error from the last attempt is returned when every attempt fails.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when the lengths differ or either vector is zero
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
