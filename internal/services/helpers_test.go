package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingEmbedder returns a deterministic vector derived from the text
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.fail[text] {
		return nil, errors.New("provider unavailable")
	}
	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "event")) + 0.1,
		float32(strings.Count(lower, "team")) + 0.1,
		float32(strings.Count(lower, "certificate")) + 0.1,
	}, nil
}

func (e *countingEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeModel struct {
	answer   string
	err      error
	messages []llms.MessageContent
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.answer}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
