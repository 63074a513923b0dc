package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type fakeEmbedder struct {
	failures int
	calls    int
	vector   []float32
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("503 service unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func testConfig() Config {
	return Config{Model: "test", RequestsPerSecond: 1000, MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestProviderRetriesTransientFailure(t *testing.T) {
	fake := &fakeEmbedder{failures: 2, vector: []float32{1, 2, 3}}
	p := NewProvider(fake, testConfig())

	v, err := p.Embed(context.Background(), "events")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(v) != 3 || fake.calls != 3 {
		t.Errorf("Expected success on third call, got %v after %d calls", v, fake.calls)
	}
}

func TestProviderGivesUp(t *testing.T) {
	fake := &fakeEmbedder{failures: 10, vector: []float32{1}}
	p := NewProvider(fake, testConfig())

	if _, err := p.Embed(context.Background(), "events"); err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if fake.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", fake.calls)
	}
}

func TestProviderEmptyVector(t *testing.T) {
	p := NewProvider(&fakeEmbedder{}, testConfig())
	if _, err := p.Embed(context.Background(), "x"); !errors.Is(err, ErrEmptyEmbedding) {
		t.Errorf("Expected ErrEmptyEmbedding, got %v", err)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("Invalid attempts", func(t *testing.T) {
		if err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond); !errors.Is(err, ErrInvalidMaxAttempts) {
			t.Errorf("Expected ErrInvalidMaxAttempts, got %v", err)
		}
	})

	t.Run("Context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := RetryWithBackoff(ctx, func() error { calls++; return errors.New("fail") }, 5, time.Millisecond)
		if !errors.Is(err, context.Canceled) || calls != 0 {
			t.Errorf("Expected immediate cancellation, got %v after %d calls", err, calls)
		}
	})

	t.Run("Eventual success", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("fail")
			}
			return nil
		}, 5, time.Millisecond)
		if err != nil || calls != 3 {
			t.Errorf("Expected success after 3 calls, got %v after %d", err, calls)
		}
	})
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "Identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "Orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "Opposite", a: []float32{1, 1}, b: []float32{-1, -1}, want: -1},
		{name: "Length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
		{name: "Zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(_ context.Context, text string) ([]float32, error) {
		return []float32{float32(len(text))}, nil
	})
	v, _ := p.Embed(context.Background(), "abcd")
	if v[0] != 4 {
		t.Errorf("Expected 4, got %v", v[0])
	}
}
