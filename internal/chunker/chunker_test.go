package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func sampleText() string {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("GDG on campus hosts a study jam every month where members learn cloud and Android together. ")
		if i%7 == 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func TestChunkDeterministic(t *testing.T) {
	text := sampleText()

	first := Chunk(text, 300, 60)
	second := Chunk(text, 300, 60)

	if len(first) == 0 {
		t.Fatal("Expected chunks for sample text")
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical output for identical input")
	}
}

func TestChunkMinimumLength(t *testing.T) {
	for _, c := range Chunk(sampleText(), 120, 30) {
		if n := utf8.RuneCountInString(c); n < DefaultMinLength {
			t.Errorf("Chunk shorter than minimum (%d < %d): %q", n, DefaultMinLength, c)
		}
	}
}

func TestSplitOffsetsMonotonic(t *testing.T) {
	spans := Split(sampleText(), Options{TargetSize: 200, Overlap: 50, MinLength: 10})
	if len(spans) < 2 {
		t.Fatalf("Expected multiple spans, got %d", len(spans))
	}

	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].Start {
			t.Errorf("Span %d starts at %d before previous start %d", i, spans[i].Start, spans[i-1].Start)
		}
	}
}

func TestSplitOverlapsPreviousSegment(t *testing.T) {
	spans := Split(sampleText(), Options{TargetSize: 200, Overlap: 50, MinLength: 10})
	for i := 1; i < len(spans); i++ {
		if spans[i].Start >= spans[i-1].End {
			t.Errorf("Span %d does not overlap previous span (start %d, previous end %d)", i, spans[i].Start, spans[i-1].End)
		}
	}
}

func TestSplitBreaksAtSentenceEnd(t *testing.T) {
	text := strings.Repeat("a", 70) + ". " + strings.Repeat("b", 60)
	spans := Split(text, Options{TargetSize: 100, Overlap: 0, MinLength: 1})
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}
	if !strings.HasSuffix(spans[0].Text, ".") {
		t.Errorf("Expected first span to end at the sentence break, got %q", spans[0].Text)
	}
	if spans[0].End != 71 {
		t.Errorf("Expected first span to end at offset 71, got %d", spans[0].End)
	}
}

func TestSplitIgnoresBreakInLeadingHalf(t *testing.T) {
	text := strings.Repeat("a", 10) + "." + strings.Repeat("b", 150)
	spans := Split(text, Options{TargetSize: 100, Overlap: 0, MinLength: 1})
	if spans[0].End != 100 {
		t.Errorf("Expected hard cut at target size, got end %d", spans[0].End)
	}
}

func TestSplitTerminatesOnDegenerateOverlap(t *testing.T) {
	text := strings.Repeat("word ", 100)

	tests := []struct {
		name    string
		target  int
		overlap int
	}{
		{name: "overlap equals target", target: 50, overlap: 50},
		{name: "overlap exceeds target", target: 50, overlap: 500},
		{name: "tiny target", target: 1, overlap: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := Split(text, Options{TargetSize: tt.target, Overlap: tt.overlap, MinLength: 1})
			if len(spans) == 0 {
				t.Error("Expected at least one span")
			}
			if len(spans) > len(text) {
				t.Errorf("Too many spans: %d", len(spans))
			}
		})
	}
}

func TestChunkDropsNoise(t *testing.T) {
	if chunks := Chunk("too short", 1000, 200); len(chunks) != 0 {
		t.Errorf("Expected short text to be dropped, got %v", chunks)
	}
	if chunks := Chunk("", 1000, 200); chunks != nil {
		t.Errorf("Expected nil for empty text, got %v", chunks)
	}
}

func TestSplitMultibyteSafe(t *testing.T) {
	text := strings.Repeat("नमस्ते दुनिया। ", 40)
	for _, s := range Split(text, Options{TargetSize: 60, Overlap: 10, MinLength: 1}) {
		if !utf8.ValidString(s.Text) {
			t.Fatalf("Span is not valid UTF-8: %q", s.Text)
		}
	}
}
