package chunker

import (
	"strings"
	"testing"
)

func TestNewSplitterValidation(t *testing.T) {
	if _, err := NewSplitter(0, 0); err == nil {
		t.Error("expected error for zero chunk size")
	}
	if _, err := NewSplitter(100, 100); err == nil {
		t.Error("expected error for overlap equal to chunk size")
	}
	if _, err := NewSplitter(100, 150); err == nil {
		t.Error("expected error for overlap greater than chunk size")
	}
	if _, err := NewSplitter(100, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
	if _, err := NewSplitter(100, 20); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s, _ := NewSplitter(100, 20)
	if chunks := s.Split("doc1", ""); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
	if chunks := s.Split("doc1", "   \n\t  "); len(chunks) != 0 {
		t.Errorf("expected no chunks for whitespace-only text, got %d", len(chunks))
	}
}

func TestSplitShortText(t *testing.T) {
	s, _ := NewSplitter(100, 20)
	chunks := s.Split("doc1", "a short document")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "a short document" {
		t.Errorf("unexpected chunk text: %q", chunks[0].Text)
	}
	if chunks[0].DocumentID != "doc1" {
		t.Errorf("unexpected document id: %q", chunks[0].DocumentID)
	}
	if chunks[0].SequenceIndex != 0 {
		t.Errorf("expected sequence index 0, got %d", chunks[0].SequenceIndex)
	}
}

func TestSplitChunkSizeBound(t *testing.T) {
	s, _ := NewSplitter(50, 10)
	text := strings.Repeat("word ", 100)
	chunks := s.Split("doc1", text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c.Text)); n > 50 {
			t.Errorf("chunk %d exceeds size bound: %d runes", i, n)
		}
	}
}

func TestSplitSequenceIndexMonotonic(t *testing.T) {
	s, _ := NewSplitter(40, 5)
	chunks := s.Split("doc1", strings.Repeat("alpha beta gamma delta. ", 20))
	for i, c := range chunks {
		if c.SequenceIndex != i {
			t.Errorf("chunk %d has sequence index %d", i, c.SequenceIndex)
		}
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	s, _ := NewSplitter(40, 0)
	text := "first paragraph here.\n\nsecond paragraph goes on for a while longer"
	chunks := s.Split("doc1", text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Errorf("expected first chunk to end at paragraph boundary, got %q", chunks[0].Text)
	}
}

func TestSplitPrefersSentenceOverWord(t *testing.T) {
	s, _ := NewSplitter(30, 0)
	text := "one sentence ends. another one keeps going and going"
	chunks := s.Split("doc1", text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, ". ") {
		t.Errorf("expected first chunk to end after sentence, got %q", chunks[0].Text)
	}
}

func TestSplitHardCutOnUnbreakableToken(t *testing.T) {
	s, _ := NewSplitter(20, 5)
	text := strings.Repeat("x", 100)
	chunks := s.Split("doc1", text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for unbreakable token, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		if n := len([]rune(c.Text)); n > 20 {
			t.Errorf("chunk exceeds size bound: %d", n)
		}
		total += len(c.Text)
	}
	if total < 100 {
		t.Errorf("chunks cover %d characters, want at least 100", total)
	}
}

func TestSplitOverlapCarriesText(t *testing.T) {
	s, _ := NewSplitter(30, 10)
	text := strings.Repeat("abcde ", 30)
	chunks := s.Split("doc1", text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The tail of each chunk reappears as the head of the next.
	for i := 1; i < len(chunks); i++ {
		head := []rune(chunks[i].Text)
		if len(head) > 10 {
			head = head[:10]
		}
		if !strings.HasSuffix(chunks[i-1].Text, string(head)) {
			t.Errorf("chunk %d head %q is not the tail of chunk %d (%q)", i, string(head), i-1, chunks[i-1].Text)
		}
	}
}

func TestSplitUnicodeBoundaries(t *testing.T) {
	s, _ := NewSplitter(10, 2)
	text := strings.Repeat("ação é boa ", 10)
	chunks := s.Split("docpt", text)
	for i, c := range chunks {
		if !strings.Contains(text, strings.TrimSpace(c.Text)) && strings.TrimSpace(c.Text) != "" {
			// Any mid-rune cut would produce invalid substrings.
			t.Errorf("chunk %d not a substring of input: %q", i, c.Text)
		}
	}
}

func TestSplitChunkIDsDistinct(t *testing.T) {
	s, _ := NewSplitter(25, 0)
	chunks := s.Split("doc1", strings.Repeat("some words here. ", 10))
	seen := make(map[string]bool)
	for _, c := range chunks {
		if seen[c.ID] {
			t.Errorf("duplicate chunk ID %q", c.ID)
		}
		seen[c.ID] = true
		if !strings.HasPrefix(c.ID, "doc1_") {
			t.Errorf("chunk ID %q does not carry document prefix", c.ID)
		}
	}
}
