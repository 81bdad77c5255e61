// Package chunker splits document text into overlapping character-window chunks.
package chunker

import (
	"fmt"
	"strings"

	"github.com/farol/acervo/internal/models"
	"github.com/google/uuid"
)

// separators is the break-point preference order: paragraph, line, sentence,
// word. A hard character cut is the fallback when none occurs in the window.
// This ordering is the chunking policy; changing it changes chunk identity
// across re-ingestion.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter splits text into overlapping chunks of at most chunkSize characters.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter. chunkSize must be positive and strictly
// greater than overlap, otherwise splitting could not make forward progress.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must satisfy 0 <= overlap < chunk size, got overlap=%d size=%d", overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split splits text into chunks attributed to docID. Whitespace-only spans
// are skipped; SequenceIndex increases monotonically over emitted chunks.
// Split is a pure function over its inputs apart from chunk ID generation.
func (s *Splitter) Split(docID, text string) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]models.Chunk, 0)
	seq := 0
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.cutPoint(runes, start, end)
		}
		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, models.Chunk{
				ID:            fmt.Sprintf("%s_%s", docID, uuid.New().String()[:8]),
				DocumentID:    docID,
				Text:          piece,
				SequenceIndex: seq,
			})
			seq++
		}
		if end >= len(runes) {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// cutPoint returns the end index for a chunk starting at start with window
// limit end. It prefers the last occurrence of the highest-priority separator
// inside the window; the cut lands just after the separator so boundaries stay
// with the preceding chunk. Falls back to a hard cut at end.
func (s *Splitter) cutPoint(runes []rune, start, end int) int {
	window := string(runes[start:end])
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx <= 0 {
			continue
		}
		cut := start + len([]rune(window[:idx])) + len([]rune(sep))
		if cut > start {
			return cut
		}
	}
	return end
}
