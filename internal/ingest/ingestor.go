// Package ingest orchestrates the online ingestion path: extract, chunk, embed, index.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farol/acervo/internal/chunker"
	"github.com/farol/acervo/internal/extract"
	"github.com/farol/acervo/internal/models"
	"github.com/farol/acervo/internal/vector"
)

// Ingestor feeds documents into the vector index store.
type Ingestor struct {
	extractor *extract.Extractor
	splitter  *chunker.Splitter
	store     *vector.Store
	logger    *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingestor) { in.logger = l }
}

// NewIngestor creates an ingestor. extractor may be nil, in which case files
// are read as plain text.
func NewIngestor(extractor *extract.Extractor, splitter *chunker.Splitter, store *vector.Store, opts ...Option) *Ingestor {
	in := &Ingestor{extractor: extractor, splitter: splitter, store: store}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IngestDocument chunks the input content and ingests it into the vector
// store. A fresh document ID is generated when the input carries none;
// ingesting the same content again stores a second copy (the store does not
// deduplicate).
func (in *Ingestor) IngestDocument(ctx context.Context, input *models.DocumentInput) (string, error) {
	if strings.TrimSpace(input.Content) == "" {
		return "", fmt.Errorf("document content is empty")
	}
	id := input.ID
	if id == "" {
		id = uuid.New().String()
	}
	doc := &models.Document{ID: id, Title: input.Title, Content: input.Content}
	chunks := in.splitter.Split(id, input.Content)
	if len(chunks) == 0 {
		return "", fmt.Errorf("document produced no chunks")
	}
	if err := in.store.Ingest(ctx, doc, chunks); err != nil {
		return "", err
	}
	if in.logger != nil {
		in.logger.Info("document ingested",
			zap.String("doc_id", id),
			zap.String("title", input.Title),
			zap.Int("chunks", len(chunks)),
		)
	}
	return id, nil
}

// IngestFile extracts text from the file at path and ingests it. When
// allowedExts is non-empty the file's extension must be listed
// (case-insensitive).
func (in *Ingestor) IngestFile(ctx context.Context, path string, allowedExts []string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return "", fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %s", absPath)
	}
	text, err := in.extractText(absPath)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}
	return in.IngestDocument(ctx, &models.DocumentInput{
		Title:   filepath.Base(absPath),
		Content: text,
	})
}

// IngestDirectory walks dir and ingests every file whose extension is in
// allowedExts. Returns the number of files ingested; per-file failures are
// logged and skipped.
func (in *Ingestor) IngestDirectory(ctx context.Context, dir string, allowedExts []string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !extensionAllowed(strings.ToLower(filepath.Ext(path)), allowedExts) {
			return nil
		}
		if _, err := in.IngestFile(ctx, path, nil); err != nil {
			if in.logger != nil {
				in.logger.Warn("file ingestion failed", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		count++
		return nil
	})
	return count, err
}

func (in *Ingestor) extractText(path string) (string, error) {
	if in.extractor != nil {
		return in.extractor.Extract(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}
