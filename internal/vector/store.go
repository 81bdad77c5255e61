package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/farol/acervo/internal/embedding"
	"github.com/farol/acervo/internal/models"
	"github.com/farol/acervo/internal/storage"
)

// ErrNoIndex signals that no vector index has been built at the configured
// path yet. It is a recoverable condition: retrieval proceeds on graph
// evidence alone.
var ErrNoIndex = errors.New("no vector index built")

// ErrEmbedding wraps failures of the embedding capability during ingestion
// or query embedding.
var ErrEmbedding = errors.New("embedding failed")

// Store persists and serves nearest-neighbor lookups over embedded chunks.
// Chunk text lives in the chunk storage; vectors live in the index file at
// path. Ingestion appends (create-or-load then atomic swap); queries load
// the index lazily and serve from memory.
//
// Ingestion must not run concurrently with another ingestion on the same
// path (single-writer discipline). Re-ingesting the same chunks appends
// duplicates; the store does not deduplicate.
type Store struct {
	path     string
	embedder embedding.Embedder
	chunks   storage.Storage
	logger   *zap.Logger

	mu    sync.Mutex
	index *Index // nil until loaded or first ingest
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a vector store over the index file at path, with chunk
// text persisted in chunks.
func NewStore(path string, embedder embedding.Embedder, chunks storage.Storage, opts ...StoreOption) *Store {
	s := &Store{path: path, embedder: embedder, chunks: chunks}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest embeds chunks in one batch, loads or creates the on-disk index,
// appends the new (chunk, vector) pairs, and persists atomically. The
// document and chunk rows are stored first so a vector entry never points at
// a missing chunk.
func (s *Store) Ingest(ctx context.Context, doc *models.Document, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return errors.New("no chunks to ingest")
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(embeddings), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := s.chunks.CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	if err := s.chunks.BatchCreateChunks(ctx, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.loadOrCreateLocked()
	if err != nil {
		return err
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := idx.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("append vectors: %w", err)
	}
	if err := idx.Save(s.path); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("chunks ingested",
			zap.String("document_id", doc.ID),
			zap.Int("chunks", len(chunks)),
			zap.Int("index_size", idx.Size()),
		)
	}
	return nil
}

// Query embeds text in query form and returns the k nearest chunks, best
// match first. Returns ErrNoIndex when no index has been built yet; a
// non-empty index with k >= 1 always yields at least one match.
func (s *Store) Query(ctx context.Context, text string, k int) ([]models.Chunk, error) {
	s.mu.Lock()
	idx, err := s.loadLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if idx.Size() == 0 {
		return nil, ErrNoIndex
	}

	query, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	hits, err := idx.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	out := make([]models.Chunk, 0, len(hits))
	for _, hit := range hits {
		ch, err := s.chunks.GetChunk(ctx, hit.ID)
		if err != nil {
			// Index entry without a chunk row means a previous ingest was
			// interrupted between store writes; skip rather than fail the query.
			if s.logger != nil {
				s.logger.Warn("vector hit without chunk row", zap.String("chunk_id", hit.ID), zap.Error(err))
			}
			continue
		}
		out = append(out, *ch)
	}
	return out, nil
}

// Size returns the number of vectors currently indexed, or 0 when no index
// has been built.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.loadLocked()
	if err != nil {
		return 0
	}
	return idx.Size()
}

// loadLocked returns the in-memory index, loading it from disk on first use.
// ErrNoIndex when the file does not exist. Caller holds s.mu.
func (s *Store) loadLocked() (*Index, error) {
	if s.index != nil {
		return s.index, nil
	}
	idx, err := NewIndex(s.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := idx.Load(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoIndex
		}
		return nil, err
	}
	s.index = idx
	return idx, nil
}

// loadOrCreateLocked is loadLocked but treats a missing file as a fresh,
// empty index. Caller holds s.mu.
func (s *Store) loadOrCreateLocked() (*Index, error) {
	idx, err := s.loadLocked()
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, ErrNoIndex) {
		return nil, err
	}
	idx, err = NewIndex(s.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	s.index = idx
	return idx, nil
}
