// Package retrieval combines graph facts and vector chunks into one evidence set.
package retrieval

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/farol/acervo/internal/graph"
	"github.com/farol/acervo/internal/models"
	"github.com/farol/acervo/internal/vector"
)

// VectorSource serves nearest-neighbor chunk lookups for a query.
type VectorSource interface {
	Query(ctx context.Context, text string, k int) ([]models.Chunk, error)
}

// Retriever fans a query out to the fact index and the vector store and
// packages both outputs into an EvidencePayload. The two sources touch
// disjoint state, so they run concurrently; neither output is re-ranked
// against the other. Fusion policy is to present both and let the
// generation step weigh them.
type Retriever struct {
	facts   *graph.FactIndex
	vectors VectorSource
	topK    int
	logger  *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a retriever. topK bounds the vector result count.
func NewRetriever(facts *graph.FactIndex, vectors VectorSource, topK int, opts ...Option) *Retriever {
	r := &Retriever{facts: facts, vectors: vectors, topK: topK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FactCount reports the number of facts the index serves.
func (r *Retriever) FactCount() int {
	return r.facts.Len()
}

// GraphAvailable reports whether a knowledge graph is loaded.
func (r *Retriever) GraphAvailable() bool {
	return r.facts.Available()
}

// Retrieve builds the evidence payload for query. A missing vector index
// (vector.ErrNoIndex) or an unavailable graph marks that portion of the
// payload empty rather than failing retrieval; the query still succeeds on
// the other source. Only a query-embedding failure is surfaced as an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*models.EvidencePayload, error) {
	payload := &models.EvidencePayload{
		GraphAvailable: r.facts.Available(),
	}

	var (
		wg        sync.WaitGroup
		vecChunks []models.Chunk
		vecErr    error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		payload.GraphFacts = r.facts.Search(query)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		vecChunks, vecErr = r.vectors.Query(ctx, query, r.topK)
	}()

	wg.Wait()

	switch {
	case vecErr == nil:
		payload.VectorAvailable = true
		payload.VectorChunks = make([]string, len(vecChunks))
		for i, ch := range vecChunks {
			payload.VectorChunks[i] = ch.Text
		}
	case errors.Is(vecErr, vector.ErrNoIndex):
		// No index built yet: explicit empty marker, not a failure.
	case errors.Is(vecErr, vector.ErrEmbedding):
		return nil, vecErr
	default:
		if r.logger != nil {
			r.logger.Warn("vector retrieval failed, continuing with graph evidence", zap.Error(vecErr))
		}
	}

	if r.logger != nil {
		r.logger.Debug("evidence retrieved",
			zap.Int("graph_facts", len(payload.GraphFacts)),
			zap.Int("vector_chunks", len(payload.VectorChunks)),
			zap.Bool("graph_available", payload.GraphAvailable),
			zap.Bool("vector_available", payload.VectorAvailable),
		)
	}
	return payload, nil
}
