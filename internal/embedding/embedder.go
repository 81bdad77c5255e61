// Package embedding defines the text embedding capability used by the vector store.
package embedding

import "context"

// Embedder produces fixed-dimension vector embeddings for text.
//
// Document-time and query-time embeddings may apply different transformations
// (some models prefix queries); both sides of an index must use the same
// embedder and dimensionality. A dimension mismatch is a configuration error,
// not something callers recover from at runtime.
type Embedder interface {
	// EmbedDocuments embeds a batch of chunk texts in ingestion form.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query string in query form.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
