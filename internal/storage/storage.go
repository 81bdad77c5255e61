// Package storage defines the persistence interface for documents and chunks.
package storage

import (
	"context"

	"github.com/farol/acervo/internal/models"
)

// Storage persists documents and their chunks. Chunk text lives here; chunk
// vectors live in the vector index file keyed by chunk ID.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	BatchCreateChunks(ctx context.Context, chunks []models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]models.Chunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
