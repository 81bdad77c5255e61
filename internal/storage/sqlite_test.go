package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/farol/acervo/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage init error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetDocument(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	doc := &models.Document{ID: "doc1", Title: "title", Content: "body"}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument error: %v", err)
	}
	got, err := s.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetDocument error: %v", err)
	}
	if got.Title != "title" || got.Content != "body" {
		t.Errorf("unexpected document: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetDocument(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBatchCreateChunksAndGet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.CreateDocument(ctx, &models.Document{ID: "doc1", Content: "c"}); err != nil {
		t.Fatal(err)
	}
	chunks := make([]models.Chunk, 5)
	for i := range chunks {
		chunks[i] = models.Chunk{
			ID:            fmt.Sprintf("c%d", i),
			DocumentID:    "doc1",
			Text:          fmt.Sprintf("chunk %d text", i),
			SequenceIndex: i,
		}
	}
	if err := s.BatchCreateChunks(ctx, chunks); err != nil {
		t.Fatalf("BatchCreateChunks error: %v", err)
	}

	got, err := s.GetChunk(ctx, "c3")
	if err != nil {
		t.Fatalf("GetChunk error: %v", err)
	}
	if got.Text != "chunk 3 text" || got.SequenceIndex != 3 {
		t.Errorf("unexpected chunk: %+v", got)
	}

	byDoc, err := s.GetChunksByDocumentID(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetChunksByDocumentID error: %v", err)
	}
	if len(byDoc) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(byDoc))
	}
	for i, ch := range byDoc {
		if ch.SequenceIndex != i {
			t.Errorf("chunk %d out of order: sequence %d", i, ch.SequenceIndex)
		}
	}
}

func TestGetChunkNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetChunk(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCounts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	docs, _ := s.CountDocuments(ctx)
	chunks, _ := s.CountChunks(ctx)
	if docs != 0 || chunks != 0 {
		t.Errorf("expected empty counts, got %d docs %d chunks", docs, chunks)
	}

	_ = s.CreateDocument(ctx, &models.Document{ID: "d1", Content: "x"})
	_ = s.CreateDocument(ctx, &models.Document{ID: "d2", Content: "y"})
	_ = s.BatchCreateChunks(ctx, []models.Chunk{
		{ID: "c1", DocumentID: "d1", Text: "t", SequenceIndex: 0},
	})

	docs, err := s.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	chunks, err = s.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if docs != 2 || chunks != 1 {
		t.Errorf("got %d docs %d chunks", docs, chunks)
	}
}

func TestListDocuments(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.CreateDocument(ctx, &models.Document{ID: fmt.Sprintf("d%d", i), Content: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	docs, err := s.ListDocuments(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListDocuments error: %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("expected 3 documents, got %d", len(docs))
	}
	page, err := s.ListDocuments(ctx, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 {
		t.Errorf("expected 1 document at offset 2, got %d", len(page))
	}
}

func TestDuplicateDocumentIDRejected(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateDocument(ctx, &models.Document{ID: "dup", Content: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateDocument(ctx, &models.Document{ID: "dup", Content: "b"}); err == nil {
		t.Error("expected primary key violation for duplicate ID")
	}
}
