// Package models defines core data structures for documents, chunks, relations, and evidence.
package models

import "time"

// Document represents an ingested source document.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Chunk is a bounded span of document text, the unit of embedding and retrieval.
// Chunks are immutable once produced by the splitter; SequenceIndex follows
// source order within the document.
type Chunk struct {
	ID            string    `json:"id" db:"id"`
	DocumentID    string    `json:"document_id" db:"document_id"`
	Text          string    `json:"text" db:"content"`
	SequenceIndex int       `json:"sequence_index" db:"chunk_index"`
	Embedding     []float32 `json:"-" db:"-"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// DocumentInput is the input for ingesting a document over the API.
type DocumentInput struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}
