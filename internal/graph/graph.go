// Package graph provides knowledge graph persistence and keyword fact lookup.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/farol/acervo/internal/models"
)

// ErrGraphUnavailable signals that the knowledge graph file is missing or
// unreadable. It is a recoverable condition: retrieval proceeds on vector
// evidence alone.
var ErrGraphUnavailable = errors.New("knowledge graph unavailable")

// Graph is the full persisted collection of extracted relations, in
// extraction order. A Graph value is immutable once loaded; refreshing it
// means loading a new value and swapping the reference, never mutating a
// graph shared across in-flight queries.
type Graph struct {
	relations []models.Relation
}

// New creates a graph from relations, dropping any that are not Valid.
// Order is preserved.
func New(relations []models.Relation) *Graph {
	kept := make([]models.Relation, 0, len(relations))
	for _, r := range relations {
		if r.Valid() {
			kept = append(kept, r)
		}
	}
	return &Graph{relations: kept}
}

// Relations returns the relations in storage order. Callers must not modify
// the returned slice.
func (g *Graph) Relations() []models.Relation {
	return g.relations
}

// Len returns the number of relations.
func (g *Graph) Len() int {
	return len(g.relations)
}

// Load reads the knowledge graph file at path. The file is a UTF-8 JSON array
// of {source, target, label} records. A missing or unparsable file wraps
// ErrGraphUnavailable.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphUnavailable, err)
	}
	var relations []models.Relation
	if err := json.Unmarshal(data, &relations); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrGraphUnavailable, path, err)
	}
	return New(relations), nil
}

// Save writes relations to path as an indented JSON array, replacing any
// prior version. Extraction is a full-rebuild operation, so this is a
// complete rewrite, done atomically via temp file and rename.
func Save(path string, relations []models.Relation) error {
	data, err := json.MarshalIndent(relations, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create graph dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp graph file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close graph file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("swap graph file: %w", err)
	}
	return nil
}
