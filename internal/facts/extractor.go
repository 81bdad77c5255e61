// Package facts extracts structured relations from document chunks.
package facts

import (
	"context"

	"go.uber.org/zap"

	"github.com/farol/acervo/internal/models"
	"github.com/farol/acervo/pkg/utils"
)

// RelationFunc converts one chunk of text into zero or more relations via an
// opaque structured-generation capability. It may fail per chunk; the
// extractor isolates such failures.
type RelationFunc func(ctx context.Context, text string) ([]models.Relation, error)

// ItemError records a single chunk whose extraction failed.
type ItemError struct {
	SequenceIndex int
	Err           error
}

// Report is the outcome of one extraction run. Relations are accumulated in
// chunk order; Failed lists the chunks that were skipped. A failed chunk
// never aborts the rest of the batch.
type Report struct {
	Relations []models.Relation
	Processed int
	Dropped   int // relations discarded for empty source/target/label
	Failed    []ItemError
}

// Extractor runs relation extraction over a chunk batch.
type Extractor struct {
	fn     RelationFunc
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for per-chunk progress and failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor using fn for per-chunk relation extraction.
func NewExtractor(fn RelationFunc, opts ...Option) *Extractor {
	e := &Extractor{fn: fn}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract invokes the relation function for each chunk independently and
// accumulates the results into a report. Invalid relations are dropped;
// duplicate relations across overlapping chunks are kept (the fact index
// tolerates duplicates). No cross-chunk conflict resolution is performed.
func (e *Extractor) Extract(ctx context.Context, chunks []models.Chunk) *Report {
	report := &Report{}
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, ItemError{SequenceIndex: chunk.SequenceIndex, Err: ctx.Err()})
			continue
		}
		relations, err := e.fn(ctx, chunk.Text)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("chunk extraction failed",
					zap.Int("sequence_index", chunk.SequenceIndex),
					zap.String("text", utils.Truncate(chunk.Text, 80)),
					zap.Error(err),
				)
			}
			report.Failed = append(report.Failed, ItemError{SequenceIndex: chunk.SequenceIndex, Err: err})
			continue
		}
		report.Processed++
		for _, rel := range relations {
			if !rel.Valid() {
				report.Dropped++
				continue
			}
			report.Relations = append(report.Relations, rel)
		}
		if e.logger != nil {
			e.logger.Debug("chunk extracted",
				zap.Int("sequence_index", chunk.SequenceIndex),
				zap.Int("relations", len(relations)),
			)
		}
	}
	return report
}
