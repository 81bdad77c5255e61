// Package answer builds the generation prompt from retrieved evidence and
// dispatches it to the text-generation service.
package answer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/farol/acervo/internal/graph"
	"github.com/farol/acervo/internal/models"
)

// NotFoundMessage is the fixed answer when neither evidence source covers the
// question. The prompt preamble instructs the model to use the same sentence,
// and the composer returns it directly on zero evidence without calling the
// generation service at all.
const NotFoundMessage = "The available evidence does not cover this question."

// ErrorPrefix starts every answer produced from a generation-service failure.
// The chat surface always receives a string; service outages never propagate
// as faults.
const ErrorPrefix = "[ERROR] answer generation failed: "

const promptPreamble = `Answer the question strictly from the evidence below. When the structured facts and the document context address the same point, prefer the structured facts. Answer concisely and directly. If neither source covers the question, respond exactly: ` + NotFoundMessage

// Generator is the free-text generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Composer builds answer prompts and dispatches them with a timeout.
type Composer struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// NewComposer creates a composer. timeout bounds the generation call; zero
// means no composer-imposed deadline.
func NewComposer(gen Generator, timeout time.Duration, opts ...Option) *Composer {
	c := &Composer{gen: gen, timeout: timeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose builds the prompt for question over payload and returns the
// generation service's trimmed output. Zero evidence short-circuits to
// NotFoundMessage without a generation call. Any generation failure,
// including timeout, is converted to an ErrorPrefix string.
func (c *Composer) Compose(ctx context.Context, question string, payload *models.EvidencePayload) string {
	if !payload.HasEvidence() {
		return NotFoundMessage
	}
	prompt := BuildPrompt(question, payload)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	out, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("generation failed", zap.Error(err))
		}
		return ErrorPrefix + err.Error()
	}
	return strings.TrimSpace(out)
}

// BuildPrompt assembles the full generation prompt: preamble, structured
// facts section, document context section, question. Empty sections carry an
// explicit marker line so the model sees which source had nothing.
func BuildPrompt(question string, payload *models.EvidencePayload) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\n[STRUCTURED FACTS]\n")
	switch {
	case len(payload.GraphFacts) > 0:
		for _, fact := range payload.GraphFacts {
			b.WriteString(fact)
			b.WriteByte('\n')
		}
	case !payload.GraphAvailable:
		b.WriteString(graph.GraphUnavailableMessage)
		b.WriteByte('\n')
	default:
		b.WriteString(graph.NoFactsMessage)
		b.WriteByte('\n')
	}
	b.WriteString("\n[DOCUMENT CONTEXT]\n")
	if len(payload.VectorChunks) > 0 {
		for i, chunk := range payload.VectorChunks {
			if i > 0 {
				b.WriteString("\n---\n")
			}
			b.WriteString(chunk)
		}
		b.WriteByte('\n')
	} else {
		b.WriteString("no document context available\n")
	}
	b.WriteString("\n[QUESTION]\n")
	b.WriteString(question)
	return b.String()
}
