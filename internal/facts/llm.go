package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/farol/acervo/internal/models"
)

// JSONGenerator is the structured-generation capability: given a system
// instruction and user text, it returns a JSON object string or an error.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system, user string) (string, error)
}

// extractionSystemPrompt instructs the model to emit a knowledge graph
// fragment for one chunk of text.
const extractionSystemPrompt = `You are a knowledge extraction system. Read the provided text and convert it into a structured knowledge graph in JSON, identifying factual relations between entities.

Follow these rules strictly:
1. Identify the main entities in the text (people, equipment, processes, organizations).
2. Extract only direct, factual relations between those entities.
3. Format each relation as a triple: source entity, relation label, target entity.
4. Respond with a JSON object of the form {"relations": [{"source": "...", "label": "...", "target": "..."}]}. If no relations are found, return an empty relations list.`

// graphFragment is the schema the structured-generation output must satisfy.
type graphFragment struct {
	Relations []models.Relation `json:"relations"`
}

// NewRelationFunc builds a RelationFunc on top of a JSON generator. The
// generator's output passes through a schema-validated parse; unparsable
// output is an extraction error for that chunk, while individual malformed
// relations are filtered later by the extractor.
func NewRelationFunc(gen JSONGenerator) RelationFunc {
	return func(ctx context.Context, text string) ([]models.Relation, error) {
		raw, err := gen.GenerateJSON(ctx, extractionSystemPrompt, "Text for analysis:\n\n"+text)
		if err != nil {
			return nil, err
		}
		return decodeFragment(raw)
	}
}

// decodeFragment coerces generator output into the fixed relation shape.
// This is the only place free-form model text crosses into typed data.
func decodeFragment(raw string) ([]models.Relation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty structured output")
	}
	var fragment graphFragment
	if err := json.Unmarshal([]byte(raw), &fragment); err != nil {
		return nil, fmt.Errorf("parse structured output: %w", err)
	}
	return fragment.Relations, nil
}
