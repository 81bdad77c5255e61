package graph

import "strings"

// Messages for the two empty-result states. They stay distinct so callers
// and user-facing output can tell "nothing matched" from "no graph built".
const (
	NoFactsMessage          = "no matching facts in the knowledge graph"
	GraphUnavailableMessage = "knowledge graph unavailable"
)

// FactIndex serves keyword-driven relation lookup over an immutable graph.
// Construct it once at startup; to pick up a re-extracted graph, load a new
// Graph and build a new FactIndex.
type FactIndex struct {
	graph *Graph // nil when the graph failed to load
}

// NewFactIndex creates a fact index. graph may be nil, in which case the
// index reports unavailable and every search returns no matches.
func NewFactIndex(graph *Graph) *FactIndex {
	return &FactIndex{graph: graph}
}

// Available reports whether a graph is loaded.
func (f *FactIndex) Available() bool {
	return f.graph != nil
}

// Len returns the number of indexed relations.
func (f *FactIndex) Len() int {
	if f.graph == nil {
		return 0
	}
	return f.graph.Len()
}

// Search tokenizes query by lowercasing and splitting on whitespace, and
// returns the formatted fact line for every relation whose lowercased source
// or target contains any token as a substring. Results keep graph-storage
// order (first-extracted first); this is a match/no-match filter, not a
// scored retrieval. Both empty states return nil here; Available separates
// them, and NoFactsMessage / GraphUnavailableMessage are their caller-facing
// rendering when the result reaches a prompt or response.
func (f *FactIndex) Search(query string) []string {
	if f.graph == nil {
		return nil
	}
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil
	}
	var facts []string
	for _, rel := range f.graph.Relations() {
		source := strings.ToLower(rel.Source)
		target := strings.ToLower(rel.Target)
		for _, tok := range tokens {
			if strings.Contains(source, tok) || strings.Contains(target, tok) {
				facts = append(facts, rel.Sentence())
				break
			}
		}
	}
	return facts
}
