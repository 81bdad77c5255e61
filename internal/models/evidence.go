package models

// EvidencePayload is the per-query union of the two retrieval sources.
// It is constructed fresh for each question and never persisted.
//
// GraphAvailable and VectorAvailable distinguish "source had nothing to say"
// from "source is not built yet / failed to load"; both states still allow
// answering from the other source.
type EvidencePayload struct {
	GraphFacts      []string `json:"graph_facts"`
	GraphAvailable  bool     `json:"graph_available"`
	VectorChunks    []string `json:"vector_chunks"`
	VectorAvailable bool     `json:"vector_available"`
}

// HasEvidence reports whether at least one source produced evidence.
// When false, the answer composer short-circuits without calling the
// generation service.
func (p *EvidencePayload) HasEvidence() bool {
	return len(p.GraphFacts) > 0 || len(p.VectorChunks) > 0
}
