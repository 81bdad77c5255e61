package models

import "strings"

// Relation is a directed, labeled fact edge between two named entities,
// extracted from document text. The persisted knowledge graph is an ordered,
// append-only sequence of relations.
type Relation struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Valid reports whether all three fields are non-empty after trimming.
// Relations that fail this check are dropped during extraction and never
// surface in fact search results.
func (r Relation) Valid() bool {
	return strings.TrimSpace(r.Source) != "" &&
		strings.TrimSpace(r.Target) != "" &&
		strings.TrimSpace(r.Label) != ""
}

// Sentence formats the relation as a fact line: "<source> <label> <target>."
func (r Relation) Sentence() string {
	return r.Source + " " + r.Label + " " + r.Target + "."
}
