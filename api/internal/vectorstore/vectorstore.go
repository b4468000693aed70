// Package vectorstore defines the similarity-search surface the interpreter
// consumes and the full store surface the ingestion tool fills.
package vectorstore

import "context"

// Passage is one stored text with its similarity score for a query.
type Passage struct {
	Text  string
	Score float64
}

// Searcher answers nearest-neighbor queries over stored passages.
type Searcher interface {
	Search(ctx context.Context, vector []float64, topK int) ([]Passage, error)
}

// Store additionally supports populating the index.
type Store interface {
	Searcher
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, texts []string, vectors [][]float64) error
}
