// Package memory is a brute-force cosine-similarity store, mainly for tests
// and small local corpora.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"lab-interpreter/api/internal/vectorstore"
)

type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	texts     []string
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.texts = nil
	return nil
}

func (s *Storage) Upsert(_ context.Context, texts []string, vectors [][]float64) error {
	if len(texts) != len(vectors) {
		return errors.New("texts and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if s.dimension > 0 && len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.texts = append(s.texts, texts...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]vectorstore.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	results := make([]vectorstore.Passage, 0, len(s.vectors))
	for i := range s.vectors {
		results = append(results, vectorstore.Passage{
			Text:  s.texts[i],
			Score: cosine(s.vectors[i], vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
