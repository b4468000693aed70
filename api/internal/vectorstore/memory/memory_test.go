package memory

import (
	"context"
	"testing"
)

func TestSearchRanking(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if err := s.Init(ctx, 2); err != nil {
		t.Fatalf("Init: %v", err)
	}
	texts := []string{"anemia", "dengue", "lipids"}
	vectors := [][]float64{{1, 0}, {0, 1}, {0.7, 0.7}}
	if err := s.Upsert(ctx, texts, vectors); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Search(ctx, []float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 || got[0].Text != "anemia" {
		t.Fatalf("results = %+v", got)
	}
	if got[0].Score <= got[1].Score {
		t.Fatal("results not ordered by score")
	}
}

func TestUpsertMismatch(t *testing.T) {
	s := NewStorage()
	_ = s.Init(context.Background(), 2)
	if err := s.Upsert(context.Background(), []string{"a"}, nil); err == nil {
		t.Fatal("want length mismatch error")
	}
}
