package memory

import (
	"testing"
)

func TestExemplarStoreRoundTrip(t *testing.T) {
	store := NewExemplarStore()

	// Saved without an embedding, invisible to search until embedded.
	pending := store.Save("total revenue last month", "SELECT sum(amount) ...", nil)
	a := store.Save("revenue by month", "SELECT date_trunc('month', ...) ...", []float32{1, 0, 0})
	b := store.Save("active customers", "SELECT count(*) FROM customers ...", []float32{0, 1, 0})

	hits := store.SearchSimilarWithScore([]float32{1, 0, 0}, 10, 0)
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Exemplar.Id != a.Id {
		t.Errorf("best hit = %d, want %d", hits[0].Exemplar.Id, a.Id)
	}
	if hits[0].Similarity <= hits[1].Similarity {
		t.Errorf("hits not ordered by similarity: %v, %v", hits[0].Similarity, hits[1].Similarity)
	}

	if !store.SetEmbedding(pending.Id, []float32{0.9, 0.1, 0}) {
		t.Fatal("SetEmbedding failed")
	}
	hits = store.SearchSimilarWithScore([]float32{1, 0, 0}, 10, 0)
	if len(hits) != 3 {
		t.Fatalf("hits after embedding = %d, want 3", len(hits))
	}

	store.Delete(b.Id)
	if _, found := store.Get(b.Id); found {
		t.Error("deleted exemplar still present")
	}
}

func TestExemplarStoreThresholdAndLimit(t *testing.T) {
	store := NewExemplarStore()
	store.Save("q1", "c1", []float32{1, 0})
	store.Save("q2", "c2", []float32{0.8, 0.6})
	store.Save("q3", "c3", []float32{0, 1})

	hits := store.SearchSimilarWithScore([]float32{1, 0}, 10, 0.5)
	if len(hits) != 2 {
		t.Fatalf("threshold hits = %d, want 2", len(hits))
	}

	hits = store.SearchSimilarWithScore([]float32{1, 0}, 1, 0)
	if len(hits) != 1 {
		t.Fatalf("limited hits = %d, want 1", len(hits))
	}
	if hits[0].Similarity != 1 {
		t.Errorf("best similarity = %v, want 1", hits[0].Similarity)
	}
}
