package memory

import (
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/repository/contract"
)

// ExemplarStore keeps exemplars in process memory with a brute-force
// similarity scan. It backs tests and can stand in for the Postgres store
// when no database is available.
type ExemplarStore struct {
	cache  *cache.Cache
	nextID atomic.Int64
}

func NewExemplarStore() *ExemplarStore {
	return &ExemplarStore{
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (s *ExemplarStore) Save(question, context string, embedding []float32) *entity.Exemplar {
	e := &entity.Exemplar{
		Id:        s.nextID.Add(1),
		Question:  question,
		Context:   context,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}
	s.cache.Set(strconv.FormatInt(e.Id, 10), e, cache.NoExpiration)
	return e
}

func (s *ExemplarStore) Get(id int64) (*entity.Exemplar, bool) {
	v, found := s.cache.Get(strconv.FormatInt(id, 10))
	if !found {
		return nil, false
	}
	return v.(*entity.Exemplar), true
}

func (s *ExemplarStore) Delete(id int64) {
	s.cache.Delete(strconv.FormatInt(id, 10))
}

// SetEmbedding attaches a vector to a stored exemplar, making it searchable.
func (s *ExemplarStore) SetEmbedding(id int64, embedding []float32) bool {
	e, found := s.Get(id)
	if !found {
		return false
	}
	e.Embedding = embedding
	s.cache.Set(strconv.FormatInt(id, 10), e, cache.NoExpiration)
	return true
}

// SearchSimilarWithScore scans every embedded exemplar and returns the top
// matches by cosine similarity. Vectors are expected unit length, so the dot
// product is the similarity. Exemplars without an embedding are skipped.
func (s *ExemplarStore) SearchSimilarWithScore(query []float32, limit int, threshold float64) []*contract.ScoredExemplar {
	var scored []*contract.ScoredExemplar
	for _, item := range s.cache.Items() {
		e := item.Object.(*entity.Exemplar)
		if len(e.Embedding) == 0 || len(e.Embedding) != len(query) {
			continue
		}
		sim := dot(query, e.Embedding)
		if sim < threshold {
			continue
		}
		scored = append(scored, &contract.ScoredExemplar{Exemplar: e, Similarity: sim})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
