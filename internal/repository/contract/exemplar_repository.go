package contract

import (
	"context"

	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/repository/specification"
)

// ScoredExemplar pairs an exemplar with its cosine similarity to a query
// vector.
type ScoredExemplar struct {
	Exemplar   *entity.Exemplar
	Similarity float64
}

type ExemplarRepository interface {
	Create(ctx context.Context, exemplar *entity.Exemplar) error
	Update(ctx context.Context, exemplar *entity.Exemplar) error
	Delete(ctx context.Context, id int64) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Exemplar, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Exemplar, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredExemplar, error)
}
