package mapper

import (
	"time"

	"github.com/pgvector/pgvector-go"

	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/model"
)

type ExemplarMapper struct{}

func NewExemplarMapper() *ExemplarMapper {
	return &ExemplarMapper{}
}

func (m *ExemplarMapper) ToEntity(e *model.Exemplar) *entity.Exemplar {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var embedding []float32
	if e.Embedding != nil {
		embedding = e.Embedding.Slice()
	}

	return &entity.Exemplar{
		Id:        e.Id,
		Question:  e.Question,
		Context:   e.Context,
		Embedding: embedding,
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ExemplarMapper) ToModel(e *entity.Exemplar) *model.Exemplar {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}

	return &model.Exemplar{
		Id:        e.Id,
		Question:  e.Question,
		Context:   e.Context,
		Embedding: embedding,
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ExemplarMapper) ToEntities(exemplars []*model.Exemplar) []*entity.Exemplar {
	entities := make([]*entity.Exemplar, len(exemplars))
	for i, e := range exemplars {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
