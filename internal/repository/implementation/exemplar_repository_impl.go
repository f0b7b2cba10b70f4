package implementation

import (
	"context"
	"errors"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/mapper"
	"ai-sqlpilot-be/internal/model"
	"ai-sqlpilot-be/internal/repository/contract"
	"ai-sqlpilot-be/internal/repository/specification"
)

type ExemplarRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ExemplarMapper
}

func NewExemplarRepository(db *gorm.DB) contract.ExemplarRepository {
	return &ExemplarRepositoryImpl{
		db:     db,
		mapper: mapper.NewExemplarMapper(),
	}
}

func (r *ExemplarRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ExemplarRepositoryImpl) Create(ctx context.Context, exemplar *entity.Exemplar) error {
	m := r.mapper.ToModel(exemplar)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*exemplar = *r.mapper.ToEntity(m)
	return nil
}

func (r *ExemplarRepositoryImpl) Update(ctx context.Context, exemplar *entity.Exemplar) error {
	m := r.mapper.ToModel(exemplar)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*exemplar = *r.mapper.ToEntity(m)
	return nil
}

func (r *ExemplarRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Exemplar{}, id).Error
}

func (r *ExemplarRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Exemplar, error) {
	var m model.Exemplar
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ExemplarRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Exemplar, error) {
	var models []*model.Exemplar
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ExemplarRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Exemplar{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore returns exemplars with similarity scores, filtered
// by threshold. Cosine distance in pgvector is 1 - cosine_similarity, so we
// compute 1 - (embedding <=> query_vector).
func (r *ExemplarRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*contract.ScoredExemplar, error) {
	if limit <= 0 {
		limit = 8
	}

	type result struct {
		model.Exemplar
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("exemplars").
		Select("exemplars.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("embedding IS NOT NULL").
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredExemplar, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredExemplar{
			Exemplar:   r.mapper.ToEntity(&res.Exemplar),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
