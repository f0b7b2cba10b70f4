package implementation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/mapper"
	"ai-sqlpilot-be/internal/model"
	"ai-sqlpilot-be/internal/repository/contract"
	"ai-sqlpilot-be/internal/repository/specification"
)

type AgentSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AgentSessionMapper
}

func NewAgentSessionRepository(db *gorm.DB) contract.AgentSessionRepository {
	return &AgentSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewAgentSessionMapper(),
	}
}

func (r *AgentSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AgentSessionRepositoryImpl) Create(ctx context.Context, session *entity.AgentSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *AgentSessionRepositoryImpl) Update(ctx context.Context, session *entity.AgentSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *AgentSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.AgentSession{}, id).Error
}

func (r *AgentSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AgentSession, error) {
	var m model.AgentSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AgentSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AgentSession, error) {
	var models []*model.AgentSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.AgentSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
