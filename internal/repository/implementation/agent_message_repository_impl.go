package implementation

import (
	"context"

	"gorm.io/gorm"

	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/mapper"
	"ai-sqlpilot-be/internal/model"
	"ai-sqlpilot-be/internal/repository/contract"
	"ai-sqlpilot-be/internal/repository/specification"
)

type AgentMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AgentMessageMapper
}

func NewAgentMessageRepository(db *gorm.DB) contract.AgentMessageRepository {
	return &AgentMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewAgentMessageMapper(),
	}
}

func (r *AgentMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AgentMessageRepositoryImpl) Create(ctx context.Context, message *entity.AgentMessage) error {
	m := r.mapper.ToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ToEntity(m)
	return nil
}

func (r *AgentMessageRepositoryImpl) CreateBulk(ctx context.Context, messages []*entity.AgentMessage) error {
	if len(messages) == 0 {
		return nil
	}
	models := make([]*model.AgentMessage, len(messages))
	for i, e := range messages {
		models[i] = r.mapper.ToModel(e)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*messages[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *AgentMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AgentMessage, error) {
	var models []*model.AgentMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *AgentMessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.AgentMessage{}).Count(&count).Error
	return count, err
}
