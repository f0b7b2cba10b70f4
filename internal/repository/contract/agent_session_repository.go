package contract

import (
	"context"

	"github.com/google/uuid"

	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/repository/specification"
)

type AgentSessionRepository interface {
	Create(ctx context.Context, session *entity.AgentSession) error
	Update(ctx context.Context, session *entity.AgentSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AgentSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AgentSession, error)
}
