package contract

import (
	"context"

	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/repository/specification"
)

type AgentMessageRepository interface {
	Create(ctx context.Context, message *entity.AgentMessage) error
	CreateBulk(ctx context.Context, messages []*entity.AgentMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AgentMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
