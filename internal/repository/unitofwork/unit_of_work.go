package unitofwork

import (
	"context"

	"ai-sqlpilot-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ExemplarRepository() contract.ExemplarRepository
	AgentSessionRepository() contract.AgentSessionRepository
	AgentMessageRepository() contract.AgentMessageRepository
}
