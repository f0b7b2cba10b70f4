package service

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ai-sqlpilot-be/internal/constant"
	"ai-sqlpilot-be/internal/dto"
	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/pkg/logger"
	"ai-sqlpilot-be/internal/repository/memory"
	"ai-sqlpilot-be/internal/repository/specification"
	"ai-sqlpilot-be/internal/repository/unitofwork"
	"ai-sqlpilot-be/pkg/agent"
)

type IAgentService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
	Resume(ctx context.Context, req *dto.ResumeRequest) (*dto.AskResponse, error)
	GetMessages(ctx context.Context, sessionId uuid.UUID) ([]*dto.AgentMessageResponse, error)
}

type agentService struct {
	uowFactory unitofwork.RepositoryFactory
	pipeline   *agent.Agent
	suspended  *memory.SuspendedRunRepository
	log        logger.ILogger
}

func NewAgentService(
	uowFactory unitofwork.RepositoryFactory,
	pipeline *agent.Agent,
	suspended *memory.SuspendedRunRepository,
	log logger.ILogger,
) IAgentService {
	return &agentService{
		uowFactory: uowFactory,
		pipeline:   pipeline,
		suspended:  suspended,
		log:        log,
	}
}

func (s *agentService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	sessionId, err := s.ensureSession(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome, err := s.pipeline.Ask(ctx, sessionId, req.Question, agent.RunOptions{
		SuspendBefore: agent.NodeName(req.SuspendBefore),
	})
	if err != nil {
		s.log.Error("agent", "pipeline run failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		s.finishRun(ctx, sessionId, outcome.State.Messages, 0, constant.SessionStatusFailed)
		return nil, err
	}

	return s.settle(ctx, sessionId, outcome, 0)
}

func (s *agentService) Resume(ctx context.Context, req *dto.ResumeRequest) (*dto.AskResponse, error) {
	run, found := s.suspended.Get(req.SessionId.String())
	if !found {
		return nil, fiber.NewError(fiber.StatusNotFound, "no suspended run for this session")
	}

	outcome, err := s.pipeline.Resume(ctx, run.State, run.Node, req.Information, agent.RunOptions{})
	if err != nil {
		s.log.Error("agent", "pipeline resume failed", map[string]interface{}{
			"session_id": req.SessionId.String(),
			"error":      err.Error(),
		})
		s.finishRun(ctx, req.SessionId, outcome.State.Messages, run.Persisted, constant.SessionStatusFailed)
		s.suspended.Delete(req.SessionId.String())
		return nil, err
	}

	return s.settle(ctx, req.SessionId, outcome, run.Persisted)
}

func (s *agentService) GetMessages(ctx context.Context, sessionId uuid.UUID) ([]*dto.AgentMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.AgentSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	messages, err := uow.AgentMessageRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.AgentMessageResponse, len(messages))
	for i, m := range messages {
		result[i] = &dto.AgentMessageResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return result, nil
}

// settle persists the run's new messages, records the session status, and
// parks suspended runs for later resumption.
func (s *agentService) settle(ctx context.Context, sessionId uuid.UUID, outcome agent.Outcome, persisted int) (*dto.AskResponse, error) {
	status := constant.SessionStatusDone
	switch outcome.Status {
	case agent.StatusFailed:
		status = constant.SessionStatusFailed
	case agent.StatusSuspended:
		status = constant.SessionStatusSuspended
	}

	if err := s.finishRun(ctx, sessionId, outcome.State.Messages, persisted, status); err != nil {
		return nil, err
	}

	res := &dto.AskResponse{
		SessionId: sessionId,
		Status:    string(outcome.Status),
		Answer:    outcome.State.FinalOutput,
		Query:     outcome.State.SQL,
		ChartType: string(outcome.State.ChartKind),
	}

	if outcome.Status == agent.StatusSuspended {
		s.suspended.Save(sessionId.String(), &memory.SuspendedRun{
			State:     outcome.State,
			Node:      outcome.Node,
			Persisted: len(outcome.State.Messages),
		})
		res.SuspendedAt = string(outcome.Node)
		res.Answer = ""
	} else {
		s.suspended.Delete(sessionId.String())
	}

	return res, nil
}

func (s *agentService) ensureSession(ctx context.Context, req *dto.AskRequest) (uuid.UUID, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if req.SessionId != nil {
		session, err := uow.AgentSessionRepository().FindOne(ctx, specification.ByID{ID: *req.SessionId})
		if err != nil {
			return uuid.Nil, err
		}
		if session == nil {
			return uuid.Nil, fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return session.Id, nil
	}

	title := req.Question
	if len(title) > 80 {
		title = title[:80]
	}
	session := &entity.AgentSession{
		Id:        uuid.New(),
		Title:     title,
		Status:    constant.SessionStatusActive,
		CreatedAt: time.Now(),
	}
	if err := uow.AgentSessionRepository().Create(ctx, session); err != nil {
		return uuid.Nil, err
	}
	return session.Id, nil
}

// finishRun writes the messages added since persisted and the session's new
// status in one transaction.
func (s *agentService) finishRun(ctx context.Context, sessionId uuid.UUID, messages []agent.Message, persisted int, status string) error {
	if persisted > len(messages) {
		persisted = len(messages)
	}

	fresh := make([]*entity.AgentMessage, 0, len(messages)-persisted)
	for _, m := range messages[persisted:] {
		fresh = append(fresh, &entity.AgentMessage{
			Id:        uuid.New(),
			SessionId: sessionId,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.AgentMessageRepository().CreateBulk(ctx, fresh); err != nil {
		return err
	}

	session, err := uow.AgentSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return err
	}
	if session != nil {
		session.Status = status
		if err := uow.AgentSessionRepository().Update(ctx, session); err != nil {
			return err
		}
	}

	return uow.Commit()
}
