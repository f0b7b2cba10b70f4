package mapper

import (
	"time"

	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/model"
)

type AgentSessionMapper struct{}

func NewAgentSessionMapper() *AgentSessionMapper {
	return &AgentSessionMapper{}
}

func (m *AgentSessionMapper) ToEntity(e *model.AgentSession) *entity.AgentSession {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.AgentSession{
		Id:        e.Id,
		Title:     e.Title,
		Status:    e.Status,
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *AgentSessionMapper) ToModel(e *entity.AgentSession) *model.AgentSession {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.AgentSession{
		Id:        e.Id,
		Title:     e.Title,
		Status:    e.Status,
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

type AgentMessageMapper struct{}

func NewAgentMessageMapper() *AgentMessageMapper {
	return &AgentMessageMapper{}
}

func (m *AgentMessageMapper) ToEntity(e *model.AgentMessage) *entity.AgentMessage {
	if e == nil {
		return nil
	}
	return &entity.AgentMessage{
		Id:        e.Id,
		SessionId: e.SessionId,
		Role:      e.Role,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
}

func (m *AgentMessageMapper) ToModel(e *entity.AgentMessage) *model.AgentMessage {
	if e == nil {
		return nil
	}
	return &model.AgentMessage{
		Id:        e.Id,
		SessionId: e.SessionId,
		Role:      e.Role,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
}

func (m *AgentMessageMapper) ToEntities(messages []*model.AgentMessage) []*entity.AgentMessage {
	entities := make([]*entity.AgentMessage, len(messages))
	for i, e := range messages {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
