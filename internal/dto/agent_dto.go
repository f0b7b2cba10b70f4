package dto

import (
	"time"

	"github.com/google/uuid"
)

type AskRequest struct {
	SessionId *uuid.UUID `json:"session_id"`
	Question  string     `json:"question" validate:"required,min=3"`
	// SuspendBefore optionally parks the run at a stage boundary so the
	// caller can inject information and resume.
	SuspendBefore string `json:"suspend_before"`
}

type ResumeRequest struct {
	SessionId   uuid.UUID `json:"session_id" validate:"required"`
	Information string    `json:"information"`
}

type AskResponse struct {
	SessionId   uuid.UUID `json:"session_id"`
	Status      string    `json:"status"`
	Answer      string    `json:"answer,omitempty"`
	Query       string    `json:"query,omitempty"`
	ChartType   string    `json:"chart_type,omitempty"`
	SuspendedAt string    `json:"suspended_at,omitempty"`
}

type AgentMessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
