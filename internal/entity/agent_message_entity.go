package entity

import (
	"time"

	"github.com/google/uuid"
)

type AgentMessage struct {
	Id        uuid.UUID
	SessionId uuid.UUID
	Role      string
	Content   string
	CreatedAt time.Time
}
