package entity

import (
	"time"

	"github.com/google/uuid"
)

type AgentSession struct {
	Id        uuid.UUID
	Title     string
	Status    string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
