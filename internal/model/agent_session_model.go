package model

import (
	"time"

	"github.com/google/uuid"
)

type AgentSession struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(32);index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (AgentSession) TableName() string {
	return "agent_sessions"
}
