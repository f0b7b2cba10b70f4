package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BySessionID filters messages belonging to one session
type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// MissingEmbedding matches exemplars the embed worker has not processed yet
type MissingEmbedding struct{}

func (s MissingEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NULL")
}
