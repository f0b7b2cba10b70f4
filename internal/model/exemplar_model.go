package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

type Exemplar struct {
	Id       int64  `gorm:"primaryKey;autoIncrement"`
	Question string `gorm:"type:text;not null"`
	Context  string `gorm:"type:text;not null"`
	// NULL until the embed worker has processed the exemplar.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text uses 768 dimensions
	CreatedAt time.Time        `gorm:"autoCreateTime"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime"`
}

func (Exemplar) TableName() string {
	return "exemplars"
}
