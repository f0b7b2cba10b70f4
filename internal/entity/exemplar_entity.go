package entity

import (
	"time"
)

// Exemplar is a validated question/context pair reused by the retrieval
// stage. Embedding may be empty until the background embed worker fills it.
type Exemplar struct {
	Id        int64
	Question  string
	Context   string
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt *time.Time
}
