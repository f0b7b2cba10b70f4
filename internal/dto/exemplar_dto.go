package dto

import "time"

type SaveExemplarRequest struct {
	Question string `json:"question" validate:"required,min=3"`
	Context  string `json:"context" validate:"required,min=3"`
}

type ExemplarResponse struct {
	Id        int64     `json:"id"`
	Question  string    `json:"question"`
	Context   string    `json:"context"`
	Embedded  bool      `json:"embedded"`
	CreatedAt time.Time `json:"created_at"`
}

type ScoredExemplarResponse struct {
	Id       int64   `json:"id"`
	Question string  `json:"question"`
	Context  string  `json:"context"`
	Score    float64 `json:"score"`
}

// PublishEmbedExemplarMessage is the payload of the embed topic.
type PublishEmbedExemplarMessage struct {
	ExemplarId int64 `json:"exemplar_id"`
}
