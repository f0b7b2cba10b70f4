package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-sqlpilot-be/internal/dto"
	"ai-sqlpilot-be/internal/repository/specification"
	"ai-sqlpilot-be/internal/repository/unitofwork"
	"ai-sqlpilot-be/pkg/embedding"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService embeds saved exemplars in the background so the save
// endpoint never blocks on the embedding model.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.Provider
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.Provider,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	// Queued events do not survive a restart, so pick up stragglers first.
	go cs.backfill(ctx)

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// backfill embeds every exemplar still missing its vector.
func (cs *consumerService) backfill(ctx context.Context) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	pending, err := uow.ExemplarRepository().FindAll(ctx, specification.MissingEmbedding{})
	if err != nil {
		log.Printf("[ERROR] Failed to list unembedded exemplars: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	log.Printf("[INFO] Backfilling embeddings for %d exemplars", len(pending))
	for _, exemplar := range pending {
		vec, err := cs.embeddingProvider.Embed(ctx, exemplar.Question)
		if err != nil {
			log.Printf("[ERROR] Failed to embed exemplar %d: %v", exemplar.Id, err)
			continue
		}
		exemplar.Embedding = embedding.Normalize(vec)

		if err := uow.ExemplarRepository().Update(ctx, exemplar); err != nil {
			log.Printf("[ERROR] Failed to update exemplar %d: %v", exemplar.Id, err)
			continue
		}
		log.Printf("[SUCCESS] Exemplar embedded: %d", exemplar.Id)
	}
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedExemplarMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Embedding exemplar %d", payload.ExemplarId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	exemplar, err := uow.ExemplarRepository().FindOne(ctx, specification.BySerialID{ID: payload.ExemplarId})
	if err != nil {
		log.Printf("[ERROR] Failed to get exemplar %d: %v", payload.ExemplarId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if exemplar == nil {
		log.Printf("[ERROR] Exemplar not found: %d", payload.ExemplarId)
		msg.Ack() // Deleted before the worker got to it? Ack.
		return
	}

	vec, err := cs.embeddingProvider.Embed(ctx, exemplar.Question)
	if err != nil {
		log.Printf("[ERROR] Failed to embed exemplar %d: %v", payload.ExemplarId, err)
		msg.Nack()
		return
	}
	exemplar.Embedding = embedding.Normalize(vec)

	if err := uow.ExemplarRepository().Update(ctx, exemplar); err != nil {
		log.Printf("[ERROR] Failed to update exemplar %d: %v", payload.ExemplarId, err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] Exemplar embedded: %d", payload.ExemplarId)
	msg.Ack()
}
