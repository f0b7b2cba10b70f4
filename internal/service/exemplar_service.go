package service

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"ai-sqlpilot-be/internal/dto"
	"ai-sqlpilot-be/internal/entity"
	"ai-sqlpilot-be/internal/pkg/logger"
	"ai-sqlpilot-be/internal/repository/specification"
	"ai-sqlpilot-be/internal/repository/unitofwork"
	"ai-sqlpilot-be/pkg/agent"
	"ai-sqlpilot-be/pkg/embedding"
)

// scoreEpsilon is the floor of the normalized similarity range. Scores are
// rescaled to [scoreEpsilon, 1] so no retrieved exemplar carries zero weight.
const scoreEpsilon = 0.3

type IExemplarService interface {
	agent.ExemplarSearcher

	Save(ctx context.Context, req *dto.SaveExemplarRequest) (*dto.ExemplarResponse, error)
	Delete(ctx context.Context, id int64) error
	GetAll(ctx context.Context, limit, offset int) ([]*dto.ExemplarResponse, error)
}

type exemplarService struct {
	uowFactory        unitofwork.RepositoryFactory
	publisherService  IPublisherService
	embeddingProvider embedding.Provider
	log               logger.ILogger
}

func NewExemplarService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	embeddingProvider embedding.Provider,
	log logger.ILogger,
) IExemplarService {
	return &exemplarService{
		uowFactory:        uowFactory,
		publisherService:  publisherService,
		embeddingProvider: embeddingProvider,
		log:               log,
	}
}

// Save stores the pair immediately and hands the embedding work to the
// background consumer. The exemplar becomes searchable once embedded.
func (s *exemplarService) Save(ctx context.Context, req *dto.SaveExemplarRequest) (*dto.ExemplarResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	exemplar := &entity.Exemplar{
		Question:  req.Question,
		Context:   req.Context,
		CreatedAt: time.Now(),
	}
	if err := uow.ExemplarRepository().Create(ctx, exemplar); err != nil {
		return nil, err
	}

	if err := s.publisherService.PublishEmbedExemplar(exemplar.Id); err != nil {
		s.log.Error("exemplar", "failed to publish embed event", map[string]interface{}{
			"exemplar_id": exemplar.Id,
			"error":       err.Error(),
		})
	}

	return toExemplarResponse(exemplar), nil
}

func (s *exemplarService) Delete(ctx context.Context, id int64) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	exemplar, err := uow.ExemplarRepository().FindOne(ctx, specification.BySerialID{ID: id})
	if err != nil {
		return err
	}
	if exemplar == nil {
		return fiber.NewError(fiber.StatusNotFound, "exemplar not found")
	}

	return uow.ExemplarRepository().Delete(ctx, id)
}

func (s *exemplarService) GetAll(ctx context.Context, limit, offset int) ([]*dto.ExemplarResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)

	exemplars, err := uow.ExemplarRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ExemplarResponse, len(exemplars))
	for i, e := range exemplars {
		result[i] = toExemplarResponse(e)
	}
	return result, nil
}

// Search embeds the question and returns the top-k similar exemplars with
// normalized scores. Satisfies the pipeline's retrieval port.
func (s *exemplarService) Search(ctx context.Context, question string, k int) ([]agent.ExemplarHit, error) {
	vec, err := s.embeddingProvider.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	vec = embedding.Normalize(vec)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.ExemplarRepository().SearchSimilarWithScore(ctx, vec, k, 0)
	if err != nil {
		return nil, err
	}

	hits := make([]agent.ExemplarHit, len(scored))
	for i, sc := range scored {
		hits[i] = agent.ExemplarHit{
			ID:       sc.Exemplar.Id,
			Question: sc.Exemplar.Question,
			Context:  sc.Exemplar.Context,
			Score:    sc.Similarity,
		}
	}
	agent.NormalizeScores(hits, scoreEpsilon)
	return hits, nil
}

func toExemplarResponse(e *entity.Exemplar) *dto.ExemplarResponse {
	return &dto.ExemplarResponse{
		Id:        e.Id,
		Question:  e.Question,
		Context:   e.Context,
		Embedded:  len(e.Embedding) > 0,
		CreatedAt: e.CreatedAt,
	}
}
