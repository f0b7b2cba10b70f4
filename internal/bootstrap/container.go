package bootstrap

import (
	"database/sql"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"

	"ai-sqlpilot-be/internal/config"
	"ai-sqlpilot-be/internal/controller"
	"ai-sqlpilot-be/internal/pkg/logger"
	"ai-sqlpilot-be/internal/repository/memory"
	"ai-sqlpilot-be/internal/repository/unitofwork"
	"ai-sqlpilot-be/internal/service"
	"ai-sqlpilot-be/pkg/agent"
	"ai-sqlpilot-be/pkg/chart"
	"ai-sqlpilot-be/pkg/embedding"
	"ai-sqlpilot-be/pkg/llm/factory"
	"ai-sqlpilot-be/pkg/schemainfo"
	"ai-sqlpilot-be/pkg/sqlexec"
)

type Container struct {
	// Controllers
	AgentController    controller.IAgentController
	ExemplarController controller.IExemplarController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, targetDB *sql.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
	)
	log.Printf("[INFO] Using Embedding Provider: %s (%s)", cfg.Ai.EmbeddingProvider, cfg.Ai.EmbeddingModel)

	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Target database collaborators
	runner := sqlexec.NewRunner(targetDB, 0, 0)
	schemaSource := schemainfo.NewService(targetDB)
	renderer := chart.NewHTTPRenderer(cfg.Chart.RendererURL)

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Agent.EmbedExemplarTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Agent.EmbedExemplarTopic,
		uowFactory,
		embeddingProvider,
	)

	exemplarService := service.NewExemplarService(
		uowFactory,
		publisherService,
		embeddingProvider,
		sysLogger,
	)

	pipeline := agent.New(
		llmProvider,
		exemplarService,
		schemaSource,
		runner,
		renderer,
		sysLogger,
		agent.Config{
			TopK:                  cfg.Agent.TopK,
			SufficiencyRetryLimit: cfg.Agent.SufficiencyRetryLimit,
			CorrectionRetryLimit:  cfg.Agent.CorrectionRetryLimit,
			EnableDecomposition:   cfg.Agent.EnableDecomposition,
		},
	)

	suspendedRepo := memory.NewSuspendedRunRepository()
	agentService := service.NewAgentService(uowFactory, pipeline, suspendedRepo, sysLogger)

	// 6. Controllers
	return &Container{
		AgentController:    controller.NewAgentController(agentService),
		ExemplarController: controller.NewExemplarController(exemplarService),
		ConsumerService:    consumerService,
		Logger:             sysLogger,
	}
}
