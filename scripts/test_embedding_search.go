//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"

	"ai-sqlpilot-be/internal/config"
	"ai-sqlpilot-be/internal/repository/unitofwork"
	"ai-sqlpilot-be/pkg/database"
	"ai-sqlpilot-be/pkg/embedding"
)

func main() {
	// 1. Load Config
	cfg := config.Load()
	fmt.Printf("Loaded Config > Embedding Model: %s\n", cfg.Ai.EmbeddingModel)

	// 2. Connect to the application store
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Error connecting to DB: %v", err)
	}

	// 3. Embed a probe question
	provider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	question := "What was the total revenue last month?"
	vec, err := provider.Embed(context.Background(), question)
	if err != nil {
		log.Fatalf("Error generating embedding: %v", err)
	}
	fmt.Printf("Generated embedding with %d dimensions\n", len(vec))

	// 4. Run the similarity search the retrieval stage uses
	uow := unitofwork.NewRepositoryFactory(gormDB).NewUnitOfWork(context.Background())
	scored, err := uow.ExemplarRepository().SearchSimilarWithScore(context.Background(), vec, 5, 0)
	if err != nil {
		log.Fatalf("Error searching exemplars: %v", err)
	}

	fmt.Printf("Found %d exemplars:\n", len(scored))
	for _, s := range scored {
		fmt.Printf("  [%.4f] %s\n", s.Similarity, s.Exemplar.Question)
	}
}
