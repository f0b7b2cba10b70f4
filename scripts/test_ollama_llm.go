//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"

	"ai-sqlpilot-be/internal/config"
	"ai-sqlpilot-be/pkg/llm/factory"
)

func main() {
	// 1. Load Config
	cfg := config.Load()
	fmt.Printf("Loaded Config > LLM Provider: %s\n", cfg.Ai.LLMProvider)
	fmt.Printf("Loaded Config > LLM Model: %s\n", cfg.Ai.LLMModel)
	fmt.Printf("Loaded Config > Ollama URL: %s\n", cfg.Ai.OllamaBaseURL)

	// 2. Initialize the provider the same way bootstrap does
	provider, err := factory.NewProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL, cfg.Ai.LLMAPIKey)
	if err != nil {
		log.Fatalf("Error creating provider: %v", err)
	}

	// 3. Smoke prompt
	prompt := "Write a single PostgreSQL query that counts the rows of a table named orders. Respond with the query only."
	fmt.Printf("\nPrompting: %q\n", prompt)

	resp, err := provider.Generate(context.Background(), prompt)
	if err != nil {
		log.Fatalf("Error generating response: %v", err)
	}

	fmt.Printf("\nResponse:\n%s\n", resp)
}
