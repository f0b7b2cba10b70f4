package factory

import (
	"fmt"

	"ai-sqlpilot-be/pkg/llm"
	"ai-sqlpilot-be/pkg/llm/huggingface"
	"ai-sqlpilot-be/pkg/llm/ollama"
)

func NewProvider(providerType, modelName, baseURL, apiKey string) (llm.Provider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewProvider(baseURL, modelName), nil
	case "huggingface":
		return huggingface.NewProvider(apiKey, "", modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
