package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Agent    AgentConfig
	Chart    ChartConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type DatabaseConfig struct {
	// Connection is the application store (sessions, messages, exemplars).
	Connection string
	// TargetDSN is the analytics database queries run against.
	TargetDSN string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama"
	EmbeddingModel    string
	OllamaBaseURL     string
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	LLMAPIKey         string // only needed for hosted providers
}

type AgentConfig struct {
	TopK                  int
	SufficiencyRetryLimit int
	CorrectionRetryLimit  int
	EnableDecomposition   bool
	EmbedExemplarTopic    string
}

type ChartConfig struct {
	RendererURL string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			TargetDSN:  getEnv("TARGET_DB_DSN", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		},
		Agent: AgentConfig{
			TopK:                  getEnvAsInt("AGENT_TOP_K", 8),
			SufficiencyRetryLimit: getEnvAsInt("SUFFICIENCY_RETRY_LIMIT", 1),
			CorrectionRetryLimit:  getEnvAsInt("CORRECTION_RETRY_LIMIT", 1),
			EnableDecomposition:   getEnvAsBool("ENABLE_DECOMPOSITION", false),
			EmbedExemplarTopic:    getEnv("EMBED_EXEMPLAR_TOPIC_NAME", "EMBED_EXEMPLAR"),
		},
		Chart: ChartConfig{
			RendererURL: getEnv("CHART_RENDERER_URL", "http://localhost:8080"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
