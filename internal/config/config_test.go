package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.App.Port != "3000" {
		t.Errorf("Port = %q", cfg.App.Port)
	}
	if cfg.Ai.LLMProvider != "ollama" || cfg.Ai.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("Ai = %+v", cfg.Ai)
	}
	if cfg.Agent.TopK != 8 {
		t.Errorf("TopK = %d", cfg.Agent.TopK)
	}
	if cfg.Agent.SufficiencyRetryLimit != 1 || cfg.Agent.CorrectionRetryLimit != 1 {
		t.Errorf("retry limits = %+v", cfg.Agent)
	}
	if cfg.Agent.EnableDecomposition {
		t.Error("decomposition should be off by default")
	}
	if cfg.Agent.EmbedExemplarTopic != "EMBED_EXEMPLAR" {
		t.Errorf("topic = %q", cfg.Agent.EmbedExemplarTopic)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("AGENT_TOP_K", "3")
	t.Setenv("ENABLE_DECOMPOSITION", "true")
	t.Setenv("LLM_MODEL", "qwen2.5")

	cfg := Load()

	if cfg.App.Port != "9000" {
		t.Errorf("Port = %q", cfg.App.Port)
	}
	if cfg.Agent.TopK != 3 {
		t.Errorf("TopK = %d", cfg.Agent.TopK)
	}
	if !cfg.Agent.EnableDecomposition {
		t.Error("EnableDecomposition not picked up")
	}
	if cfg.Ai.LLMModel != "qwen2.5" {
		t.Errorf("LLMModel = %q", cfg.Ai.LLMModel)
	}
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("AGENT_TOP_K", "not-a-number")

	cfg := Load()
	if cfg.Agent.TopK != 8 {
		t.Errorf("TopK = %d, want fallback 8", cfg.Agent.TopK)
	}
}
