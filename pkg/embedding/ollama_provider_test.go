package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProviderEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if req.Model != "nomic-embed-text" || req.Prompt != "total revenue" {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float64{3, 4},
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "")
	vec, err := p.Embed(context.Background(), "total revenue")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	// 3-4-5 triangle normalized to unit length
	if len(vec) != 2 {
		t.Fatalf("len = %d", len(vec))
	}
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Errorf("vec = %v, want [0.6 0.8]", vec)
	}
}

func TestOllamaProviderEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing")
	if _, err := p.Embed(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]float32{0, 3, 4})

	var sum float64
	for _, v := range got {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("magnitude^2 = %v, want 1", sum)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	got := Normalize([]float32{0, 0, 0})
	for i, v := range got {
		if v != 0 {
			t.Errorf("component %d = %v, want 0", i, v)
		}
	}
}
