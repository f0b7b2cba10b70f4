package chart

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{
			name: "valid bar",
			req:  Request{Kind: KindBar, Labels: []string{"a"}, Values: []float64{1}},
		},
		{
			name: "valid line",
			req:  Request{Kind: KindLine, Labels: []string{"a", "b"}, Values: []float64{1, 2}},
		},
		{
			name:    "none is not renderable",
			req:     Request{Kind: KindNone, Labels: []string{"a"}, Values: []float64{1}},
			wantErr: true,
		},
		{
			name:    "empty series",
			req:     Request{Kind: KindBar},
			wantErr: true,
		},
		{
			name:    "length mismatch",
			req:     Request{Kind: KindBar, Labels: []string{"a", "b"}, Values: []float64{1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarkdown(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47}
	got := Markdown("Revenue", png)

	if !strings.HasPrefix(got, "![Revenue](data:image/png;base64,") {
		t.Errorf("Markdown = %q", got)
	}
	if !strings.Contains(got, base64.StdEncoding.EncodeToString(png)) {
		t.Errorf("Markdown missing encoded payload: %q", got)
	}
}

func TestHTTPRendererRender(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chart" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Format string `json:"format"`
			Chart  struct {
				Type string `json:"type"`
				Data struct {
					Labels   []string `json:"labels"`
					Datasets []struct {
						Data []float64 `json:"data"`
					} `json:"datasets"`
				} `json:"data"`
			} `json:"chart"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Format != "png" || req.Chart.Type != "bar" {
			t.Errorf("unexpected config: %+v", req)
		}
		if len(req.Chart.Data.Labels) != 2 || len(req.Chart.Data.Datasets) != 1 {
			t.Errorf("unexpected series: %+v", req.Chart.Data)
		}
		w.Write(png)
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL)
	got, err := r.Render(context.Background(), Request{
		Kind:   KindBar,
		Title:  "Revenue",
		Labels: []string{"Jul", "Aug"},
		Values: []float64{10, 20},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(got) != string(png) {
		t.Errorf("png bytes mismatch")
	}
}

func TestHTTPRendererErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad chart config", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL)
	_, err := r.Render(context.Background(), Request{
		Kind:   KindLine,
		Labels: []string{"a"},
		Values: []float64{1},
	})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "422") {
		t.Errorf("error %q misses status code", err)
	}
}

func TestHTTPRendererRejectsInvalidRequest(t *testing.T) {
	r := NewHTTPRenderer("http://unused")
	_, err := r.Render(context.Background(), Request{Kind: KindNone})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
