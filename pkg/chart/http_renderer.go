package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPRenderer renders through a QuickChart-compatible endpoint: it POSTs a
// Chart.js configuration to {BaseURL}/chart and receives PNG bytes back.
type HTTPRenderer struct {
	BaseURL string
	Client  *http.Client
}

var _ Renderer = &HTTPRenderer{}

func NewHTTPRenderer(baseURL string) *HTTPRenderer {
	return &HTTPRenderer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type renderRequest struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Format string      `json:"format"`
	Chart  chartConfig `json:"chart"`
}

type chartConfig struct {
	Type    string       `json:"type"`
	Data    chartData    `json:"data"`
	Options chartOptions `json:"options"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type chartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

type chartOptions struct {
	Title  chartTitle `json:"title"`
	Scales struct {
		XAxes []axis `json:"xAxes"`
		YAxes []axis `json:"yAxes"`
	} `json:"scales"`
}

type chartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type axis struct {
	ScaleLabel struct {
		Display     bool   `json:"display"`
		LabelString string `json:"labelString"`
	} `json:"scaleLabel"`
}

func (r *HTTPRenderer) Render(ctx context.Context, req Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg := chartConfig{
		Type: string(req.Kind),
		Data: chartData{
			Labels:   req.Labels,
			Datasets: []chartDataset{{Label: req.Title, Data: req.Values}},
		},
	}
	cfg.Options.Title = chartTitle{Display: req.Title != "", Text: req.Title}
	var x, y axis
	x.ScaleLabel.Display = req.XLabel != ""
	x.ScaleLabel.LabelString = req.XLabel
	y.ScaleLabel.Display = req.YLabel != ""
	y.ScaleLabel.LabelString = req.YLabel
	cfg.Options.Scales.XAxes = []axis{x}
	cfg.Options.Scales.YAxes = []axis{y}

	body, err := json.Marshal(renderRequest{
		Width:  640,
		Height: 400,
		Format: "png",
		Chart:  cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chart config: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/chart", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chart render request failed: %w", err)
	}
	defer resp.Body.Close()

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chart response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart renderer error: status %d, body: %s", resp.StatusCode, string(png))
	}
	return png, nil
}
