package chart

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Kind is the chart family a result set maps onto.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
	KindNone Kind = "none"
)

// Request carries one renderable series with its labels.
type Request struct {
	Kind   Kind
	Title  string
	XLabel string
	YLabel string
	Labels []string  // category labels (bar) or x tick labels (line)
	Values []float64 // must match len(Labels)
}

func (r *Request) Validate() error {
	if r.Kind != KindLine && r.Kind != KindBar {
		return fmt.Errorf("unsupported chart kind: %s", r.Kind)
	}
	if len(r.Labels) == 0 {
		return fmt.Errorf("empty series")
	}
	if len(r.Labels) != len(r.Values) {
		return fmt.Errorf("labels and values must have the same length (%d != %d)",
			len(r.Labels), len(r.Values))
	}
	return nil
}

// Renderer turns a series into a PNG image.
type Renderer interface {
	Render(ctx context.Context, req Request) ([]byte, error)
}

// Markdown embeds rendered PNG bytes as a data-URI image so the reply can be
// streamed straight into a chat client.
func Markdown(title string, png []byte) string {
	return fmt.Sprintf("![%s](data:image/png;base64,%s)",
		title, base64.StdEncoding.EncodeToString(png))
}
