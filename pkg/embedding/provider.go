package embedding

import "context"

// Provider turns text into a dense vector suitable for similarity search.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
