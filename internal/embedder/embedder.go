// Package embedder provides interfaces and implementations for text embedding.
package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knoguchi/freightquote/internal/quote"
)

// DefaultTimeout bounds a single embedding call when none is configured.
const DefaultTimeout = 10 * time.Second

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates an embedding vector for a single non-empty text input.
	// Every failure is reported as quote.ErrEmbeddingUnavailable.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// unavailable wraps a provider failure into the pipeline's error class.
func unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", quote.ErrEmbeddingUnavailable, provider, err)
}

func checkInput(provider, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %s: empty input text", quote.ErrEmbeddingUnavailable, provider)
	}
	return nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
