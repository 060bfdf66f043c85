// Package retrieval implements the in-memory retrieval core: rendering and
// batch-embedding member messages, and ranking the resulting vectors against
// a query by cosine similarity. The corpus is small (low thousands of
// messages) so ranking is an exhaustive scan — no index is maintained.
// Concrete embedding backends satisfy the [Embedder] interface and live in
// internal/embedder, so this package never depends on a specific provider.
package retrieval

import (
	"context"

	"github.com/54b3r/msgqa-go/internal/feed"
)

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorizedMessage pairs a message with its embedding vector. The pairing is
// immutable once created; a message's vector is never recomputed in place —
// cache refresh replaces whole collections.
type VectorizedMessage struct {
	// Message is the original feed record.
	Message feed.Message
	// Vector is the embedding of the rendered message.
	Vector []float32
}
