package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/54b3r/msgqa-go/internal/feed"
)

// defaultBatchSize is the maximum number of messages sent to the embedding
// provider in a single call when no explicit batch size is configured.
const defaultBatchSize = 100

// Vectorizer renders messages to text and embeds them in order-preserving
// batches. It is safe for concurrent use as long as the underlying Embedder is.
type Vectorizer struct {
	// embedder is the backend that produces the actual vectors.
	embedder Embedder
	// batchSize is the maximum number of texts per provider call.
	batchSize int
}

// NewVectorizer constructs a Vectorizer. batchSize <= 0 selects the default
// of 100 texts per provider call.
func NewVectorizer(embedder Embedder, batchSize int) (*Vectorizer, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: embedder must not be nil")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Vectorizer{embedder: embedder, batchSize: batchSize}, nil
}

// EmbedMessages embeds the given messages and returns one VectorizedMessage
// per input, in input order. The input is partitioned into consecutive chunks
// of at most the configured batch size, one provider call per chunk; results
// are concatenated in original order. Any provider error aborts the whole
// call — there are no partial results.
func (v *Vectorizer) EmbedMessages(ctx context.Context, msgs []feed.Message) ([]VectorizedMessage, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = RenderMessage(m)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += v.batchSize {
		end := min(start+v.batchSize, len(texts))
		batch, err := v.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("retrieval: embed batch [%d:%d]: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("retrieval: embed batch [%d:%d]: expected %d vectors, got %d",
				start, end, end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}

	result := make([]VectorizedMessage, len(msgs))
	for i, m := range msgs {
		result[i] = VectorizedMessage{Message: m, Vector: vectors[i]}
	}
	return result, nil
}

// EmbedQuery embeds a single query string.
func (v *Vectorizer) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := v.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("retrieval: embed query: expected 1 vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

// RenderMessage produces the canonical text a message is embedded under.
// The three-line template is part of the retrieval contract: changing it
// changes embedding semantics, so it must stay byte-identical across the
// corpus and any tooling that re-embeds it.
func RenderMessage(m feed.Message) string {
	return fmt.Sprintf("Timestamp: %s\nMember: %s\nMessage: %s",
		m.Timestamp.Format(time.RFC3339), m.UserName, m.Body)
}
