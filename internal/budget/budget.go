// Package budget provides token budget estimation and grounding-context
// trimming for answer generation. Because the service supports multiple LLM
// backends with different tokenizers, this package uses a conservative
// character-based heuristic: 1 token ≈ 4 characters (English prose). This
// deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/msgqa-go/internal/feed"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving
	// room for the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// estimateGrounding returns the estimated token cost of one grounding
// message as it will be rendered into the prompt: a few tokens of line
// framing (bullet, timestamp, separators) plus the author and body text.
func estimateGrounding(m feed.Message) int {
	return 8 + Estimate(m.UserName) + Estimate(m.Body)
}

// TrimContext drops grounding messages from the tail of msgs until
// reservedTokens plus the estimated cost of the remaining messages fits
// within maxTokens. Callers pass messages ordered most-relevant-first, so
// trimming the tail discards the weakest matches. reservedTokens covers the
// parts of the prompt that must not be trimmed (system prompt and question).
//
// Returns the trimmed slice. At least one message is always kept when msgs
// is non-empty, even if it alone exceeds the budget: an oversized answer
// prompt is better than an ungrounded one.
func TrimContext(msgs []feed.Message, reservedTokens, maxTokens int) []feed.Message {
	if len(msgs) <= 1 {
		return msgs
	}

	total := reservedTokens
	for i, m := range msgs {
		total += estimateGrounding(m)
		if total > maxTokens && i > 0 {
			return msgs[:i]
		}
	}
	return msgs
}
