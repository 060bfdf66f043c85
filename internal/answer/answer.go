// Package answer turns a question plus a set of grounding messages into a
// natural-language answer using an LLM chat model constructed by the
// provider factory. The generator is deliberately thin: it renders the
// grounding context deterministically, issues one Generate call, and returns
// the model text verbatim. Retry policy, if any, belongs to the caller.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/msgqa-go/internal/budget"
	"github.com/54b3r/msgqa-go/internal/feed"
)

// systemPrompt establishes the answering persona. Answers must be grounded
// strictly in the supplied member messages.
const systemPrompt = "You are a meticulous concierge analyst. " +
	"Answer questions strictly using the provided member messages. " +
	"If the answer cannot be found, reply that the information is unavailable."

// noAnswerText is returned when the model produces an empty response.
const noAnswerText = "No answer returned."

// Effort is the optional reasoning-effort hint passed through to the model.
type Effort string

// Valid reasoning-effort values, mirroring the upstream model API.
const (
	EffortMinimal Effort = "minimal"
	EffortLow     Effort = "low"
	EffortMedium  Effort = "medium"
	EffortHigh    Effort = "high"
)

// Valid reports whether e is one of the known effort levels.
func (e Effort) Valid() bool {
	switch e {
	case EffortMinimal, EffortLow, EffortMedium, EffortHigh:
		return true
	}
	return false
}

// Options carries per-request generation settings.
type Options struct {
	// ReasoningEffort is an optional hint for how much reasoning the model
	// should spend. Empty means the model default.
	ReasoningEffort Effort
}

// chatModel is the narrow slice of the eino model interface the generator
// needs. Provider-built models satisfy it; tests inject a fake.
type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Generator produces grounded answers from a chat model.
type Generator struct {
	// model is the LLM backend constructed by the provider factory.
	model chatModel
	// maxContextTokens bounds the estimated size of the full prompt; the
	// least-relevant grounding messages are dropped to stay within it.
	maxContextTokens int
}

// NewGenerator constructs a Generator on top of the given chat model.
func NewGenerator(model chatModel) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("answer: model must not be nil")
	}
	return &Generator{model: model, maxContextTokens: budget.DefaultMaxContextTokens}, nil
}

// Generate answers question using msgs as the only grounding context.
// The model's text is returned verbatim; an empty model response yields a
// fixed placeholder rather than an empty string. Provider errors are
// propagated to the caller unchanged in meaning — no retries here.
func (g *Generator) Generate(ctx context.Context, question string, msgs []feed.Message, opts *Options) (string, error) {
	sys := systemPrompt
	if opts != nil && opts.ReasoningEffort != "" {
		if !opts.ReasoningEffort.Valid() {
			return "", fmt.Errorf("answer: invalid reasoning effort %q", opts.ReasoningEffort)
		}
		sys += fmt.Sprintf("\nReasoning effort: %s.", opts.ReasoningEffort)
	}

	// Retrieval orders msgs most-relevant-first, so trimming the tail
	// discards the weakest matches when the prompt would overflow.
	reserved := budget.Estimate(sys) + budget.Estimate(question) + 16
	msgs = budget.TrimContext(msgs, reserved, g.maxContextTokens)

	prompt := "Messages:\n" + FormatContext(msgs) + "\n\nQuestion: " + question + "\nAnswer:"

	resp, err := g.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(sys),
		schema.UserMessage(prompt),
	})
	if err != nil {
		return "", fmt.Errorf("answer: generate failed: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return noAnswerText, nil
	}
	return resp.Content, nil
}

// FormatContext renders the grounding messages as the model sees them, one
// line per message. The format is stable so answers are reproducible for a
// given corpus and question.
func FormatContext(msgs []feed.Message) string {
	if len(msgs) == 0 {
		return "(no messages provided)"
	}
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("- %s | %s: %s", m.Timestamp.Format(time.RFC3339), m.UserName, m.Body)
	}
	return strings.Join(lines, "\n")
}
