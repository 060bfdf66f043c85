// Package qa owns the vectorized-message cache and drives the full
// question-answering path: ensure the cache is populated, embed the query,
// rank the cached vectors, and hand the best matches to the answer generator.
//
// The cache is single-flight: no matter how many callers race on a cold
// cache, exactly one population cycle runs; everyone else blocks until it
// finishes and then reads the fully populated state. Collections are replaced
// wholesale under the gate and never mutated in place, so readers can take a
// snapshot with only a brief critical section.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/54b3r/msgqa-go/internal/answer"
	"github.com/54b3r/msgqa-go/internal/feed"
	"github.com/54b3r/msgqa-go/internal/logging"
	"github.com/54b3r/msgqa-go/internal/retrieval"
)

// NoMessagesAnswer is the fixed answer returned when the corpus is empty.
// An empty feed is a valid steady state, not an error.
const NoMessagesAnswer = "No member messages are available at the moment."

// MessageSource supplies the corpus. *feed.Client satisfies it; tests inject
// a fake with a call counter.
type MessageSource interface {
	// Fetch returns up to limit messages in feed order.
	Fetch(ctx context.Context, limit int) ([]feed.Message, error)
}

// Vectorizer converts messages and queries into embedding vectors.
// *retrieval.Vectorizer satisfies it.
type Vectorizer interface {
	// EmbedMessages embeds a batch of messages, preserving order and length.
	EmbedMessages(ctx context.Context, msgs []feed.Message) ([]retrieval.VectorizedMessage, error)
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator produces the final answer text from a question and its
// grounding messages. *answer.Generator satisfies it.
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, msgs []feed.Message, opts *answer.Options) (string, error)
}

// cacheState tracks the population lifecycle of the vectorized cache.
type cacheState int

const (
	// stateNotReady means the cache holds no trustworthy data. The initial
	// state, and the state after a failed population.
	stateNotReady cacheState = iota
	// statePopulating means exactly one goroutine is fetching and embedding.
	statePopulating
	// stateReady means the collections below are complete and readable.
	stateReady
)

// Config holds the dependencies and tuning for constructing a Service.
type Config struct {
	// Source supplies the message corpus.
	Source MessageSource
	// Vectorizer embeds messages and queries.
	Vectorizer Vectorizer
	// Generator produces answers from grounding context.
	Generator AnswerGenerator
	// TopK is the number of messages fed to the generator per question.
	// Defaults to 8 if zero.
	TopK int
	// CacheLimit bounds how many messages one population cycle fetches.
	// Zero lets the source apply its own default.
	CacheLimit int
}

// Service is the retrieval cache and request orchestrator. It is safe for
// concurrent use; construct it with NewService.
type Service struct {
	// source supplies the message corpus.
	source MessageSource
	// vectorizer embeds messages and queries.
	vectorizer Vectorizer
	// generator produces the final answer text.
	generator AnswerGenerator
	// topK is the number of grounding messages per question.
	topK int
	// cacheLimit bounds the per-cycle fetch size.
	cacheLimit int

	// mu guards state and the two collections. cond is signalled on every
	// state transition out of statePopulating so waiters can re-check.
	mu   sync.Mutex
	cond *sync.Cond
	// state is the population lifecycle state.
	state cacheState
	// vectorized is the current embedded corpus. Replaced wholesale.
	vectorized []retrieval.VectorizedMessage
	// messages is the parallel raw corpus for non-ranking consumers.
	messages []feed.Message
}

// NewService constructs a Service from the given config.
func NewService(cfg *Config) (*Service, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("qa: source must not be nil")
	}
	if cfg.Vectorizer == nil {
		return nil, fmt.Errorf("qa: vectorizer must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("qa: generator must not be nil")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 8
	}

	s := &Service{
		source:     cfg.Source,
		vectorizer: cfg.Vectorizer,
		generator:  cfg.Generator,
		topK:       topK,
		cacheLimit: cfg.CacheLimit,
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Answer answers question using the cached corpus. It ensures the cache is
// populated (blocking behind an in-flight population if necessary), embeds
// the question, ranks the corpus, and invokes the generator on the top-K
// matches. The returned count is the number of grounding messages actually
// used, which may be less than TopK for a small corpus. An empty corpus
// yields the fixed NoMessagesAnswer with count 0 and no generator call.
// Generator and embedding errors affect only this call, never cache state.
func (s *Service) Answer(ctx context.Context, question string, opts *answer.Options) (string, int, error) {
	if err := s.ensureReady(ctx, false); err != nil {
		return "", 0, err
	}

	s.mu.Lock()
	vectorized := s.vectorized
	s.mu.Unlock()

	if len(vectorized) == 0 {
		return NoMessagesAnswer, 0, nil
	}

	queryVector, err := s.vectorizer.EmbedQuery(ctx, question)
	if err != nil {
		return "", 0, fmt.Errorf("qa: embed question: %w", err)
	}

	top, err := retrieval.SelectTopK(queryVector, vectorized, s.topK)
	if err != nil {
		return "", 0, fmt.Errorf("qa: rank corpus: %w", err)
	}

	grounding := make([]feed.Message, len(top))
	for i, v := range top {
		grounding[i] = v.Message
	}

	text, err := s.generator.Generate(ctx, question, grounding, opts)
	if err != nil {
		return "", 0, fmt.Errorf("qa: generate answer: %w", err)
	}
	return text, len(top), nil
}

// CachedMessages ensures the cache is populated and returns a copy of the
// raw message corpus. Callers can never observe in-place mutation of the
// live cache through the returned slice.
func (s *Service) CachedMessages(ctx context.Context) ([]feed.Message, error) {
	if err := s.ensureReady(ctx, false); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages), nil
}

// WarmCache populates the cache if it is not ready, or unconditionally
// repopulates it when force is true. A forced warm that finds a population
// already in flight waits for it to finish and then runs its own cycle.
func (s *Service) WarmCache(ctx context.Context, force bool) error {
	return s.ensureReady(ctx, force)
}

// Size returns the number of messages currently cached. Intended for
// metrics; it does not trigger population.
func (s *Service) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Ready reports whether the cache is populated. Intended for readiness
// probes; it does not trigger population.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateReady
}

// ensureReady implements the single-flight population protocol. Callers with
// force=false return as soon as the cache is ready; at most one caller runs
// the fetch-and-embed cycle while the rest wait on the condition variable.
// Readiness is re-checked after every wakeup, so a caller that raced a
// concurrent populator never repeats the work.
func (s *Service) ensureReady(ctx context.Context, force bool) error {
	s.mu.Lock()
	for s.state == statePopulating {
		s.cond.Wait()
	}
	if s.state == stateReady && !force {
		s.mu.Unlock()
		return nil
	}
	// This caller becomes the populator. Dropping out of ready here makes
	// readers that arrive during a forced refresh block until it completes.
	s.state = statePopulating
	s.mu.Unlock()

	vectorized, msgs, err := s.populate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cond.Broadcast()

	if err != nil {
		// Leave the cache recoverable: the next ensureReady retries.
		s.state = stateNotReady
		return err
	}
	s.vectorized = vectorized
	s.messages = msgs
	s.state = stateReady
	return nil
}

// populate runs one fetch-and-embed cycle outside the lock. An empty fetch
// is a valid result and yields empty collections.
func (s *Service) populate(ctx context.Context) ([]retrieval.VectorizedMessage, []feed.Message, error) {
	log := logging.FromContext(ctx)

	msgs, err := s.source.Fetch(ctx, s.cacheLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("qa: fetch messages: %w", err)
	}
	if len(msgs) == 0 {
		log.Info("qa: feed returned no messages, cache ready but empty")
		return nil, nil, nil
	}

	vectorized, err := s.vectorizer.EmbedMessages(ctx, msgs)
	if err != nil {
		return nil, nil, fmt.Errorf("qa: embed messages: %w", err)
	}

	log.Info("qa: cache populated",
		slog.Int("messages", len(msgs)),
	)
	return vectorized, slices.Clone(msgs), nil
}
