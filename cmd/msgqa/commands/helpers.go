package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/msgqa-go/internal/answer"
	"github.com/54b3r/msgqa-go/internal/embedder"
	"github.com/54b3r/msgqa-go/internal/feed"
	"github.com/54b3r/msgqa-go/internal/provider"
	"github.com/54b3r/msgqa-go/internal/qa"
	"github.com/54b3r/msgqa-go/internal/retrieval"
	"github.com/54b3r/msgqa-go/internal/store"
)

// buildFeedClient constructs the messages feed client from environment
// configuration. MESSAGES_API_URL is required; everything else has defaults.
func buildFeedClient() (*feed.Client, error) {
	baseURL := os.Getenv("MESSAGES_API_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("MESSAGES_API_URL is required — set it to the messages API base URL")
	}

	return feed.NewClient(&feed.Config{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   os.Getenv("MESSAGES_API_KEY"),
		Skip:     envInt("MESSAGES_API_SKIP", 0),
		Limit:    envInt("MESSAGES_API_LIMIT", 0),
		Timeout:  time.Duration(envInt("MESSAGES_API_TIMEOUT", 0)) * time.Second,
		Fallback: feed.DefaultFallbackPolicy(),
	}), nil
}

// buildService wires the feed client, embedder, vectorizer, chat model, and
// answer generator into a qa.Service from environment configuration.
func buildService(ctx context.Context, log *slog.Logger) (*qa.Service, *feed.Client, error) {
	feedClient, err := buildFeedClient()
	if err != nil {
		return nil, nil, err
	}

	// Fail fast on embedding misconfiguration before any network calls.
	if err := embedder.Validate(log); err != nil {
		return nil, nil, fmt.Errorf("embedding config: %w", err)
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("initialise embedder: %w", err)
	}
	vectorizer, err := retrieval.NewVectorizer(emb, envInt("EMBEDDING_BATCH_SIZE", 0))
	if err != nil {
		return nil, nil, fmt.Errorf("initialise vectorizer: %w", err)
	}

	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise model provider: %w", err)
	}
	generator, err := answer.NewGenerator(chatModel)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise answer generator: %w", err)
	}

	svc, err := qa.NewService(&qa.Config{
		Source:     feedClient,
		Vectorizer: vectorizer,
		Generator:  generator,
		TopK:       envInt("RETRIEVAL_TOP_K", 0),
		CacheLimit: envInt("MESSAGES_API_LIMIT", 0),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialise qa service: %w", err)
	}
	return svc, feedClient, nil
}

// parseEffort converts the --reasoning-effort flag into answer options.
// An empty flag yields nil options (provider default behaviour).
func parseEffort(effort string) (*answer.Options, error) {
	if effort == "" {
		return nil, nil
	}
	e := answer.Effort(effort)
	if !e.Valid() {
		return nil, fmt.Errorf("invalid --reasoning-effort %q: must be one of minimal, low, medium, high", effort)
	}
	return &answer.Options{ReasoningEffort: e}, nil
}

// recordHistory appends an answered question to the local history database.
// Best-effort: failures are logged, never returned.
func recordHistory(ctx context.Context, log *slog.Logger, question, answerText string, sourcesUsed int) {
	dbPath := os.Getenv("MSGQA_HISTORY_DB")
	if dbPath == "disabled" {
		return
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path", slog.Any("error", err))
			return
		}
	}
	s, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store", slog.Any("error", err))
		return
	}
	defer s.Close()
	if err := s.Append(ctx, question, answerText, sourcesUsed); err != nil {
		log.Warn("history: append failed", slog.Any("error", err))
	}
}

// envInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
