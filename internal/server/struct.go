package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/msgqa-go/internal/answer"
	"github.com/54b3r/msgqa-go/internal/feed"
	"github.com/54b3r/msgqa-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// AskTimeout bounds a single /api/ask request, including a cold-cache
	// population cycle. Defaults to 2 minutes if zero.
	AskTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// History persists answered questions. Nil disables persistence.
	History store.HistoryStore
	// MetricsRegistry receives the server's Prometheus metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs the GET /metrics endpoint. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
	// StaticDir is the directory served at "/" (default: ui/static).
	StaticDir string
}

// answerService is the interface the handlers call to answer questions and
// inspect the cache. *qa.Service satisfies it; tests inject a fake.
type answerService interface {
	// Answer answers question against the cached corpus and reports how many
	// messages were used as context.
	Answer(ctx context.Context, question string, opts *answer.Options) (string, int, error)
	// CachedMessages returns a copy of the cached corpus, populating it first
	// if needed.
	CachedMessages(ctx context.Context) ([]feed.Message, error)
	// WarmCache populates the cache; force repopulates even when ready.
	WarmCache(ctx context.Context, force bool) error
	// Size returns the number of cached messages.
	Size() int
	// Ready reports whether the cache is populated.
	Ready() bool
}

// Server is the HTTP server that exposes the question-answering service.
type Server struct {
	// svc answers questions and owns the message cache.
	svc answerService
	// history persists answered questions; nil disables persistence.
	history store.HistoryStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askResponse is the JSON response for GET /api/ask.
type askResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// SourcesUsed is the number of member messages used as context.
	SourcesUsed int `json:"sources_used"`
}

// messageItem is one entry in the GET /api/messages response.
type messageItem struct {
	// ID is the upstream message identifier.
	ID string `json:"id"`
	// UserID is the upstream author identifier.
	UserID string `json:"user_id"`
	// UserName is the author's display name.
	UserName string `json:"user_name"`
	// Timestamp is the creation time in RFC 3339.
	Timestamp string `json:"timestamp"`
	// Message is the message text.
	Message string `json:"message"`
}

// messagesResponse is the JSON response for GET /api/messages.
type messagesResponse struct {
	// Items is the cached corpus in feed order.
	Items []messageItem `json:"items"`
}

// warmResponse is the JSON response for POST /api/warm.
type warmResponse struct {
	// Status is "ok" on success.
	Status string `json:"status"`
	// Cached is the number of messages in the cache after warming.
	Cached int `json:"cached"`
}
