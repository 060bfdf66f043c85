package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/msgqa-go/internal/logging"
	"github.com/54b3r/msgqa-go/internal/server"
	"github.com/54b3r/msgqa-go/internal/store"
	"github.com/54b3r/msgqa-go/internal/tracing"
)

// NewServeCmd constructs the `msgqa serve` command, which starts the HTTP
// server exposing the question-answering API and the web UI.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var warm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the msgqa HTTP server and web UI",
		Long: `Start the msgqa HTTP server on localhost.

The server exposes GET /api/ask for questions, GET /api/messages for the
cached corpus, and POST /api/warm to (re)populate the message cache. With
--warm the cache is populated before the server accepts traffic, so the
first question does not pay the fetch-and-embed cost.

Examples:
  msgqa serve
  msgqa serve --port 9090 --warm
  MODEL_PROVIDER=azure msgqa serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			svc, feedClient, err := buildService(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			// Open the question/answer history store. MSGQA_HISTORY_DB overrides
			// the default path (~/.msgqa/history.db). Set to "disabled" to disable.
			var historyStore store.HistoryStore
			dbPath := os.Getenv("MSGQA_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via MSGQA_HISTORY_DB=disabled")
			}

			pingers := []server.Pinger{server.NewFeedPinger(feedClient)}
			if warm {
				if err := svc.WarmCache(ctx, false); err != nil {
					return fmt.Errorf("serve: warm cache: %w", err)
				}
				log.Info("cache warmed", slog.Int("messages", svc.Size()))
				// Only gate readiness on the cache when it was warmed up front.
				pingers = append(pingers, server.NewCachePinger(svc))
			}

			srv, err := server.New(svc, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("MSGQA_API_KEY"),
				History: historyStore,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")
	cmd.Flags().BoolVar(&warm, "warm", false, "Populate the message cache before accepting traffic")

	return cmd
}
