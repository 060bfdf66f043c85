package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/msgqa-go/internal/answer"
	"github.com/54b3r/msgqa-go/internal/logging"
)

// handleAsk handles GET /api/ask. The question arrives as the "question"
// query parameter; an optional "reasoning_effort" parameter is forwarded to
// the answer generator. The first request after startup (or after the cache
// is invalidated) also pays for the fetch-and-embed cycle, so this handler
// runs under the configured AskTimeout rather than a per-route constant.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	question := normalizeQuestion(r.URL.Query().Get("question"))
	if question == "" {
		s.metrics.askRequestsTotal.WithLabelValues(outcomeBadRequest).Inc()
		http.Error(w, "question must not be empty", http.StatusBadRequest)
		return
	}

	var opts *answer.Options
	if effort := r.URL.Query().Get("reasoning_effort"); effort != "" {
		e := answer.Effort(effort)
		if !e.Valid() {
			s.metrics.askRequestsTotal.WithLabelValues(outcomeBadRequest).Inc()
			http.Error(w, "invalid reasoning_effort: must be one of minimal, low, medium, high", http.StatusBadRequest)
			return
		}
		opts = &answer.Options{ReasoningEffort: e}
	}

	ctx, cancel := timeoutContext(r, s.cfg.AskTimeout)
	defer cancel()

	text, sourcesUsed, err := s.svc.Answer(ctx, question, opts)
	elapsed := time.Since(start)
	s.metrics.cacheSize.Set(float64(s.svc.Size()))
	if err != nil {
		s.metrics.askRequestsTotal.WithLabelValues(outcomeError).Inc()
		s.metrics.askDurationSeconds.WithLabelValues(outcomeError).Observe(elapsed.Seconds())
		log.Error("ask failed", slog.Any("error", err))
		http.Error(w, "upstream error: "+err.Error(), http.StatusBadGateway)
		return
	}

	s.metrics.askRequestsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcomeOK).Observe(elapsed.Seconds())

	if s.history != nil {
		// History is best-effort: a persistence failure never fails the request.
		if err := s.history.Append(ctx, question, text, sourcesUsed); err != nil {
			log.Warn("history append failed", slog.Any("error", err))
		}
	}

	log.Info("question answered",
		slog.Int("sources_used", sourcesUsed),
		slog.Duration("duration", elapsed),
	)
	writeJSON(w, http.StatusOK, askResponse{Answer: text, SourcesUsed: sourcesUsed})
}

// normalizeQuestion trims whitespace and strips one pair of matching
// surrounding quotes, so questions pasted with shell quoting still work.
func normalizeQuestion(q string) string {
	q = strings.TrimSpace(q)
	if len(q) >= 2 {
		first, last := q[0], q[len(q)-1]
		if first == last && (first == '"' || first == '\'') {
			q = strings.TrimSpace(q[1 : len(q)-1])
		}
	}
	return q
}
