package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/54b3r/msgqa-go/internal/logging"
)

// handleMessages handles GET /api/messages. It returns the cached member
// messages in feed order, populating the cache first if needed. An optional
// "?limit=" truncates the snapshot.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	ctx, cancel := timeoutContext(r, s.cfg.AskTimeout)
	defer cancel()

	msgs, err := s.svc.CachedMessages(ctx)
	s.metrics.cacheSize.Set(float64(s.svc.Size()))
	if err != nil {
		log.Error("messages fetch failed", slog.Any("error", err))
		http.Error(w, "upstream error: "+err.Error(), http.StatusBadGateway)
		return
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		if limit < len(msgs) {
			msgs = msgs[:limit]
		}
	}

	resp := messagesResponse{Items: make([]messageItem, len(msgs))}
	for i, m := range msgs {
		resp.Items[i] = messageItem{
			ID:        m.ID,
			UserID:    m.UserID,
			UserName:  m.UserName,
			Timestamp: m.Timestamp.Format(time.RFC3339),
			Message:   m.Body,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWarm handles POST /api/warm. It populates the cache before the first
// question arrives; "?force=true" discards the current cache and repopulates
// even when it is already ready.
func (s *Server) handleWarm(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	force := r.URL.Query().Get("force") == "true"

	ctx, cancel := timeoutContext(r, s.cfg.AskTimeout)
	defer cancel()

	err := s.svc.WarmCache(ctx, force)
	s.metrics.cacheSize.Set(float64(s.svc.Size()))
	if err != nil {
		s.metrics.cacheWarmTotal.WithLabelValues(outcomeError).Inc()
		log.Error("cache warm failed", slog.Any("error", err), slog.Bool("force", force))
		http.Error(w, "upstream error: "+err.Error(), http.StatusBadGateway)
		return
	}

	s.metrics.cacheWarmTotal.WithLabelValues(outcomeOK).Inc()
	log.Info("cache warmed", slog.Int("cached", s.svc.Size()), slog.Bool("force", force))
	writeJSON(w, http.StatusOK, warmResponse{Status: "ok", Cached: s.svc.Size()})
}

// timeoutContext derives a context from the request bounded by d.
func timeoutContext(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
