package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newFeedServer starts an httptest server that responds to GET /messages with
// the given handler and returns a Client pointed at it.
func newFeedServer(t *testing.T, cfg *Config, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if cfg == nil {
		cfg = &Config{}
	}
	cfg.BaseURL = srv.URL
	return NewClient(cfg)
}

func TestFetch_HappyPath(t *testing.T) {
	t.Parallel()

	c := newFeedServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path: want /messages, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "25" {
			t.Errorf("limit param: want 25, got %s", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept header: want application/json, got %s", got)
		}
		fmt.Fprint(w, `{"items":[
			{"id":"1","user_id":"u1","user_name":"Amira","timestamp":"2025-03-14T09:26:53Z","message":"hello"},
			{"id":"2","user_id":"u2","user_name":"Ben","timestamp":"2025-03-14T10:00:00+02:00","message":"hi"}
		]}`)
	})

	msgs, err := c.Fetch(context.Background(), 25)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "1" || msgs[0].UserName != "Amira" || msgs[0].Body != "hello" {
		t.Errorf("message 0 parsed wrong: %+v", msgs[0])
	}
	if _, offset := msgs[1].Timestamp.Zone(); offset != 2*60*60 {
		t.Errorf("message 1: timestamp offset lost, got %d", offset)
	}
}

// TestFetch_SkipsMalformedRecords verifies that items with missing or
// unparseable timestamps are dropped while the rest of the batch survives.
func TestFetch_SkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	c := newFeedServer(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"items":[
			{"id":"good","user_id":"u1","user_name":"A","timestamp":"2025-03-14T09:26:53Z","message":"ok"},
			{"id":"no-ts","user_id":"u2","user_name":"B","message":"missing timestamp"},
			{"id":"bad-ts","user_id":"u3","user_name":"C","timestamp":"yesterday","message":"bad timestamp"},
			{"id":"good2","user_id":"u4","user_name":"D","timestamp":"2025-03-15T09:00:00Z","message":"ok too"}
		]}`)
	})

	msgs, err := c.Fetch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want 2 surviving messages, got %d", len(msgs))
	}
	if msgs[0].ID != "good" || msgs[1].ID != "good2" {
		t.Errorf("wrong survivors: %s, %s", msgs[0].ID, msgs[1].ID)
	}
}

func TestFetch_StatusError(t *testing.T) {
	t.Parallel()

	c := newFeedServer(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Fetch(context.Background(), 10)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: want 500, got %d", se.StatusCode)
	}
}

// TestFetch_FallbackOnConfiguredStatus verifies the fallback policy: a 405
// on a large request is retried exactly once with the fallback limit.
func TestFetch_FallbackOnConfiguredStatus(t *testing.T) {
	t.Parallel()

	var limits []string
	c := newFeedServer(t, &Config{Fallback: DefaultFallbackPolicy()}, func(w http.ResponseWriter, r *http.Request) {
		limit := r.URL.Query().Get("limit")
		limits = append(limits, limit)
		if limit != "50" {
			http.Error(w, "page too large", http.StatusMethodNotAllowed)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"1","user_id":"u","user_name":"A","timestamp":"2025-01-01T00:00:00Z","message":"m"}]}`)
	})

	msgs, err := c.Fetch(context.Background(), 200)
	if err != nil {
		t.Fatalf("Fetch with fallback: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("want 1 message from fallback request, got %d", len(msgs))
	}
	if len(limits) != 2 || limits[0] != "200" || limits[1] != "50" {
		t.Errorf("want requests [200 50], got %v", limits)
	}
}

// TestFetch_NoFallbackBelowThreshold verifies the fallback never fires when
// the original request already asked for <= the fallback limit.
func TestFetch_NoFallbackBelowThreshold(t *testing.T) {
	t.Parallel()

	calls := 0
	c := newFeedServer(t, &Config{Fallback: DefaultFallbackPolicy()}, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "denied", http.StatusUnauthorized)
	})

	_, err := c.Fetch(context.Background(), 50)
	if err == nil {
		t.Fatal("want error, got nil")
	}
	if calls != 1 {
		t.Errorf("want exactly 1 request (no fallback), got %d", calls)
	}
}

// TestFetch_NoFallbackOnOtherStatus verifies only the configured status codes
// trigger the fallback.
func TestFetch_NoFallbackOnOtherStatus(t *testing.T) {
	t.Parallel()

	calls := 0
	c := newFeedServer(t, &Config{Fallback: DefaultFallbackPolicy()}, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "gone", http.StatusBadGateway)
	})

	_, err := c.Fetch(context.Background(), 200)
	if err == nil {
		t.Fatal("want error, got nil")
	}
	if calls != 1 {
		t.Errorf("want exactly 1 request, got %d", calls)
	}
}

func TestFetch_SendsBearerToken(t *testing.T) {
	t.Parallel()

	c := newFeedServer(t, &Config{APIKey: "feed-secret"}, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer feed-secret" {
			t.Errorf("Authorization header: want Bearer feed-secret, got %q", got)
		}
		fmt.Fprint(w, `{"items":[]}`)
	})

	if _, err := c.Fetch(context.Background(), 10); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	c := newFeedServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("ping limit: want 1, got %s", got)
		}
		fmt.Fprint(w, `{"items":[]}`)
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	down := newFeedServer(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	if err := down.Ping(context.Background()); err == nil {
		t.Error("want error from unhealthy feed, got nil")
	}
}

func TestFetch_DefaultLimit(t *testing.T) {
	t.Parallel()

	c := newFeedServer(t, &Config{Limit: 75, Timeout: time.Second}, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "75" {
			t.Errorf("limit param: want configured default 75, got %s", got)
		}
		fmt.Fprint(w, `{"items":[]}`)
	})

	msgs, err := c.Fetch(context.Background(), 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("want empty batch, got %d", len(msgs))
	}
}
