// Package feed provides the HTTP client for the upstream member-messages API.
// It is the only component that knows the wire shape of the feed; everything
// downstream consumes the parsed [Message] value.
//
// The client either returns a fully parsed batch or fails — there is no
// partial success at the call level. Individual malformed items inside an
// otherwise valid response are skipped so one bad record cannot poison the
// whole corpus.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/54b3r/msgqa-go/internal/logging"
)

// Message is a single member message as retrieved from the upstream feed.
// Messages are immutable once parsed; the cache replaces whole collections
// rather than mutating entries in place.
type Message struct {
	// ID is the upstream identifier of the message.
	ID string
	// UserID is the upstream identifier of the author.
	UserID string
	// UserName is the author's display name.
	UserName string
	// Timestamp is the creation time. The wire format must carry an explicit
	// UTC offset; messages without one are rejected as malformed.
	Timestamp time.Time
	// Body is the message text.
	Body string
}

// StatusError is returned when the feed responds with a non-2xx status code.
type StatusError struct {
	// StatusCode is the HTTP status returned by the feed.
	StatusCode int
	// URL is the request URL that produced the error.
	URL string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("feed: %s returned HTTP %d", e.URL, e.StatusCode)
}

// FallbackPolicy describes the adapter-level retry behaviour for specific
// HTTP status codes. Some deployments of the feed reject large page sizes
// with 401/405 rather than 400; when that happens the client retries once
// with FallbackLimit. The policy lives here, at the boundary, so the rest of
// the system sees a fetch that either succeeds with records or fails.
type FallbackPolicy struct {
	// Statuses is the set of HTTP status codes that trigger the fallback.
	Statuses map[int]bool
	// FallbackLimit is the reduced page size used for the single retry.
	// The fallback only fires when the original request asked for more.
	FallbackLimit int
}

// DefaultFallbackPolicy returns the policy observed in production: 401 and
// 405 responses to requests with limit > 50 are retried once at limit 50.
func DefaultFallbackPolicy() *FallbackPolicy {
	return &FallbackPolicy{
		Statuses:      map[int]bool{http.StatusUnauthorized: true, http.StatusMethodNotAllowed: true},
		FallbackLimit: 50,
	}
}

// applies reports whether the policy should fire for the given status code
// and originally requested limit.
func (p *FallbackPolicy) applies(status, limit int) bool {
	if p == nil {
		return false
	}
	return p.Statuses[status] && limit > p.FallbackLimit
}

// Config holds the settings for constructing a [Client].
type Config struct {
	// BaseURL is the feed base URL (e.g. "https://feed.example.com").
	BaseURL string
	// Skip is the number of messages to skip from the top of the feed.
	Skip int
	// Limit is the default page size when Fetch is called with limit <= 0.
	Limit int
	// Timeout is the per-request HTTP timeout. Defaults to 10s if zero.
	Timeout time.Duration
	// APIKey is sent as a Bearer token when non-empty.
	APIKey string
	// Fallback is the status-code fallback policy. Nil disables fallback.
	Fallback *FallbackPolicy
}

// Client fetches member messages from the upstream feed. It is safe for
// concurrent use.
type Client struct {
	// baseURL is the feed base URL without a trailing slash.
	baseURL string
	// skip is the number of messages to skip from the top.
	skip int
	// limit is the default page size.
	limit int
	// apiKey is the Bearer token for the feed, empty when unauthenticated.
	apiKey string
	// fallback is the status-code fallback policy (may be nil).
	fallback *FallbackPolicy
	// client is the shared HTTP client with a request timeout.
	client *http.Client
}

// NewClient constructs a Client from the given config.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 200
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		skip:     cfg.Skip,
		limit:    limit,
		apiKey:   cfg.APIKey,
		fallback: cfg.Fallback,
		client:   &http.Client{Timeout: timeout},
	}
}

// feedItem is one raw entry in the feed response.
type feedItem struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// feedResponse is the JSON body returned by GET /messages.
type feedResponse struct {
	Items []feedItem `json:"items"`
}

// Fetch retrieves up to limit messages from the feed, in feed order.
// A limit <= 0 uses the configured default. Malformed items are skipped
// (with a debug log) rather than failing the batch; transport errors and
// non-2xx statuses fail the whole call.
func (c *Client) Fetch(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = c.limit
	}

	body, err := c.get(ctx, limit)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && c.fallback.applies(se.StatusCode, limit) {
			body, err = c.get(ctx, c.fallback.FallbackLimit)
		}
		if err != nil {
			return nil, err
		}
	}

	log := logging.FromContext(ctx)
	records := make([]Message, 0, len(body.Items))
	for _, item := range body.Items {
		msg, err := parseItem(item)
		if err != nil {
			// One bad record must not abort the batch.
			log.Debug("feed: skipping malformed record",
				slog.String("id", item.ID),
				slog.Any("error", err),
			)
			continue
		}
		records = append(records, msg)
	}

	return records, nil
}

// Ping checks that the feed is reachable by requesting a single message.
// Returns nil on success, a descriptive error on failure.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.get(ctx, 1); err != nil {
		return err
	}
	return nil
}

// get issues a single GET /messages request with the given limit and decodes
// the response body.
func (c *Client) get(ctx context.Context, limit int) (*feedResponse, error) {
	u := c.baseURL + "/messages?" + url.Values{
		"skip":  {strconv.Itoa(c.skip)},
		"limit": {strconv.Itoa(limit)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u}
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("feed: decode response: %w", err)
	}

	return &body, nil
}

// parseItem converts a raw feed item into a Message. The timestamp must be
// RFC 3339 with an explicit offset; a trailing "Z" is accepted as UTC.
func parseItem(item feedItem) (Message, error) {
	if item.Timestamp == "" {
		return Message{}, fmt.Errorf("feed: message %q has no timestamp", item.ID)
	}
	ts, err := time.Parse(time.RFC3339, item.Timestamp)
	if err != nil {
		return Message{}, fmt.Errorf("feed: message %q has invalid timestamp: %w", item.ID, err)
	}
	return Message{
		ID:        item.ID,
		UserID:    item.UserID,
		UserName:  item.UserName,
		Timestamp: ts,
		Body:      item.Message,
	}, nil
}
