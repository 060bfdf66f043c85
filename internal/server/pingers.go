package server

import (
	"context"
	"fmt"
)

// feedProber is the interface FeedPinger probes. *feed.Client satisfies it.
type feedProber interface {
	// Ping checks whether the feed is reachable.
	Ping(ctx context.Context) error
}

// FeedPinger probes the upstream messages feed. It satisfies the Pinger
// interface and is used by GET /api/ready.
type FeedPinger struct {
	// feed is the messages feed client to probe.
	feed feedProber
}

// NewFeedPinger constructs a FeedPinger for the given feed client.
func NewFeedPinger(feed feedProber) *FeedPinger {
	return &FeedPinger{feed: feed}
}

// Name returns the dependency label used in readiness responses.
func (p *FeedPinger) Name() string { return "feed" }

// Ping requests a single message from the feed.
// Returns nil if the feed is reachable, or a descriptive error otherwise.
func (p *FeedPinger) Ping(ctx context.Context) error {
	if err := p.feed.Ping(ctx); err != nil {
		return fmt.Errorf("feed unreachable: %w", err)
	}
	return nil
}

// cacheProber is the interface CachePinger probes. *qa.Service satisfies it.
type cacheProber interface {
	// Ready reports whether the cache is populated.
	Ready() bool
	// Size returns the number of cached messages.
	Size() int
}

// CachePinger reports whether the vectorized message cache is populated.
// Wire it into /api/ready only when the cache is warmed at startup, otherwise
// the service never reports ready until the first question arrives.
type CachePinger struct {
	// svc is the answer service whose cache is inspected.
	svc cacheProber
}

// NewCachePinger constructs a CachePinger for the given service.
func NewCachePinger(svc cacheProber) *CachePinger {
	return &CachePinger{svc: svc}
}

// Name returns the dependency label used in readiness responses.
func (p *CachePinger) Name() string { return "cache" }

// Ping returns nil when the cache holds a populated corpus.
func (p *CachePinger) Ping(_ context.Context) error {
	if !p.svc.Ready() {
		return fmt.Errorf("cache not populated")
	}
	return nil
}
