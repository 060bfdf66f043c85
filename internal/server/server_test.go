package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/msgqa-go/internal/answer"
	"github.com/54b3r/msgqa-go/internal/feed"
	"github.com/54b3r/msgqa-go/internal/store"
)

// ---------------------------------------------------------------------------
// Fake answer service shared by handler tests
// ---------------------------------------------------------------------------

// fakeService is a test double for the answerService interface. It records
// the arguments of the last call so tests can assert on them.
type fakeService struct {
	// answer, sources, and answerErr are returned by Answer.
	answer    string
	sources   int
	answerErr error
	// msgs and msgsErr are returned by CachedMessages.
	msgs    []feed.Message
	msgsErr error
	// warmErr is returned by WarmCache.
	warmErr error
	// size and ready are returned by Size and Ready.
	size  int
	ready bool

	// lastQuestion and lastOpts capture the most recent Answer call.
	lastQuestion string
	lastOpts     *answer.Options
	// answerCalls counts Answer invocations.
	answerCalls int
	// warmCalls counts WarmCache invocations; lastForce is its last force flag.
	warmCalls int
	lastForce bool
}

func (f *fakeService) Answer(_ context.Context, question string, opts *answer.Options) (string, int, error) {
	f.answerCalls++
	f.lastQuestion = question
	f.lastOpts = opts
	return f.answer, f.sources, f.answerErr
}

func (f *fakeService) CachedMessages(_ context.Context) ([]feed.Message, error) {
	return f.msgs, f.msgsErr
}

func (f *fakeService) WarmCache(_ context.Context, force bool) error {
	f.warmCalls++
	f.lastForce = force
	return f.warmErr
}

func (f *fakeService) Size() int   { return f.size }
func (f *fakeService) Ready() bool { return f.ready }

// fakeHistory records Append calls for history persistence tests.
type fakeHistory struct {
	// appends holds one entry per Append call.
	appends []historyEntry
	// err is returned by Append; nil means success.
	err error
}

type historyEntry struct {
	question    string
	answer      string
	sourcesUsed int
}

func (f *fakeHistory) Append(_ context.Context, question, answer string, sourcesUsed int) error {
	f.appends = append(f.appends, historyEntry{question, answer, sourcesUsed})
	return f.err
}

func (f *fakeHistory) Recent(_ context.Context, _ int) ([]store.Record, error) { return nil, nil }
func (f *fakeHistory) Close() error                                            { return nil }

// newTestServer builds a *Server around the given fakeService with an
// isolated metrics registry. svc may be nil for handlers that never touch it.
func newTestServer(svcs ...*fakeService) *Server {
	svc := &fakeService{}
	if len(svcs) > 0 {
		svc = svcs[0]
	}
	return &Server{
		svc:     svc,
		cfg:     &Config{AskTimeout: time.Minute},
		log:     slog.Default(),
		metrics: newServerMetrics(prometheus.NewRegistry()),
	}
}
