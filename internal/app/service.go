// Package service runs discovery-to-publish cycles: it discovers candidates,
// ranks them, skips what the ledger has already seen and hands the rest to
// clip workers that render, schedule and publish one clip each.
package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/viralclip/internal/domain/dedupe"
	"github.com/okian/viralclip/internal/domain/metadata"
	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/internal/domain/moment"
	"github.com/okian/viralclip/internal/domain/pipeline"
	"github.com/okian/viralclip/internal/domain/scoring"
	"github.com/okian/viralclip/pkg/logger"
)

// Default service configuration constants.
const (
	defaultConcurrency   = 4
	defaultMaxCandidates = 5
	defaultClipWorkers   = 1
	defaultQueueSize     = 16
	defaultRecordRetries = 3
	defaultRecordDelay   = 500 * time.Millisecond
	maxRecordRetryDelay  = 10 * time.Second
	defaultDrainTimeout  = 30 * time.Second
)

// Discoverer finds qualifying candidates among source ids.
type Discoverer interface {
	Discover(ctx context.Context, ids []string, concurrency int) ([]model.Candidate, error)
}

// SignalSource fetches a video's engagement signal.
type SignalSource interface {
	Signal(ctx context.Context, videoID string) (model.EngagementSignal, error)
}

// Renderer turns a clip spec into a publishable file.
type Renderer interface {
	Run(ctx context.Context, clip model.ClipSpec) (*pipeline.Result, error)
}

// ChannelStats reports a channel's subscriber count; -1 means hidden.
type ChannelStats interface {
	SubscriberCount(ctx context.Context, channelID string) (int64, error)
}

// Publisher uploads a rendered file and returns its external id.
type Publisher interface {
	Publish(ctx context.Context, path string, md model.VideoMetadata) (string, error)
}

// Collaborators groups what a Service drives. Channels may be nil, in which
// case credits omit the subscriber count.
type Collaborators struct {
	Discoverer Discoverer
	Signals    SignalSource
	Renderer   Renderer
	Channels   ChannelStats
	Publisher  Publisher
	Ledger     dedupe.Ledger
}

// Service orchestrates cycles. RunCycle calls are serialized.
type Service struct {
	deps Collaborators

	sources            []string
	concurrency        int
	maxCandidates      int
	clipWorkers        int
	queueSize          int
	slots              []model.PublishSlot
	publishOnePerCycle bool
	requireCandidates  bool
	keepUnpublished    bool
	cycleInterval      time.Duration
	recordRetries      int
	recordRetryDelay   time.Duration
	drainTimeout       time.Duration

	scorer   *scoring.Scorer
	selector *moment.Selector
	builder  *metadata.Builder

	now   func() time.Time
	rngMu sync.Mutex
	rng   *rand.Rand

	cycleMu sync.Mutex

	// lifeMu guards stopping; triggered cycles join inflight only while
	// the service is not stopping.
	lifeMu   sync.Mutex
	stopping bool
	inflight sync.WaitGroup

	statsMu sync.RWMutex
	stats   stats

	logger logger.Logger
}

type stats struct {
	cycles    int64
	published int64
	failed    int64
	processed int64
	jobFails  int64
	running   bool
	last      *CycleReport
}

// New constructs a Service around its collaborators.
func New(deps Collaborators, opts ...Option) *Service {
	s := &Service{
		deps:               deps,
		concurrency:        defaultConcurrency,
		maxCandidates:      defaultMaxCandidates,
		clipWorkers:        defaultClipWorkers,
		queueSize:          defaultQueueSize,
		publishOnePerCycle: true,
		recordRetries:      defaultRecordRetries,
		recordRetryDelay:   defaultRecordDelay,
		drainTimeout:       defaultDrainTimeout,
		scorer:             scoring.NewScorer(),
		selector:           moment.NewSelector(),
		builder:            metadata.NewBuilder(),
		now:                time.Now,
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // publish jitter, not security
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("service")
	return s
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()

	out := map[string]interface{}{
		"sources":       len(s.sources),
		"clipWorkers":   s.clipWorkers,
		"maxCandidates": s.maxCandidates,
		"cycles":        s.stats.cycles,
		"published":     s.stats.published,
		"failed":        s.stats.failed,
		"jobsProcessed": s.stats.processed,
		"jobsFailed":    s.stats.jobFails,
		"running":       s.stats.running,
	}
	if s.deps.Ledger != nil {
		if n, err := s.deps.Ledger.Size(context.Background()); err == nil {
			out["ledgerSize"] = n
		}
	}
	if last := s.stats.last; last != nil {
		out["lastCycle"] = map[string]interface{}{
			"id":         last.CycleID,
			"startedAt":  last.StartedAt,
			"duration":   last.Duration.String(),
			"discovered": last.Discovered,
			"skipped":    len(last.SkippedSeen),
			"attempted":  last.Attempted,
			"published":  len(last.Published),
			"failures":   len(last.Failures),
			"processed":  last.JobsProcessed,
			"jobsFailed": last.JobsFailed,
		}
	}
	return out
}
