// Package discovery fans probes out over the configured sources and collects
// the candidates worth scoring.
package discovery

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/pkg/logger"
	"github.com/okian/viralclip/pkg/metrics"
)

// Probe outcomes used as metric labels.
const (
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeFiltered  = "filtered"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Prober reads one source. It returns model.ErrNotFound when the source has
// nothing qualifying right now.
type Prober interface {
	Probe(ctx context.Context, id string) (model.Candidate, error)
}

// kindError is implemented by probe errors that carry a failure class.
type kindError interface {
	error
	ErrorKind() string
}

// Coordinator runs probes with bounded parallelism and isolates failures.
type Coordinator struct {
	prober               Prober
	probeTimeout         time.Duration
	minViews             int64
	minConcurrentViewers int64
	log                  logger.Logger
}

// NewCoordinator creates a coordinator with configuration options.
func NewCoordinator(p Prober, opts ...Option) *Coordinator {
	c := &Coordinator{
		prober:               p,
		probeTimeout:         DefaultProbeTimeout,
		minViews:             DefaultMinViews,
		minConcurrentViewers: DefaultMinConcurrentViewers,
		log:                  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Discover probes every id with at most concurrency probes in flight and
// returns the candidates passing the thresholds. A failing probe is logged
// and skipped. The result keeps at most one candidate per video.
func (c *Coordinator) Discover(ctx context.Context, ids []string, concurrency int) ([]model.Candidate, error) {
	ids = normalize(ids)
	if len(ids) == 0 {
		return nil, ErrNoSources
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*model.Candidate, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range ids {
		g.Go(func() error {
			if cand, ok := c.probe(gctx, id); ok {
				results[i] = &cand
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(results))
	out := make([]model.Candidate, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if _, dup := seen[r.VideoID]; dup {
			continue
		}
		seen[r.VideoID] = struct{}{}
		out = append(out, *r)
	}
	return out, nil
}

func (c *Coordinator) probe(ctx context.Context, id string) (model.Candidate, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	start := time.Now()
	cand, err := c.prober.Probe(ctx, id)
	elapsed := time.Since(start).Seconds()

	switch {
	case errors.Is(err, model.ErrNotFound):
		metrics.RecordProbe(OutcomeNotFound, elapsed)
		c.log.Debug(ctx, "source has no qualifying content", logger.String("source", id))
		return model.Candidate{}, false
	case errors.Is(err, context.Canceled):
		metrics.RecordProbe(OutcomeCancelled, elapsed)
		return model.Candidate{}, false
	case err != nil:
		outcome := OutcomeError
		var ke kindError
		if errors.As(err, &ke) {
			outcome = ke.ErrorKind()
		}
		metrics.RecordProbe(outcome, elapsed)
		c.log.Warn(ctx, "probe failed",
			logger.String("source", id),
			logger.String("kind", outcome),
			logger.Error(err))
		return model.Candidate{}, false
	}

	if cand.SourceID == "" {
		cand.SourceID = model.SourceID(id)
	}
	if !c.qualifies(cand) {
		metrics.RecordProbe(OutcomeFiltered, elapsed)
		metrics.RecordCandidateBelowThreshold()
		c.log.Debug(ctx, "candidate below threshold",
			logger.String("source", id),
			logger.String("video_id", cand.VideoID),
			logger.Int64("views", cand.ViewCount),
			logger.Int64("viewers", cand.Viewers()))
		return model.Candidate{}, false
	}

	metrics.RecordProbe(OutcomeFound, elapsed)
	metrics.RecordCandidateFound()
	return cand, true
}

func (c *Coordinator) qualifies(cand model.Candidate) bool {
	if cand.VideoID == "" {
		return false
	}
	if cand.IsLive() {
		return cand.Viewers() >= c.minConcurrentViewers
	}
	return cand.ViewCount >= c.minViews
}

func normalize(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
