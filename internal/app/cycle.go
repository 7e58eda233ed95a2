package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/viralclip/internal/adapters/mq/queue"
	"github.com/okian/viralclip/internal/adapters/mq/worker"
	"github.com/okian/viralclip/internal/domain/discovery"
	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/internal/domain/schedule"
	"github.com/okian/viralclip/pkg/logger"
	"github.com/okian/viralclip/pkg/metrics"
)

// Cycle outcomes recorded in metrics.
const (
	CycleOK    = "ok"
	CycleEmpty = "empty"
	CycleError = "error"
)

// CycleReport summarizes one discovery-to-publish cycle.
type CycleReport struct {
	CycleID    string
	StartedAt  time.Time
	Duration   time.Duration
	Discovered int
	// Ranked holds the candidates handed to clip workers, best first.
	Ranked      []model.ScoredCandidate
	SkippedSeen []string
	Attempted   int
	Published   []model.PublishRecord
	Failures    []CandidateFailure
	// JobsProcessed and JobsFailed count queue jobs seen by the worker pool.
	JobsProcessed int64
	JobsFailed    int64
}

// CandidateFailure is one candidate abandoned during a cycle.
type CandidateFailure struct {
	VideoID string
	Err     error
}

// cycleState is shared by the workers of one cycle.
type cycleState struct {
	mu        sync.Mutex
	report    *CycleReport
	published atomic.Bool
	onlyOne   bool
}

func (c *cycleState) attempt() {
	c.mu.Lock()
	c.report.Attempted++
	c.mu.Unlock()
}

func (c *cycleState) fail(videoID string, err error) {
	c.mu.Lock()
	c.report.Failures = append(c.report.Failures, CandidateFailure{VideoID: videoID, Err: err})
	c.mu.Unlock()
}

func (c *cycleState) succeed(rec model.PublishRecord) {
	c.mu.Lock()
	c.report.Published = append(c.report.Published, rec)
	c.mu.Unlock()
	c.published.Store(true)
}

// RunCycle runs one discovery-to-publish cycle. Per-candidate failures are
// reported in the CycleReport; only configuration-level problems (no sources,
// no publish slots) and cancellation return an error.
func (s *Service) RunCycle(ctx context.Context) (CycleReport, error) {
	if !s.cycleMu.TryLock() {
		return CycleReport{}, ErrCycleRunning
	}
	defer s.cycleMu.Unlock()
	return s.cycle(ctx)
}

// Trigger starts a cycle in the background and returns immediately. It
// returns ErrCycleRunning when a cycle is already in flight and ErrStopping
// once Drain has been called.
func (s *Service) Trigger(ctx context.Context) error {
	if !s.cycleMu.TryLock() {
		return ErrCycleRunning
	}
	s.lifeMu.Lock()
	if s.stopping {
		s.lifeMu.Unlock()
		s.cycleMu.Unlock()
		return ErrStopping
	}
	s.inflight.Add(1)
	s.lifeMu.Unlock()

	go func() {
		defer s.inflight.Done()
		defer s.cycleMu.Unlock()
		_, _ = s.cycle(ctx)
	}()
	return nil
}

// Drain stops accepting triggered cycles and waits for the one in flight,
// if any, until ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	s.lifeMu.Lock()
	s.stopping = true
	s.lifeMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain: %w", ctx.Err())
	}
}

func (s *Service) cycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{CycleID: uuid.NewString(), StartedAt: s.now()}
	log := s.logger.With(logger.String("cycle_id", report.CycleID))
	s.setRunning(true)

	err := s.runCycle(ctx, log, &report)
	report.Duration = s.now().Sub(report.StartedAt)

	outcome := CycleOK
	switch {
	case err != nil:
		outcome = CycleError
	case len(report.Ranked) == 0:
		outcome = CycleEmpty
	}
	metrics.RecordCycle(outcome, report.Duration.Seconds())
	s.finish(&report)

	if err != nil {
		log.Error(ctx, "cycle failed", logger.Error(err))
		return report, err
	}
	log.Info(ctx, "cycle complete",
		logger.Int("discovered", report.Discovered),
		logger.Int("skipped_seen", len(report.SkippedSeen)),
		logger.Int("attempted", report.Attempted),
		logger.Int("published", len(report.Published)),
		logger.Int("failed", len(report.Failures)),
		logger.Duration("duration", report.Duration))
	return report, nil
}

func (s *Service) runCycle(ctx context.Context, log logger.Logger, report *CycleReport) error {
	if s.deps.Ledger == nil {
		return ErrNoLedger
	}
	// A cycle that could never schedule a publish is a configuration error.
	if err := s.checkSlots(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	found, err := s.deps.Discoverer.Discover(ctx, s.sources, s.concurrency)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	report.Discovered = len(found)

	ranked, skipped, err := s.eligible(ctx, s.scorer.Rank(found, report.StartedAt))
	if err != nil {
		return err
	}
	report.SkippedSeen = skipped
	if s.maxCandidates > 0 && len(ranked) > s.maxCandidates {
		ranked = ranked[:s.maxCandidates]
	}
	report.Ranked = ranked

	if len(ranked) == 0 {
		log.Info(ctx, "no eligible candidates this cycle")
		if s.requireCandidates {
			return discovery.ErrNoCandidates
		}
		return nil
	}
	for _, c := range ranked {
		log.Debug(ctx, "candidate",
			logger.Int("rank", c.Rank),
			logger.String("video_id", c.VideoID),
			logger.Float64("score", c.Score))
	}

	return s.dispatch(ctx, log, report)
}

func (s *Service) checkSlots() error {
	if len(s.slots) == 0 {
		return schedule.ErrNoSlots
	}
	for _, slot := range s.slots {
		if err := schedule.Validate(slot); err != nil {
			return err
		}
	}
	return nil
}

// eligible drops candidates the ledger has already seen, keeping rank order.
func (s *Service) eligible(ctx context.Context, ranked []model.ScoredCandidate) ([]model.ScoredCandidate, []string, error) {
	out := make([]model.ScoredCandidate, 0, len(ranked))
	var skipped []string
	for _, c := range ranked {
		seen, err := s.deps.Ledger.Seen(ctx, c.VideoID)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger lookup %s: %w", c.VideoID, err)
		}
		if seen {
			metrics.RecordCandidateDuplicate()
			skipped = append(skipped, c.VideoID)
			continue
		}
		out = append(out, c)
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, skipped, nil
}

// dispatch fills the clip queue and lets a worker pool drain it.
func (s *Service) dispatch(ctx context.Context, log logger.Logger, report *CycleReport) error {
	state := &cycleState{report: report, onlyOne: s.publishOnePerCycle}

	workers := s.clipWorkers
	if s.publishOnePerCycle {
		// Rank order decides which clip wins, so render one at a time.
		workers = 1
	}
	size := s.queueSize
	if size < len(report.Ranked) {
		size = len(report.Ranked)
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(size))

	handler := worker.HandlerFunc(func(ctx context.Context, j queue.Job) error {
		return s.handle(ctx, state, j)
	})
	pool := worker.NewPool(ctx, workers, q, handler, worker.WithLogger(log))

	for _, c := range report.Ranked {
		if err := q.Enqueue(ctx, model.ClipJob{CycleID: report.CycleID, Candidate: c}); err != nil {
			_ = q.Close()
			return fmt.Errorf("enqueue %s: %w", c.VideoID, err)
		}
	}
	log.Debug(ctx, "clip jobs queued", logger.Int("queued", q.Len()), logger.Int("workers", workers))
	_ = q.Close()

	pool.Start(ctx)
	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Workers finish their current job, which includes render cleanup.
		if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		} else {
			<-done
		}
	}

	state.mu.Lock()
	report.JobsProcessed = pool.Processed()
	report.JobsFailed = pool.Failed()
	state.mu.Unlock()

	return ctx.Err()
}

func (s *Service) setRunning(v bool) {
	s.statsMu.Lock()
	s.stats.running = v
	s.statsMu.Unlock()
}

func (s *Service) finish(report *CycleReport) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.running = false
	s.stats.cycles++
	s.stats.published += int64(len(report.Published))
	s.stats.failed += int64(len(report.Failures))
	s.stats.processed += report.JobsProcessed
	s.stats.jobFails += report.JobsFailed
	r := *report
	s.stats.last = &r
}

// Run runs a cycle immediately and then every cycle interval until ctx is
// done. With no interval it runs a single cycle. Errors of individual cycles
// are logged when repeating; a fatal configuration error stops the loop.
// Before returning, Run drains any triggered cycle for up to the drain
// timeout.
func (s *Service) Run(ctx context.Context) (err error) {
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drainTimeout)
		defer cancel()
		if derr := s.Drain(drainCtx); derr != nil {
			s.logger.Error(drainCtx, "triggered cycle still running at shutdown", logger.Error(derr))
			if err == nil {
				err = derr
			}
		}
	}()

	_, err = s.RunCycle(ctx)
	if s.cycleInterval <= 0 {
		return err
	}
	if fatal(err) {
		return err
	}

	ticker := time.NewTicker(s.cycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RunCycle(ctx); fatal(err) {
				return err
			}
		}
	}
}

func fatal(err error) bool {
	return errors.Is(err, discovery.ErrNoSources) ||
		errors.Is(err, schedule.ErrNoSlots) ||
		errors.Is(err, schedule.ErrInvalidSlot) ||
		errors.Is(err, ErrNoLedger)
}
