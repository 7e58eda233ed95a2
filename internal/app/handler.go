package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/okian/viralclip/internal/domain/dedupe"
	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/internal/domain/schedule"
	"github.com/okian/viralclip/pkg/logger"
	"github.com/okian/viralclip/pkg/metrics"
)

// Publish outcomes recorded in metrics.
const (
	PublishOK     = "published"
	PublishFailed = "failed"
)

// handle runs one candidate through claim, moment selection, render,
// scheduling, publish and ledger record. The claim is released on any
// failure before the upload so the video stays eligible for a later cycle.
// Once uploaded, the claim is never released.
func (s *Service) handle(ctx context.Context, state *cycleState, j model.ClipJob) error { //nolint:gocritic // hugeParam: job by value
	c := j.Candidate
	if state.onlyOne && state.published.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log := s.logger.With(
		logger.String("cycle_id", j.CycleID),
		logger.String("video_id", c.VideoID),
		logger.Int("rank", c.Rank))

	claimed, err := s.deps.Ledger.Claim(ctx, c.VideoID)
	if err != nil {
		state.fail(c.VideoID, err)
		return fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		log.Debug(ctx, "already claimed or published, skipping")
		metrics.RecordCandidateDuplicate()
		return nil
	}
	state.attempt()

	rec, err := s.produce(ctx, log, c)
	if err != nil {
		var unrecorded *UnrecordedError
		if errors.As(err, &unrecorded) {
			// The clip is out; hold the claim so this process never uploads it again.
			state.published.Store(true)
		} else {
			s.deps.Ledger.Release(ctx, c.VideoID)
		}
		state.fail(c.VideoID, err)
		return err
	}
	state.succeed(rec)
	log.Info(ctx, "clip published",
		logger.String("external_id", rec.ExternalID),
		logger.Time("scheduled_at", rec.ScheduledAt))
	return nil
}

func (s *Service) produce(ctx context.Context, log logger.Logger, c model.ScoredCandidate) (model.PublishRecord, error) { //nolint:gocritic // hugeParam
	signal, err := s.deps.Signals.Signal(ctx, c.VideoID)
	if err != nil {
		if ctx.Err() != nil {
			return model.PublishRecord{}, ctx.Err()
		}
		log.Warn(ctx, "engagement signal unavailable, using fallback offset", logger.Error(err))
		signal = nil
	}
	clip := s.selector.Clip(c.VideoID, signal)
	log.Debug(ctx, "moment selected",
		logger.Int("start", clip.StartOffsetSeconds),
		logger.Int("duration", clip.DurationSeconds),
		logger.Int("signal_points", len(signal)))

	res, err := s.deps.Renderer.Run(ctx, clip)
	if err != nil {
		return model.PublishRecord{}, err
	}

	publishAt, err := s.nextSlot()
	if err != nil {
		res.Release()
		return model.PublishRecord{}, err
	}

	md := s.builder.Build(c.Candidate, s.subscribers(ctx, log, c.ChannelID), publishAt)
	path := res.Artifact.FinalMediaPath
	externalID, err := s.deps.Publisher.Publish(ctx, path, md)
	if err != nil {
		metrics.RecordPublish(PublishFailed)
		pf := &PublishFailedError{VideoID: c.VideoID, Cause: err}
		if s.keepUnpublished {
			pf.Kept = path
			log.Warn(ctx, "publish failed, keeping rendered clip", logger.String("path", path), logger.Error(err))
		} else {
			res.Release()
		}
		return model.PublishRecord{}, pf
	}
	metrics.RecordPublish(PublishOK)
	res.Release()

	rec := model.PublishRecord{
		VideoID:     c.VideoID,
		ExternalID:  externalID,
		PublishedAt: s.now().UTC(),
		ScheduledAt: publishAt,
	}
	if err := s.record(ctx, log, rec); err != nil {
		log.Error(ctx, "ledger record failed after publish, claim kept",
			logger.String("external_id", externalID),
			logger.Error(err))
		return model.PublishRecord{}, &UnrecordedError{VideoID: c.VideoID, ExternalID: externalID, Cause: err}
	}
	return rec, nil
}

// record writes rec to the ledger, retrying transient store failures.
func (s *Service) record(ctx context.Context, log logger.Logger, rec model.PublishRecord) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.recordRetryDelay
	b.MaxInterval = maxRecordRetryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.deps.Ledger.Record(ctx, rec)
		if errors.Is(err, dedupe.ErrNotClaimed) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.recordRetries+1)), //nolint:gosec // retries is clamped non-negative
		backoff.WithNotify(func(err error, delay time.Duration) {
			log.Warn(ctx, "retrying ledger record", logger.Duration("delay", delay), logger.Error(err))
		}))
	return err
}

func (s *Service) nextSlot() (t time.Time, err error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return schedule.NextSlot(s.now(), s.slots, s.rng)
}

func (s *Service) subscribers(ctx context.Context, log logger.Logger, channelID string) int64 {
	if s.deps.Channels == nil || channelID == "" {
		return -1
	}
	n, err := s.deps.Channels.SubscriberCount(ctx, channelID)
	if err != nil {
		log.Debug(ctx, "subscriber count unavailable", logger.Error(err))
		return -1
	}
	return n
}
