package service

import (
	"math/rand"
	"time"

	"github.com/okian/viralclip/internal/domain/metadata"
	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/internal/domain/moment"
	"github.com/okian/viralclip/internal/domain/scoring"
	"github.com/okian/viralclip/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSources sets the source ids probed each cycle.
func WithSources(ids []string) Option {
	return func(s *Service) {
		s.sources = append([]string(nil), ids...)
	}
}

// WithProbeConcurrency caps probes in flight.
func WithProbeConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxCandidates caps ranked candidates attempted per cycle. 0 means all.
func WithMaxCandidates(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxCandidates = n
		}
	}
}

// WithClipWorkers sets how many clips render concurrently.
func WithClipWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.clipWorkers = n
		}
	}
}

// WithQueueSize sets the clip job queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithSlots sets the daily publish windows.
func WithSlots(slots []model.PublishSlot) Option {
	return func(s *Service) {
		s.slots = append([]model.PublishSlot(nil), slots...)
	}
}

// WithPublishOnePerCycle stops a cycle after its first successful publish.
func WithPublishOnePerCycle(v bool) Option {
	return func(s *Service) { s.publishOnePerCycle = v }
}

// WithRequireCandidates makes an empty discovery fail the cycle.
func WithRequireCandidates(v bool) Option {
	return func(s *Service) { s.requireCandidates = v }
}

// WithKeepUnpublished retains rendered files whose publish failed.
func WithKeepUnpublished(v bool) Option {
	return func(s *Service) { s.keepUnpublished = v }
}

// WithCycleInterval repeats cycles in Run. 0 runs once.
func WithCycleInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cycleInterval = d
		}
	}
}

// WithRecordRetries sets how many times a failed ledger write after a
// successful upload is retried.
func WithRecordRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.recordRetries = n
		}
	}
}

// WithRecordRetryDelay sets the first delay between ledger write attempts.
func WithRecordRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.recordRetryDelay = d
		}
	}
}

// WithDrainTimeout bounds how long Run waits for a triggered cycle after
// its context is done.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.drainTimeout = d
		}
	}
}

// WithScorer sets the candidate scorer.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithSelector sets the clip moment selector.
func WithSelector(sel *moment.Selector) Option {
	return func(s *Service) {
		if sel != nil {
			s.selector = sel
		}
	}
}

// WithMetadataBuilder sets the upload metadata builder.
func WithMetadataBuilder(b *metadata.Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand sets the random source used for publish-minute jitter.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
