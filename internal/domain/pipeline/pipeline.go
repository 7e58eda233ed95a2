// Package pipeline drives the acquire, transcribe and encode steps that turn
// a clip spec into a publishable media file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/pkg/logger"
	"github.com/okian/viralclip/pkg/metrics"
)

// Result is a successful run. Only Artifact.FinalMediaPath exists on disk;
// the raw media and subtitle files are pruned before Run returns.
type Result struct {
	Artifact model.PipelineArtifact
	Release  func()
}

// Pipeline runs clips through the render stages. It is safe for concurrent
// use; every run works in its own directory.
type Pipeline struct {
	acquirer    Acquirer
	transcriber Transcriber
	encoder     Encoder

	workDir       string
	retries       int
	baseDelay     time.Duration
	maxDelay      time.Duration
	stageTimeout  time.Duration
	captionPolicy CaptionPolicy
	log           logger.Logger
}

// New creates a pipeline over the three collaborators.
func New(a Acquirer, t Transcriber, e Encoder, opts ...Option) *Pipeline {
	p := &Pipeline{
		acquirer:      a,
		transcriber:   t,
		encoder:       e,
		workDir:       os.TempDir(),
		retries:       DefaultAcquireRetries,
		baseDelay:     DefaultBaseDelay,
		maxDelay:      DefaultMaxDelay,
		stageTimeout:  DefaultStageTimeout,
		captionPolicy: CaptionLenient,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run renders clip. On failure every intermediate file is removed and an
// *Error naming the failed stage is returned. On success the caller must
// call Result.Release once the final file is no longer needed.
func (p *Pipeline) Run(ctx context.Context, clip model.ClipSpec) (*Result, error) {
	runID := uuid.NewString()
	dir := filepath.Join(p.workDir, runID)
	log := p.log.With(logger.String("run_id", runID), logger.String("video_id", clip.VideoID))

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, &Error{Stage: StageAcquire, Cause: fmt.Errorf("create work dir: %w", err)}
	}

	fail := func(stage Stage, err error) (*Result, error) {
		metrics.RecordStageFailure(string(stage))
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn(ctx, "work dir cleanup failed", logger.Error(rmErr))
		}
		log.Warn(ctx, "pipeline failed", logger.String("stage", string(stage)), logger.Error(err))
		return nil, &Error{Stage: stage, Cause: err}
	}

	var art model.PipelineArtifact

	raw, err := p.acquire(ctx, log, clip, dir)
	if err != nil {
		return fail(StageAcquire, err)
	}
	art.RawMediaPath = raw

	sub, err := p.transcribe(ctx, raw, dir)
	switch {
	case err == nil:
		art.SubtitlePath = sub
	case ctx.Err() != nil || p.captionPolicy == CaptionStrict:
		return fail(StageTranscribe, err)
	default:
		metrics.RecordStageFailure(string(StageTranscribe))
		log.Warn(ctx, "transcription failed, encoding without captions", logger.Error(err))
	}

	out := filepath.Join(dir, DefaultOutputName)
	if err := p.encode(ctx, raw, art.SubtitlePath, out); err != nil {
		return fail(StageEncode, err)
	}
	art.FinalMediaPath = out

	for _, path := range []string{art.RawMediaPath, art.SubtitlePath} {
		if path != "" && path != out {
			_ = os.Remove(path)
		}
	}

	metrics.RecordClipRendered()
	log.Info(ctx, "clip rendered",
		logger.String("path", out),
		logger.Bool("captioned", art.Captioned()))

	var once sync.Once
	return &Result{
		Artifact: art,
		Release: func() {
			once.Do(func() { _ = os.RemoveAll(dir) })
		},
	}, nil
}

func (p *Pipeline) acquire(ctx context.Context, log logger.Logger, clip model.ClipSpec, dir string) (string, error) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		path, err := p.stage(ctx, StageAcquire, func(ctx context.Context) (string, error) {
			return p.acquirer.Acquire(ctx, clip, dir)
		})
		if err != nil && (errors.Is(err, ErrPermanent) || ctx.Err() != nil) {
			return "", backoff.Permanent(err)
		}
		return path, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(uint(p.retries + 1)), //nolint:gosec // retries is validated non-negative
		backoff.WithNotify(func(err error, delay time.Duration) {
			metrics.RecordStageRetry(string(StageAcquire))
			log.Info(ctx, "retrying acquire",
				logger.Int("attempt", attempts),
				logger.Duration("delay", delay),
				logger.Error(err))
		}),
	}
	if p.stageTimeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(time.Duration(p.retries+1)*(p.stageTimeout+p.maxDelay)))
	}

	path, err := backoff.Retry(ctx, op, opts...)
	if err != nil && attempts > 1 && !errors.Is(err, ErrPermanent) && ctx.Err() == nil {
		return "", fmt.Errorf("gave up after %d attempts: %w", attempts, err)
	}
	return path, err
}

func (p *Pipeline) transcribe(ctx context.Context, raw, dir string) (string, error) {
	return p.stage(ctx, StageTranscribe, func(ctx context.Context) (string, error) {
		return p.transcriber.Transcribe(ctx, raw, dir)
	})
}

func (p *Pipeline) encode(ctx context.Context, raw, sub, out string) error {
	_, err := p.stage(ctx, StageEncode, func(ctx context.Context) (string, error) {
		return out, p.encoder.Encode(ctx, raw, sub, out)
	})
	return err
}

// stage runs fn under the stage timeout, records its latency and checks
// that the returned path exists.
func (p *Pipeline) stage(ctx context.Context, stage Stage, fn func(context.Context) (string, error)) (string, error) {
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	start := time.Now()
	path, err := fn(ctx)
	metrics.RecordStageLatency(string(stage), time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return "", fmt.Errorf("%w: %s", ErrMissingArtifact, path)
	}
	return path, nil
}

// newBackOff returns a jitter-free exponential schedule: base, 2*base, ...
// capped at maxDelay.
func (p *Pipeline) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.baseDelay
	bo.MaxInterval = p.maxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()
	return bo
}
