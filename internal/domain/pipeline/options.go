package pipeline

import (
	"time"

	"github.com/okian/viralclip/pkg/logger"
)

// Default pipeline configuration constants.
const (
	DefaultAcquireRetries = 2
	DefaultBaseDelay      = 2 * time.Second
	DefaultMaxDelay       = 30 * time.Second
	DefaultStageTimeout   = 10 * time.Minute
	DefaultOutputName     = "final.mp4"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithWorkDir sets the parent directory for per-run work directories.
func WithWorkDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.workDir = dir
		}
	}
}

// WithAcquireRetries sets how many times a transient acquire failure is retried.
func WithAcquireRetries(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.retries = n
		}
	}
}

// WithBackoff sets the first retry delay and its cap. Delays double per attempt.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(p *Pipeline) {
		if base >= 0 {
			p.baseDelay = base
		}
		if maxDelay >= base {
			p.maxDelay = maxDelay
		}
	}
}

// WithStageTimeout bounds every stage. Zero disables the bound.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.stageTimeout = d
		}
	}
}

// WithCaptionPolicy sets the transcription failure policy.
func WithCaptionPolicy(policy CaptionPolicy) Option {
	return func(p *Pipeline) {
		if policy == CaptionStrict || policy == CaptionLenient {
			p.captionPolicy = policy
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(log logger.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}
