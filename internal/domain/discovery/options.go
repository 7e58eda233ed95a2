package discovery

import (
	"time"

	"github.com/okian/viralclip/pkg/logger"
)

// Default coordinator configuration constants.
const (
	DefaultConcurrency          = 4
	DefaultProbeTimeout         = 15 * time.Second
	DefaultMinViews             = 10_000
	DefaultMinConcurrentViewers = 10_000
)

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithProbeTimeout bounds every individual probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithMinViews sets the view count a non-live candidate needs.
func WithMinViews(n int64) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.minViews = n
		}
	}
}

// WithMinConcurrentViewers sets the viewer count a live candidate needs.
func WithMinConcurrentViewers(n int64) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.minConcurrentViewers = n
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}
