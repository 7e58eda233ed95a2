package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/viralclip/internal/domain/pipeline"
	"github.com/okian/viralclip/internal/domain/schedule"
)

var (
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"text", "json"}
	visibilities  = []string{"public", "unlisted", "private"}
	ledgerBackend = []string{"memory", "sqlite", "postgres"}
)

// Validate checks the configuration and parses derived values. Every
// problem is reported, each wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if !oneOf(c.LogLevel, logLevels) {
		bad("log_level %q", c.LogLevel)
	}
	if !oneOf(c.LogFormat, logFormats) {
		bad("log_format %q", c.LogFormat)
	}
	if c.ProbeConcurrency < 1 {
		bad("probe_concurrency must be at least 1")
	}
	if c.ProbeTimeout <= 0 {
		bad("probe_timeout must be positive")
	}
	if c.MinViews < 0 || c.MinConcurrentViewers < 0 {
		bad("thresholds must not be negative")
	}
	if c.MaxCandidates < 0 {
		bad("max_candidates must not be negative")
	}
	if c.LikeWeight < 0 || c.IntensityWeight < 0 || c.LikeSignalWeight < 0 {
		bad("weights must not be negative")
	}
	if c.ClipDuration <= 0 {
		bad("clip_duration must be positive")
	}
	if c.MaxOffset <= 0 || c.FallbackOffset < 0 || c.FallbackOffset >= c.MaxOffset {
		bad("fallback_offset %d must be in [0, max_offset %d)", c.FallbackOffset, c.MaxOffset)
	}
	if c.AcquireRetries < 0 {
		bad("acquire_retries must not be negative")
	}
	if c.RecordRetries < 0 {
		bad("record_retries must not be negative")
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		bad("retry delays must satisfy 0 <= base <= max")
	}
	if _, err := pipeline.ParseCaptionPolicy(c.CaptionPolicy); err != nil {
		bad("%v", err)
	}
	if strings.TrimSpace(c.WorkDir) == "" {
		bad("work_dir must not be empty")
	}
	if c.ClipWorkers < 1 || c.QueueSize < 1 {
		bad("clip_workers and queue_size must be at least 1")
	}
	if c.CycleInterval < 0 {
		bad("cycle_interval must not be negative")
	}
	if !oneOf(c.Visibility, visibilities) {
		bad("visibility %q", c.Visibility)
	}
	if !oneOf(c.LedgerBackend, ledgerBackend) {
		bad("ledger_backend %q", c.LedgerBackend)
	}
	if c.LedgerBackend != "memory" && strings.TrimSpace(c.LedgerDSN) == "" {
		bad("ledger_dsn is required for %s", c.LedgerBackend)
	}

	slots, err := schedule.ParseSlots(c.PublishSlots)
	switch {
	case err != nil:
		bad("publish_slots: %v", err)
	case len(slots) == 0:
		bad("publish_slots: %v", schedule.ErrNoSlots)
	default:
		c.slots = slots
	}

	return errors.Join(errs...)
}

func oneOf(v string, allowed []string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
