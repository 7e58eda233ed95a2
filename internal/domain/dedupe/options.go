package dedupe

import (
	"time"

	"github.com/okian/viralclip/pkg/logger"
)

// Option applies a configuration option to the ledger.
type Option func(*storeLedger)

// WithLogger sets the ledger logger.
func WithLogger(log logger.Logger) Option {
	return func(l *storeLedger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock overrides the time source used for claim bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(l *storeLedger) {
		if now != nil {
			l.now = now
		}
	}
}
