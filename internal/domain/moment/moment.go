// Package moment picks the most engaging window of a video from its
// engagement signal.
package moment

import (
	"github.com/okian/viralclip/internal/domain/model"
)

// Default selector configuration constants.
const (
	DefaultIntensityWeight = 0.7
	DefaultLikeWeight      = 0.3
	DefaultMaxOffset       = 60
	DefaultFallback        = 15
	DefaultDuration        = 27
)

// Select picks a start offset using the default weights.
func Select(signal model.EngagementSignal, maxOffset, fallback int) int {
	return SelectWeighted(signal, maxOffset, fallback, DefaultIntensityWeight, DefaultLikeWeight)
}

// SelectWeighted returns the offset of the signal entry maximizing
// intensity*wIntensity + likeWeight*wLike among entries in [0, maxOffset).
// The earliest offset wins ties. An empty signal yields fallback. A non-empty
// signal with no entry in range yields fallback clamped below maxOffset.
func SelectWeighted(signal model.EngagementSignal, maxOffset, fallback int, wIntensity, wLike float64) int {
	if len(signal) == 0 {
		return fallback
	}

	best := -1
	var bestValue float64
	for _, p := range signal {
		if p.OffsetSeconds < 0 || p.OffsetSeconds >= maxOffset {
			continue
		}
		v := p.Intensity*wIntensity + p.LikeWeight*wLike
		switch {
		case best < 0, v > bestValue:
			best, bestValue = p.OffsetSeconds, v
		case v == bestValue && p.OffsetSeconds < best:
			best = p.OffsetSeconds
		}
	}
	if best >= 0 {
		return best
	}
	return clampBelow(fallback, maxOffset)
}

func clampBelow(v, limit int) int {
	if v >= limit {
		v = limit - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithWeights sets the intensity and like-weight coefficients.
func WithWeights(intensity, like float64) Option {
	return func(s *Selector) {
		if intensity >= 0 && like >= 0 && intensity+like > 0 {
			s.wIntensity = intensity
			s.wLike = like
		}
	}
}

// WithMaxOffset bounds the start offset (exclusive, in seconds).
func WithMaxOffset(seconds int) Option {
	return func(s *Selector) {
		if seconds > 0 {
			s.maxOffset = seconds
		}
	}
}

// WithFallback sets the offset used when no signal is available.
func WithFallback(seconds int) Option {
	return func(s *Selector) {
		if seconds >= 0 {
			s.fallback = seconds
		}
	}
}

// WithDuration sets the clip length in seconds.
func WithDuration(seconds int) Option {
	return func(s *Selector) {
		if seconds > 0 {
			s.duration = seconds
		}
	}
}

// Selector turns a signal into a ClipSpec using configured constants.
type Selector struct {
	wIntensity float64
	wLike      float64
	maxOffset  int
	fallback   int
	duration   int
}

// NewSelector creates a selector with configuration options.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		wIntensity: DefaultIntensityWeight,
		wLike:      DefaultLikeWeight,
		maxOffset:  DefaultMaxOffset,
		fallback:   DefaultFallback,
		duration:   DefaultDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Offset picks the start offset for signal.
func (s *Selector) Offset(signal model.EngagementSignal) int {
	return SelectWeighted(signal, s.maxOffset, s.fallback, s.wIntensity, s.wLike)
}

// Clip builds the ClipSpec for videoID.
func (s *Selector) Clip(videoID string, signal model.EngagementSignal) model.ClipSpec {
	return model.ClipSpec{
		VideoID:            videoID,
		StartOffsetSeconds: s.Offset(signal),
		DurationSeconds:    s.duration,
	}
}
