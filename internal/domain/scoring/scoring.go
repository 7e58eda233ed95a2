// Package scoring computes viral scores for candidates and ranks them.
package scoring

import (
	"sort"
	"time"

	"github.com/okian/viralclip/internal/domain/model"
)

// Default scoring configuration constants.
const (
	DefaultLikeWeight = 10.0
	minHours          = 1.0
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithLikeWeight sets how many views a like is worth. Negative values are ignored.
func WithLikeWeight(w float64) Option {
	return func(s *Scorer) {
		if w >= 0 {
			s.likeWeight = w
		}
	}
}

// Scorer computes a comparable engagement-rate score. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	likeWeight float64
}

// NewScorer creates a scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{likeWeight: DefaultLikeWeight}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LikeWeight returns the configured like weight.
func (s *Scorer) LikeWeight() float64 {
	return s.likeWeight
}

// Score returns the candidate's viral score at now.
//
// Live candidates score their concurrent viewers. Everything else scores
// (views + likeWeight*likes) per hour since publish, with the hour count
// floored at one so fresh uploads do not explode.
func (s *Scorer) Score(c model.Candidate, now time.Time) float64 {
	if c.IsLive() {
		return float64(c.Viewers())
	}
	hours := now.Sub(c.PublishedAt).Hours()
	if hours < minHours {
		hours = minHours
	}
	return (float64(c.ViewCount) + s.likeWeight*float64(c.LikeCount)) / hours
}

// Rank scores every candidate and sorts them best first.
// Ties break by higher view count, then by video id ascending.
func (s *Scorer) Rank(cs []model.Candidate, now time.Time) []model.ScoredCandidate {
	out := make([]model.ScoredCandidate, len(cs))
	for i, c := range cs {
		out[i] = model.ScoredCandidate{Candidate: c, Score: s.Score(c, now)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// less returns true if a ranks before b.
func less(a, b model.ScoredCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.ViewCount != b.ViewCount {
		return a.ViewCount > b.ViewCount
	}
	return a.VideoID < b.VideoID
}
