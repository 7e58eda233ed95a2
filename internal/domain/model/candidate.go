// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"time"
)

// ErrNotFound reports that a source currently has no qualifying content.
// It is a normal outcome of a probe, not a failure.
var ErrNotFound = errors.New("no qualifying content")

// SourceID names a channel or video to probe. Supplied by configuration.
type SourceID string

// Candidate is a discovered video or live stream.
type Candidate struct {
	SourceID     SourceID
	VideoID      string
	Title        string
	ChannelTitle string
	ChannelID    string
	ViewCount    int64
	LikeCount    int64
	// ConcurrentViewers is set only for live streams.
	ConcurrentViewers *int64
	PublishedAt       time.Time
}

// IsLive reports whether the candidate is a live stream.
func (c Candidate) IsLive() bool {
	return c.ConcurrentViewers != nil
}

// Viewers returns the concurrent viewer count, or zero for non-live candidates.
func (c Candidate) Viewers() int64 {
	if c.ConcurrentViewers == nil {
		return 0
	}
	return *c.ConcurrentViewers
}

// URL returns the watch URL of the candidate's video.
func (c Candidate) URL() string {
	return WatchURL(c.VideoID)
}

// WatchURL builds the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ScoredCandidate is a candidate with its viral score and rank (1-based).
type ScoredCandidate struct {
	Candidate
	Score float64
	Rank  int
}
