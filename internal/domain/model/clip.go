package model

import "time"

// SignalPoint is one sample of a video's engagement signal.
type SignalPoint struct {
	OffsetSeconds int
	Intensity     float64
	LikeWeight    float64
}

// EngagementSignal is an offset-ordered series covering a bounded prefix of a
// video. It may be empty.
type EngagementSignal []SignalPoint

// ClipSpec is the window cut out of the source video.
type ClipSpec struct {
	VideoID            string
	StartOffsetSeconds int
	DurationSeconds    int
}

// Start returns the start offset as a duration.
func (c ClipSpec) Start() time.Duration {
	return time.Duration(c.StartOffsetSeconds) * time.Second
}

// End returns the end offset as a duration.
func (c ClipSpec) End() time.Duration {
	return time.Duration(c.StartOffsetSeconds+c.DurationSeconds) * time.Second
}

// PipelineArtifact holds the files produced by a render run. A path is empty
// until its stage completes.
type PipelineArtifact struct {
	RawMediaPath   string
	SubtitlePath   string
	FinalMediaPath string
}

// Captioned reports whether the final media carries burned-in captions.
func (a PipelineArtifact) Captioned() bool {
	return a.SubtitlePath != ""
}
