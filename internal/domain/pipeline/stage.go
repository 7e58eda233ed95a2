package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/viralclip/internal/domain/model"
)

// Stage names a step of the render state machine.
type Stage string

// Pipeline stages in execution order.
const (
	StageAcquire    Stage = "acquire"
	StageTranscribe Stage = "transcribe"
	StageEncode     Stage = "encode"
	StageDone       Stage = "done"
)

// Acquirer downloads the clip's source segment into dir and returns its path.
type Acquirer interface {
	Acquire(ctx context.Context, clip model.ClipSpec, dir string) (string, error)
}

// Transcriber writes a subtitle file for mediaPath into dir and returns its path.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath, dir string) (string, error)
}

// Encoder renders mediaPath to outPath, burning in subtitlePath when non-empty.
type Encoder interface {
	Encode(ctx context.Context, mediaPath, subtitlePath, outPath string) error
}

// CaptionPolicy decides what a transcription failure does to the run.
type CaptionPolicy string

// Caption policies.
const (
	// CaptionStrict fails the run when transcription fails.
	CaptionStrict CaptionPolicy = "strict"
	// CaptionLenient encodes without captions when transcription fails.
	CaptionLenient CaptionPolicy = "lenient"
)

// ParseCaptionPolicy parses a configured policy name.
func ParseCaptionPolicy(v string) (CaptionPolicy, error) {
	switch p := CaptionPolicy(strings.ToLower(strings.TrimSpace(v))); p {
	case CaptionStrict, CaptionLenient:
		return p, nil
	default:
		return "", fmt.Errorf("unknown caption policy %q", v)
	}
}
