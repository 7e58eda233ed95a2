package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults for the transcriber.
const (
	DefaultWhisperBinary = "whisper"
	DefaultWhisperModel  = "tiny"
	DefaultLanguage      = "en"
)

// Whisper writes SRT subtitles with the whisper CLI.
type Whisper struct {
	runner   *Runner
	binary   string
	model    string
	language string
}

// NewWhisper creates a transcriber. Empty arguments use the defaults.
func NewWhisper(r *Runner, binary, model, language string) *Whisper {
	if binary == "" {
		binary = DefaultWhisperBinary
	}
	if model == "" {
		model = DefaultWhisperModel
	}
	if language == "" {
		language = DefaultLanguage
	}
	return &Whisper{runner: r, binary: binary, model: model, language: language}
}

// Transcribe writes <media base name>.srt into dir and returns its path.
func (w *Whisper) Transcribe(ctx context.Context, mediaPath, dir string) (string, error) {
	err := w.runner.Run(ctx, w.binary,
		mediaPath,
		"--model", w.model,
		"--output_format", "srt",
		"--output_dir", dir,
		"--language", w.language,
	)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	srt := filepath.Join(dir, base+".srt")
	info, err := os.Stat(srt)
	if err != nil {
		return "", fmt.Errorf("whisper produced no subtitles: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("whisper produced empty subtitles: %s", srt)
	}
	return srt, nil
}
