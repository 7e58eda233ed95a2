package media

import (
	"context"
	"strconv"
	"strings"
)

// Defaults for the encoder.
const (
	DefaultFFmpegBinary = "ffmpeg"
	DefaultPreset       = "fast"
	DefaultCRF          = 23
)

// CaptionStyle is the ASS style applied to burned-in subtitles.
type CaptionStyle struct {
	FontName      string
	FontSize      int
	PrimaryColour string
	OutlineColour string
	BorderStyle   int
	Alignment     int
}

// DefaultCaptionStyle is large white text with a black outline, centred.
func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		FontSize:      24,
		PrimaryColour: "&HFFFFFF",
		OutlineColour: "&H000000",
		BorderStyle:   1,
		Alignment:     10,
	}
}

// ForceStyle renders the style as an ffmpeg force_style value.
func (s CaptionStyle) ForceStyle() string {
	parts := make([]string, 0, 6)
	if s.FontName != "" {
		parts = append(parts, "FontName="+s.FontName)
	}
	if s.FontSize > 0 {
		parts = append(parts, "Fontsize="+strconv.Itoa(s.FontSize))
	}
	if s.PrimaryColour != "" {
		parts = append(parts, "PrimaryColour="+s.PrimaryColour)
	}
	if s.OutlineColour != "" {
		parts = append(parts, "OutlineColour="+s.OutlineColour)
	}
	if s.BorderStyle > 0 {
		parts = append(parts, "BorderStyle="+strconv.Itoa(s.BorderStyle))
	}
	if s.Alignment > 0 {
		parts = append(parts, "Alignment="+strconv.Itoa(s.Alignment))
	}
	return strings.Join(parts, ",")
}

// FFmpeg encodes the final clip, burning in captions when present.
type FFmpeg struct {
	runner *Runner
	binary string
	style  CaptionStyle
	preset string
	crf    int
}

// NewFFmpeg creates an encoder. An empty binary uses the default.
func NewFFmpeg(r *Runner, binary string, style CaptionStyle) *FFmpeg {
	if binary == "" {
		binary = DefaultFFmpegBinary
	}
	return &FFmpeg{runner: r, binary: binary, style: style, preset: DefaultPreset, crf: DefaultCRF}
}

// Encode renders mediaPath to outPath. An empty subtitlePath re-encodes
// without captions.
func (f *FFmpeg) Encode(ctx context.Context, mediaPath, subtitlePath, outPath string) error {
	return f.runner.Run(ctx, f.binary, f.Args(mediaPath, subtitlePath, outPath)...)
}

// Args returns the ffmpeg argument list for one encode.
func (f *FFmpeg) Args(mediaPath, subtitlePath, outPath string) []string {
	args := []string{"-y", "-i", mediaPath}
	if subtitlePath != "" {
		filter := "subtitles=" + escapeFilterPath(subtitlePath)
		if style := f.style.ForceStyle(); style != "" {
			filter += ":force_style='" + style + "'"
		}
		args = append(args, "-vf", filter)
	}
	return append(args,
		"-c:v", "libx264",
		"-preset", f.preset,
		"-crf", strconv.Itoa(f.crf),
		"-c:a", "copy",
		outPath,
	)
}

// escapeFilterPath escapes a path for use inside an ffmpeg filter argument.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(`\`, "/", ":", `\:`, "'", `\'`, ",", `\,`)
	return r.Replace(path)
}
