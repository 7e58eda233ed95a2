// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"

	"github.com/okian/viralclip/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the ops HTTP listen address, e.g. ":9080". Empty disables it.
	Addr string `koanf:"addr"`
	// ShutdownTimeout bounds graceful shutdown of the HTTP server and workers.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Sources lists channel ids (UC...) and video ids to probe.
	Sources []string `koanf:"sources"`
	// ProbeConcurrency caps probes in flight during discovery.
	ProbeConcurrency int `koanf:"probe_concurrency"`
	// ProbeTimeout bounds one probe.
	ProbeTimeout time.Duration `koanf:"probe_timeout"`
	// ProbeRate and ProbeBurst rate-limit API calls. A rate of 0 disables limiting.
	ProbeRate  float64 `koanf:"probe_rate"`
	ProbeBurst int     `koanf:"probe_burst"`
	// IncludeRecent makes channel probes fall back to recent uploads when nothing is live.
	IncludeRecent bool `koanf:"include_recent"`
	// RecentWindow is how far back recent uploads are searched.
	RecentWindow time.Duration `koanf:"recent_window"`

	// MinViews and MinConcurrentViewers are the discovery thresholds.
	MinViews             int64 `koanf:"min_views"`
	MinConcurrentViewers int64 `koanf:"min_concurrent_viewers"`
	// MaxCandidates caps ranked candidates attempted per cycle. 0 means all.
	MaxCandidates int `koanf:"max_candidates"`
	// RequireCandidates turns an empty discovery result into a cycle error.
	RequireCandidates bool `koanf:"require_candidates"`

	// LikeWeight is how many views one like is worth in the viral score.
	LikeWeight float64 `koanf:"like_weight"`

	// ClipDuration is the clip length in seconds.
	ClipDuration int `koanf:"clip_duration"`
	// MaxOffset bounds the clip start (exclusive, seconds).
	MaxOffset int `koanf:"max_offset"`
	// FallbackOffset is the clip start used without an engagement signal.
	FallbackOffset int `koanf:"fallback_offset"`
	// IntensityWeight and LikeSignalWeight weigh the engagement signal.
	IntensityWeight  float64 `koanf:"intensity_weight"`
	LikeSignalWeight float64 `koanf:"like_signal_weight"`

	// AcquireRetries bounds download retries on transient failures.
	AcquireRetries int `koanf:"acquire_retries"`
	// RetryBaseDelay and RetryMaxDelay shape the exponential backoff.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay  time.Duration `koanf:"retry_max_delay"`
	// RecordRetries bounds ledger write retries after a successful upload.
	RecordRetries int `koanf:"record_retries"`
	// StageTimeout bounds every render stage.
	StageTimeout time.Duration `koanf:"stage_timeout"`
	// CaptionPolicy is strict (abort on transcription failure) or lenient.
	CaptionPolicy string `koanf:"caption_policy"`
	// CaptionLanguage is the transcription language hint.
	CaptionLanguage string `koanf:"caption_language"`
	// Caption styles burned-in subtitles.
	Caption CaptionConfig `koanf:"caption"`
	// WorkDir is the parent directory of per-run work directories.
	WorkDir string `koanf:"work_dir"`

	// PublishSlots are daily UTC windows, e.g. "14:00-59".
	PublishSlots []string `koanf:"publish_slots"`
	// ClipWorkers sets how many clips render concurrently.
	ClipWorkers int `koanf:"clip_workers"`
	// QueueSize bounds the clip job queue.
	QueueSize int `koanf:"queue_size"`
	// PublishOnePerCycle stops a cycle after its first successful publish.
	PublishOnePerCycle bool `koanf:"publish_one_per_cycle"`
	// KeepUnpublished retains the rendered file when publishing fails.
	KeepUnpublished bool `koanf:"keep_unpublished"`
	// CycleInterval repeats cycles. 0 runs a single cycle.
	CycleInterval time.Duration `koanf:"cycle_interval"`

	// CategoryID, Visibility and Tags are upload metadata.
	CategoryID string   `koanf:"category_id"`
	Visibility string   `koanf:"visibility"`
	Tags       []string `koanf:"tags"`

	// LedgerBackend is memory, sqlite or postgres; LedgerDSN is its path or URL.
	LedgerBackend string `koanf:"ledger_backend"`
	LedgerDSN     string `koanf:"ledger_dsn"`

	YouTube  YouTubeConfig  `koanf:"youtube"`
	Binaries BinariesConfig `koanf:"binaries"`

	slots []model.PublishSlot
}

// CaptionConfig holds the subtitle style.
type CaptionConfig struct {
	FontName      string `koanf:"font_name"`
	FontSize      int    `koanf:"font_size"`
	PrimaryColour string `koanf:"primary_colour"`
	OutlineColour string `koanf:"outline_colour"`
	BorderStyle   int    `koanf:"border_style"`
	Alignment     int    `koanf:"alignment"`
}

// YouTubeConfig holds Data API credentials. Never log these values.
type YouTubeConfig struct {
	APIKey       string `koanf:"api_key"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RefreshToken string `koanf:"refresh_token"`
}

// BinariesConfig names the external tools.
type BinariesConfig struct {
	YtDlp        string `koanf:"ytdlp"`
	YtDlpFormat  string `koanf:"ytdlp_format"`
	Whisper      string `koanf:"whisper"`
	WhisperModel string `koanf:"whisper_model"`
	FFmpeg       string `koanf:"ffmpeg"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		ShutdownTimeout:      30 * time.Second,
		ProbeConcurrency:     4,
		ProbeTimeout:         15 * time.Second,
		ProbeRate:            2,
		ProbeBurst:           4,
		RecentWindow:         48 * time.Hour,
		MinViews:             10_000,
		MinConcurrentViewers: 10_000,
		MaxCandidates:        5,
		LikeWeight:           10,
		ClipDuration:         27,
		MaxOffset:            60,
		FallbackOffset:       15,
		IntensityWeight:      0.7,
		LikeSignalWeight:     0.3,
		AcquireRetries:       2,
		RetryBaseDelay:       2 * time.Second,
		RetryMaxDelay:        30 * time.Second,
		RecordRetries:        3,
		StageTimeout:         10 * time.Minute,
		CaptionPolicy:        "lenient",
		CaptionLanguage:      "en",
		Caption: CaptionConfig{
			FontSize:      24,
			PrimaryColour: "&HFFFFFF",
			OutlineColour: "&H000000",
			BorderStyle:   1,
			Alignment:     10,
		},
		WorkDir:            "work",
		PublishSlots:       []string{"14:00-59", "20:00-59"},
		ClipWorkers:        1,
		QueueSize:          16,
		PublishOnePerCycle: true,
		CategoryID:         "20",
		Visibility:         "public",
		Tags:               []string{"shorts", "gaming", "viral"},
		LedgerBackend:      "sqlite",
		LedgerDSN:          "data/ledger.db",
		Binaries: BinariesConfig{
			YtDlp:        "yt-dlp",
			YtDlpFormat:  "best[height<=720]",
			Whisper:      "whisper",
			WhisperModel: "tiny",
			FFmpeg:       "ffmpeg",
		},
	}
}

// Slots returns the parsed publish slots. Valid after Validate succeeds.
func (c *Config) Slots() []model.PublishSlot {
	return append([]model.PublishSlot(nil), c.slots...)
}
