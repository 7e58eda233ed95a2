package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/viralclip/internal/adapters/http/api"
	"github.com/okian/viralclip/internal/adapters/http/swagger"
	"github.com/okian/viralclip/internal/adapters/media"
	"github.com/okian/viralclip/internal/adapters/repository"
	"github.com/okian/viralclip/internal/adapters/youtube"
	app "github.com/okian/viralclip/internal/app"
	"github.com/okian/viralclip/internal/config"
	"github.com/okian/viralclip/internal/domain/dedupe"
	"github.com/okian/viralclip/internal/domain/discovery"
	"github.com/okian/viralclip/internal/domain/metadata"
	"github.com/okian/viralclip/internal/domain/moment"
	"github.com/okian/viralclip/internal/domain/pipeline"
	"github.com/okian/viralclip/internal/domain/scoring"
	"github.com/okian/viralclip/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; anything else is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if err := logger.Init(); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log := logger.Get()

	store, err := repository.New(ctx, cfg.LedgerBackend, cfg.LedgerDSN)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "ledger close failed", logger.Error(err))
		}
	}()

	svc, err := buildService(ctx, cfg, store, log)
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Addr != "" {
		srv = newHTTPServer(ctx, cfg.Addr, svc)
		go func() {
			log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "HTTP server failed", logger.Error(err))
				stop()
			}
		}()
	}

	log.Info(ctx, "viralclip started",
		logger.Int("sources", len(cfg.Sources)),
		logger.String("ledger", cfg.LedgerBackend),
		logger.Duration("cycle_interval", cfg.CycleInterval))

	runErr := svc.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "server shutdown failed", logger.Error(err))
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	log.Info(ctx, "viralclip stopped")
	return nil
}

// buildService wires every collaborator from configuration.
func buildService(ctx context.Context, cfg *config.Config, store repository.Store, log logger.Logger) (*app.Service, error) {
	creds := youtube.Credentials{
		APIKey:       cfg.YouTube.APIKey,
		ClientID:     cfg.YouTube.ClientID,
		ClientSecret: cfg.YouTube.ClientSecret,
		RefreshToken: cfg.YouTube.RefreshToken,
	}
	if !creds.CanPublish() {
		return nil, fmt.Errorf("%w: youtube client_id, client_secret and refresh_token are required", config.ErrInvalidConfig)
	}

	readSvc, err := youtube.NewReadService(ctx, creds.APIKey)
	if err != nil {
		return nil, fmt.Errorf("youtube read client: %w", err)
	}
	uploadSvc, err := youtube.NewUploadService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("youtube upload client: %w", err)
	}

	probeOpts := []youtube.ProbeOption{youtube.WithRateLimit(cfg.ProbeRate, cfg.ProbeBurst)}
	if cfg.IncludeRecent {
		probeOpts = append(probeOpts, youtube.WithRecentUploads(cfg.RecentWindow))
	}
	prober := youtube.NewProber(readSvc, probeOpts...)

	runner := media.NewRunner(media.WithRunnerLogger(log.Named("exec")))
	ytdlp := media.NewYtDlp(runner, cfg.Binaries.YtDlp, cfg.Binaries.YtDlpFormat)
	whisper := media.NewWhisper(runner, cfg.Binaries.Whisper, cfg.Binaries.WhisperModel, cfg.CaptionLanguage)
	ffmpeg := media.NewFFmpeg(runner, cfg.Binaries.FFmpeg, media.CaptionStyle{
		FontName:      cfg.Caption.FontName,
		FontSize:      cfg.Caption.FontSize,
		PrimaryColour: cfg.Caption.PrimaryColour,
		OutlineColour: cfg.Caption.OutlineColour,
		BorderStyle:   cfg.Caption.BorderStyle,
		Alignment:     cfg.Caption.Alignment,
	})

	policy, err := pipeline.ParseCaptionPolicy(cfg.CaptionPolicy)
	if err != nil {
		return nil, err
	}
	renderer := pipeline.New(ytdlp, whisper, ffmpeg,
		pipeline.WithWorkDir(cfg.WorkDir),
		pipeline.WithAcquireRetries(cfg.AcquireRetries),
		pipeline.WithBackoff(cfg.RetryBaseDelay, cfg.RetryMaxDelay),
		pipeline.WithStageTimeout(cfg.StageTimeout),
		pipeline.WithCaptionPolicy(policy),
		pipeline.WithLogger(log.Named("pipeline")),
	)

	coordinator := discovery.NewCoordinator(prober,
		discovery.WithProbeTimeout(cfg.ProbeTimeout),
		discovery.WithMinViews(cfg.MinViews),
		discovery.WithMinConcurrentViewers(cfg.MinConcurrentViewers),
		discovery.WithLogger(log.Named("discovery")),
	)

	ledger := dedupe.NewLedger(store, dedupe.WithLogger(log.Named("ledger")))

	return app.New(app.Collaborators{
		Discoverer: coordinator,
		Signals:    ytdlp,
		Renderer:   renderer,
		Channels:   prober,
		Publisher:  youtube.NewPublisher(uploadSvc, log.Named("publisher")),
		Ledger:     ledger,
	},
		app.WithLogger(log),
		app.WithSources(cfg.Sources),
		app.WithProbeConcurrency(cfg.ProbeConcurrency),
		app.WithMaxCandidates(cfg.MaxCandidates),
		app.WithClipWorkers(cfg.ClipWorkers),
		app.WithQueueSize(cfg.QueueSize),
		app.WithSlots(cfg.Slots()),
		app.WithPublishOnePerCycle(cfg.PublishOnePerCycle),
		app.WithRequireCandidates(cfg.RequireCandidates),
		app.WithKeepUnpublished(cfg.KeepUnpublished),
		app.WithCycleInterval(cfg.CycleInterval),
		app.WithRecordRetries(cfg.RecordRetries),
		app.WithDrainTimeout(cfg.ShutdownTimeout),
		app.WithScorer(scoring.NewScorer(scoring.WithLikeWeight(cfg.LikeWeight))),
		app.WithSelector(moment.NewSelector(
			moment.WithWeights(cfg.IntensityWeight, cfg.LikeSignalWeight),
			moment.WithMaxOffset(cfg.MaxOffset),
			moment.WithFallback(cfg.FallbackOffset),
			moment.WithDuration(cfg.ClipDuration),
		)),
		app.WithMetadataBuilder(metadata.NewBuilder(
			metadata.WithCategoryID(cfg.CategoryID),
			metadata.WithVisibility(cfg.Visibility),
			metadata.WithTags(cfg.Tags),
		)),
	), nil
}

// newHTTPServer builds the ops server: docs, health, metrics, stats and the
// cycle trigger.
func newHTTPServer(ctx context.Context, addr string, svc api.Dependencies) *http.Server {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
