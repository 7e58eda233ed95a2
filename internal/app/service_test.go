package service_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/viralclip/internal/adapters/repository"
	service "github.com/okian/viralclip/internal/app"
	"github.com/okian/viralclip/internal/domain/dedupe"
	"github.com/okian/viralclip/internal/domain/discovery"
	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/internal/domain/pipeline"
	"github.com/okian/viralclip/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 3, 1, 13, 50, 0, 0, time.UTC)

var slots = []model.PublishSlot{{Hour: 14, MinuteLow: 0, MinuteHigh: 59}, {Hour: 20, MinuteLow: 0, MinuteHigh: 59}}

type mapProber map[string]model.Candidate

func (m mapProber) Probe(_ context.Context, id string) (model.Candidate, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return model.Candidate{}, model.ErrNotFound
}

type noSignal struct{}

func (noSignal) Signal(context.Context, string) (model.EngagementSignal, error) {
	return nil, errors.New("no heatmap")
}

// fakeRenderer writes a final file per clip and fails for ids in failOn.
type fakeRenderer struct {
	dir    string
	failOn map[string]bool

	mu    sync.Mutex
	clips []model.ClipSpec
}

func (r *fakeRenderer) Run(_ context.Context, clip model.ClipSpec) (*pipeline.Result, error) {
	r.mu.Lock()
	r.clips = append(r.clips, clip)
	r.mu.Unlock()
	if r.failOn[clip.VideoID] {
		return nil, &pipeline.Error{Stage: pipeline.StageEncode, Cause: errors.New("boom")}
	}
	path := filepath.Join(r.dir, clip.VideoID+".mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0o600); err != nil {
		return nil, err
	}
	return &pipeline.Result{
		Artifact: model.PipelineArtifact{FinalMediaPath: path},
		Release:  func() { _ = os.Remove(path) },
	}, nil
}

func (r *fakeRenderer) rendered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.clips))
	for i, c := range r.clips {
		ids[i] = c.VideoID
	}
	return ids
}

type fakePublisher struct {
	err error

	mu    sync.Mutex
	calls []model.VideoMetadata
}

func (p *fakePublisher) Publish(_ context.Context, path string, md model.VideoMetadata) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	p.calls = append(p.calls, md)
	if p.err != nil {
		return "", p.err
	}
	return "ext-" + filepath.Base(path), nil
}

type fixedSubs int64

func (f fixedSubs) SubscriberCount(context.Context, string) (int64, error) { return int64(f), nil }

type fixture struct {
	ledger    dedupe.Ledger
	renderer  *fakeRenderer
	publisher *fakePublisher
	svc       *service.Service
}

// flakyStore fails Record the given number of times; a negative count fails forever.
type flakyStore struct {
	*repository.MemoryStore

	mu    sync.Mutex
	fails int
}

func (s *flakyStore) Record(ctx context.Context, rec model.PublishRecord) error {
	s.mu.Lock()
	if s.fails != 0 {
		if s.fails > 0 {
			s.fails--
		}
		s.mu.Unlock()
		return errors.New("disk full")
	}
	s.mu.Unlock()
	return s.MemoryStore.Record(ctx, rec)
}

func newFixture(t *testing.T, prober mapProber, sources []string, opts ...service.Option) *fixture {
	return newFixtureWithStore(t, repository.NewMemoryStore(), prober, sources, opts...)
}

func newFixtureWithStore(t *testing.T, store dedupe.Store, prober mapProber, sources []string, opts ...service.Option) *fixture {
	f := &fixture{
		ledger:    dedupe.NewLedger(store),
		renderer:  &fakeRenderer{dir: t.TempDir(), failOn: map[string]bool{}},
		publisher: &fakePublisher{},
	}
	base := []service.Option{
		service.WithSources(sources),
		service.WithSlots(slots),
		service.WithClock(func() time.Time { return now }),
		service.WithRand(rand.New(rand.NewSource(1))), //nolint:gosec // deterministic test data
		service.WithRecordRetryDelay(time.Millisecond),
	}
	f.svc = service.New(service.Collaborators{
		Discoverer: discovery.NewCoordinator(prober, discovery.WithMinViews(0), discovery.WithMinConcurrentViewers(0)),
		Signals:    noSignal{},
		Renderer:   f.renderer,
		Channels:   fixedSubs(1200),
		Publisher:  f.publisher,
		Ledger:     f.ledger,
	}, append(base, opts...)...)
	return f
}

func vod(id string, views, likes int64, age time.Duration) model.Candidate {
	return model.Candidate{VideoID: id, ChannelTitle: "Creator " + id, ChannelID: "UC" + id, ViewCount: views, LikeCount: likes, PublishedAt: now.Add(-age)}
}

func TestRunCycle_EndToEnd(t *testing.T) {
	Convey("Given five sources where only the third has content", t, func() {
		ctx := context.Background()
		sources := []string{"s1", "s2", "s3", "s4", "s5"}
		f := newFixture(t, mapProber{"s3": vod("vid3", 200_000, 10_000, 2*time.Hour)}, sources)

		Convey("When a cycle runs", func() {
			report, err := f.svc.RunCycle(ctx)

			Convey("Then exactly one candidate scores 150000", func() {
				So(err, ShouldBeNil)
				So(report.Discovered, ShouldEqual, 1)
				So(report.Ranked, ShouldHaveLength, 1)
				So(report.Ranked[0].Score, ShouldEqual, 150_000.0)
				So(report.Ranked[0].Rank, ShouldEqual, 1)
			})

			Convey("Then it is rendered from the fallback offset and published", func() {
				So(f.renderer.clips, ShouldResemble, []model.ClipSpec{{VideoID: "vid3", StartOffsetSeconds: 15, DurationSeconds: 27}})
				So(report.Published, ShouldHaveLength, 1)
				rec := report.Published[0]
				So(rec.VideoID, ShouldEqual, "vid3")
				So(rec.ExternalID, ShouldEqual, "ext-vid3.mp4")
				So(rec.ScheduledAt.Hour(), ShouldEqual, 14)
				So(rec.ScheduledAt.Day(), ShouldEqual, now.Day())
			})

			Convey("Then the publish minute is the first draw of the seeded source", func() {
				want, err := schedule.NextSlot(now, slots, rand.New(rand.NewSource(1))) //nolint:gosec // deterministic test data
				So(err, ShouldBeNil)
				So(report.Published[0].ScheduledAt, ShouldEqual, want)
			})

			Convey("Then the upload metadata credits the creator", func() {
				md := f.publisher.calls[0]
				So(md.Title, ShouldContainSubstring, "Creator vid3")
				So(md.Description, ShouldContainSubstring, "1200 subs")
				So(md.Description, ShouldContainSubstring, "https://youtu.be/vid3")
			})

			Convey("Then the ledger remembers it and the file is released", func() {
				seen, err := f.ledger.Seen(ctx, "vid3")
				So(err, ShouldBeNil)
				So(seen, ShouldBeTrue)
				_, statErr := os.Stat(filepath.Join(f.renderer.dir, "vid3.mp4"))
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})

			Convey("Then a second cycle skips the published video", func() {
				again, err := f.svc.RunCycle(ctx)
				So(err, ShouldBeNil)
				So(again.SkippedSeen, ShouldResemble, []string{"vid3"})
				So(again.Ranked, ShouldBeEmpty)
				So(f.renderer.rendered(), ShouldHaveLength, 1)
			})
		})
	})
}

func TestRunCycle_LedgerSeen(t *testing.T) {
	Convey("Given a video already in the ledger", t, func() {
		ctx := context.Background()
		f := newFixture(t, mapProber{
			"a": vod("old", 900_000, 0, time.Hour),
			"b": vod("new", 1_000, 0, time.Hour),
		}, []string{"a", "b"})

		ok, err := f.ledger.Claim(ctx, "old")
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
		So(f.ledger.Record(ctx, model.PublishRecord{VideoID: "old", ExternalID: "x", PublishedAt: now}), ShouldBeNil)

		Convey("When it is rediscovered", func() {
			report, err := f.svc.RunCycle(ctx)

			Convey("Then it never reaches the render pipeline", func() {
				So(err, ShouldBeNil)
				So(report.SkippedSeen, ShouldResemble, []string{"old"})
				So(f.renderer.rendered(), ShouldResemble, []string{"new"})
				So(report.Ranked[0].Rank, ShouldEqual, 1)
			})
		})
	})
}

func TestRunCycle_Fallthrough(t *testing.T) {
	Convey("Given the best candidate fails to render", t, func() {
		ctx := context.Background()
		f := newFixture(t, mapProber{
			"a": vod("best", 900_000, 0, time.Hour),
			"b": vod("second", 500_000, 0, time.Hour),
			"c": vod("third", 100_000, 0, time.Hour),
		}, []string{"a", "b", "c"})
		f.renderer.failOn["best"] = true

		Convey("When a cycle runs with one publish per cycle", func() {
			report, err := f.svc.RunCycle(ctx)

			Convey("Then the next-ranked candidate is published and the rest skipped", func() {
				So(err, ShouldBeNil)
				So(f.renderer.rendered(), ShouldResemble, []string{"best", "second"})
				So(report.Published, ShouldHaveLength, 1)
				So(report.Published[0].VideoID, ShouldEqual, "second")
				So(report.Attempted, ShouldEqual, 2)
				So(report.Failures, ShouldHaveLength, 1)
				So(report.JobsProcessed, ShouldEqual, int64(3))
				So(report.JobsFailed, ShouldEqual, int64(1))

				var perr *pipeline.Error
				So(errors.As(report.Failures[0].Err, &perr), ShouldBeTrue)
				So(perr.Stage, ShouldEqual, pipeline.StageEncode)
			})

			Convey("Then the failed candidate stays unseen", func() {
				seen, err := f.ledger.Seen(ctx, "best")
				So(err, ShouldBeNil)
				So(seen, ShouldBeFalse)
				So(f.ledger.Pending(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given every publish is allowed", t, func() {
		f := newFixture(t, mapProber{
			"a": vod("one", 900_000, 0, time.Hour),
			"b": vod("two", 500_000, 0, time.Hour),
		}, []string{"a", "b"}, service.WithPublishOnePerCycle(false), service.WithClipWorkers(2))

		report, err := f.svc.RunCycle(context.Background())
		So(err, ShouldBeNil)
		So(report.Published, ShouldHaveLength, 2)
	})
}

func TestRunCycle_PublishFailure(t *testing.T) {
	Convey("Given a publisher that rejects uploads", t, func() {
		ctx := context.Background()

		Convey("When unpublished files are discarded", func() {
			f := newFixture(t, mapProber{"a": vod("v", 50_000, 0, time.Hour)}, []string{"a"})
			f.publisher.err = errors.New("quota")
			report, err := f.svc.RunCycle(ctx)

			Convey("Then the video stays unseen and the file is removed", func() {
				So(err, ShouldBeNil)
				So(report.Published, ShouldBeEmpty)
				var pf *service.PublishFailedError
				So(errors.As(report.Failures[0].Err, &pf), ShouldBeTrue)
				So(pf.Kept, ShouldBeEmpty)
				seen, _ := f.ledger.Seen(ctx, "v")
				So(seen, ShouldBeFalse)
				_, statErr := os.Stat(filepath.Join(f.renderer.dir, "v.mp4"))
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When unpublished files are kept", func() {
			f := newFixture(t, mapProber{"a": vod("v", 50_000, 0, time.Hour)}, []string{"a"}, service.WithKeepUnpublished(true))
			f.publisher.err = errors.New("quota")
			report, err := f.svc.RunCycle(ctx)

			Convey("Then the rendered file is retained", func() {
				So(err, ShouldBeNil)
				var pf *service.PublishFailedError
				So(errors.As(report.Failures[0].Err, &pf), ShouldBeTrue)
				_, statErr := os.Stat(pf.Kept)
				So(statErr, ShouldBeNil)
			})
		})
	})
}

func TestRunCycle_LedgerWriteFailure(t *testing.T) {
	Convey("Given a ledger store that fails once after the upload", t, func() {
		ctx := context.Background()
		store := &flakyStore{MemoryStore: repository.NewMemoryStore(), fails: 1}
		f := newFixtureWithStore(t, store, mapProber{"a": vod("v", 50_000, 0, time.Hour)}, []string{"a"})

		report, err := f.svc.RunCycle(ctx)

		Convey("Then the write is retried and the clip published once", func() {
			So(err, ShouldBeNil)
			So(report.Failures, ShouldBeEmpty)
			So(report.Published, ShouldHaveLength, 1)
			So(f.publisher.calls, ShouldHaveLength, 1)
			seen, err := store.Seen(ctx, "v")
			So(err, ShouldBeNil)
			So(seen, ShouldBeTrue)
		})
	})

	Convey("Given a ledger store that keeps failing", t, func() {
		ctx := context.Background()
		store := &flakyStore{MemoryStore: repository.NewMemoryStore(), fails: -1}
		f := newFixtureWithStore(t, store, mapProber{
			"a": vod("v", 50_000, 0, time.Hour),
			"b": vod("w", 1_000, 0, time.Hour),
		}, []string{"a", "b"}, service.WithRecordRetries(2))

		report, err := f.svc.RunCycle(ctx)

		Convey("Then the failure names the upload and the claim is kept", func() {
			So(err, ShouldBeNil)
			So(report.Failures, ShouldHaveLength, 1)
			var unrecorded *service.UnrecordedError
			So(errors.As(report.Failures[0].Err, &unrecorded), ShouldBeTrue)
			So(unrecorded.ExternalID, ShouldEqual, "ext-v.mp4")
			So(f.ledger.Pending(), ShouldEqual, 1)
		})

		Convey("Then no other candidate is uploaded in the same cycle", func() {
			So(f.renderer.rendered(), ShouldResemble, []string{"v"})
		})

		Convey("Then the next cycle does not upload it again", func() {
			again, err := f.svc.RunCycle(ctx)
			So(err, ShouldBeNil)
			So(again.SkippedSeen, ShouldContain, "v")
			uploads := 0
			for _, c := range f.publisher.calls {
				if strings.Contains(c.Description, "https://youtu.be/v") {
					uploads++
				}
			}
			So(uploads, ShouldEqual, 1)
		})
	})
}

func TestRunCycle_Errors(t *testing.T) {
	Convey("Given configuration problems", t, func() {
		ctx := context.Background()

		Convey("When there are no sources", func() {
			f := newFixture(t, mapProber{}, nil)
			_, err := f.svc.RunCycle(ctx)
			So(errors.Is(err, discovery.ErrNoSources), ShouldBeTrue)
		})

		Convey("When there are no publish slots", func() {
			f := newFixture(t, mapProber{}, []string{"a"}, service.WithSlots(nil))
			_, err := f.svc.RunCycle(ctx)
			So(errors.Is(err, schedule.ErrNoSlots), ShouldBeTrue)
			So(f.svc.Run(ctx), ShouldNotBeNil)
		})

		Convey("When a publish slot is out of range", func() {
			f := newFixture(t, mapProber{}, []string{"a"}, service.WithSlots([]model.PublishSlot{{Hour: 24, MinuteHigh: 59}}))
			_, err := f.svc.RunCycle(ctx)
			So(errors.Is(err, schedule.ErrInvalidSlot), ShouldBeTrue)
			So(f.svc.Run(ctx), ShouldNotBeNil)
		})

		Convey("When nothing qualifies", func() {
			Convey("Then the cycle is an empty success by default", func() {
				f := newFixture(t, mapProber{}, []string{"a"})
				report, err := f.svc.RunCycle(ctx)
				So(err, ShouldBeNil)
				So(report.Ranked, ShouldBeEmpty)
			})

			Convey("Then it fails when candidates are required", func() {
				f := newFixture(t, mapProber{}, []string{"a"}, service.WithRequireCandidates(true))
				_, err := f.svc.RunCycle(ctx)
				So(errors.Is(err, discovery.ErrNoCandidates), ShouldBeTrue)
			})
		})
	})
}

func TestService_Stats(t *testing.T) {
	Convey("Given a service after one cycle", t, func() {
		f := newFixture(t, mapProber{"a": vod("v", 50_000, 0, time.Hour)}, []string{"a"})
		_, err := f.svc.RunCycle(context.Background())
		So(err, ShouldBeNil)

		stats := f.svc.GetStats()
		So(stats["cycles"], ShouldEqual, int64(1))
		So(stats["published"], ShouldEqual, int64(1))
		So(stats["ledgerSize"], ShouldEqual, int64(1))
		So(stats["jobsProcessed"], ShouldEqual, int64(1))
		So(stats["running"], ShouldBeFalse)
		So(stats["lastCycle"], ShouldNotBeNil)
	})
}

func TestService_Run(t *testing.T) {
	Convey("Given a repeating service", t, func() {
		f := newFixture(t, mapProber{}, []string{"a"}, service.WithCycleInterval(10*time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		Convey("Then it runs cycles until cancelled", func() {
			So(f.svc.Run(ctx), ShouldBeNil)
			So(f.svc.GetStats()["cycles"], ShouldBeGreaterThan, int64(1))
		})
	})
}

func TestService_Trigger(t *testing.T) {
	Convey("Given a triggered cycle", t, func() {
		f := newFixture(t, mapProber{"a": vod("v", 50_000, 0, time.Hour)}, []string{"a"})
		So(f.svc.Trigger(context.Background()), ShouldBeNil)

		Convey("Then it completes in the background", func() {
			deadline := time.Now().Add(2 * time.Second)
			for f.svc.GetStats()["cycles"] != int64(1) && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(f.svc.GetStats()["cycles"], ShouldEqual, int64(1))
			So(f.svc.GetStats()["published"], ShouldEqual, int64(1))
		})
	})
}

// slowCleanupRenderer blocks until its context is done and then spends
// cleanup before returning, like a render killing tools and removing files.
type slowCleanupRenderer struct {
	started chan struct{}
	once    sync.Once
	cleanup time.Duration
	cleaned atomic.Bool
}

func (r *slowCleanupRenderer) Run(ctx context.Context, _ model.ClipSpec) (*pipeline.Result, error) {
	r.once.Do(func() { close(r.started) })
	<-ctx.Done()
	time.Sleep(r.cleanup)
	r.cleaned.Store(true)
	return nil, ctx.Err()
}

func newDrainService(r *slowCleanupRenderer, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithSources([]string{"a"}),
		service.WithSlots(slots),
		service.WithClock(func() time.Time { return now }),
		service.WithCycleInterval(time.Hour),
	}
	return service.New(service.Collaborators{
		Discoverer: discovery.NewCoordinator(mapProber{"a": vod("v", 50_000, 0, time.Hour)},
			discovery.WithMinViews(0), discovery.WithMinConcurrentViewers(0)),
		Signals:   noSignal{},
		Renderer:  r,
		Publisher: &fakePublisher{},
		Ledger:    dedupe.NewLedger(repository.NewMemoryStore()),
	}, append(base, opts...)...)
}

func TestService_RunDrainsTriggeredCycle(t *testing.T) {
	Convey("Given a triggered cycle still rendering", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r := &slowCleanupRenderer{started: make(chan struct{}), cleanup: 300 * time.Millisecond}
		svc := newDrainService(r)
		So(svc.Trigger(ctx), ShouldBeNil)
		<-r.started

		Convey("When Run is cancelled", func() {
			cancel()
			err := svc.Run(ctx)

			Convey("Then it returns only after the cycle cleaned up", func() {
				So(err, ShouldBeNil)
				So(r.cleaned.Load(), ShouldBeTrue)
				So(svc.GetStats()["cycles"], ShouldEqual, int64(1))
			})

			Convey("Then later triggers are refused", func() {
				So(errors.Is(svc.Trigger(context.Background()), service.ErrStopping), ShouldBeTrue)
			})
		})
	})

	Convey("Given a drain timeout shorter than the cleanup", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		r := &slowCleanupRenderer{started: make(chan struct{}), cleanup: 300 * time.Millisecond}
		svc := newDrainService(r, service.WithDrainTimeout(20*time.Millisecond))
		So(svc.Trigger(ctx), ShouldBeNil)
		<-r.started
		cancel()

		err := svc.Run(ctx)
		So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		So(r.cleaned.Load(), ShouldBeFalse)

		So(svc.Drain(context.Background()), ShouldBeNil)
		So(r.cleaned.Load(), ShouldBeTrue)
	})
}
