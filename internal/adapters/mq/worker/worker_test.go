package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	queue "github.com/okian/viralclip/internal/adapters/mq/queue"
	worker "github.com/okian/viralclip/internal/adapters/mq/worker"
	model "github.com/okian/viralclip/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func job(id string, rank int) queue.Job {
	return queue.Job{Candidate: model.ScoredCandidate{Candidate: model.Candidate{VideoID: id}, Rank: rank}}
}

type recorder struct {
	mu   sync.Mutex
	seen []string
	fail map[string]error
}

func (r *recorder) Handle(_ context.Context, j queue.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, j.Candidate.VideoID)
	return r.fail[j.Candidate.VideoID]
}

func TestPool(t *testing.T) {
	convey.Convey("Given a closed queue with three jobs", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(3))
		for i, id := range []string{"a", "b", "c"} {
			convey.So(q.Enqueue(ctx, job(id, i+1)), convey.ShouldBeNil)
		}
		convey.So(q.Close(), convey.ShouldBeNil)

		convey.Convey("When a single worker drains it", func() {
			rec := &recorder{fail: map[string]error{"b": errors.New("render failed")}}
			pool := worker.NewPool(ctx, 1, q, rec)
			pool.Start(ctx)
			pool.Wait()

			convey.Convey("Then jobs run in rank order and failures do not stop the worker", func() {
				convey.So(rec.seen, convey.ShouldResemble, []string{"a", "b", "c"})
				convey.So(pool.Processed(), convey.ShouldEqual, int64(3))
				convey.So(pool.Failed(), convey.ShouldEqual, int64(1))
			})
		})

		convey.Convey("When several workers drain it", func() {
			var n atomic.Int32
			pool := worker.NewPool(ctx, 3, q, worker.HandlerFunc(func(context.Context, queue.Job) error {
				n.Add(1)
				return nil
			}))
			pool.Start(ctx)
			pool.Wait()

			convey.Convey("Then every job is handled exactly once", func() {
				convey.So(n.Load(), convey.ShouldEqual, int32(3))
			})
		})
	})

	convey.Convey("Given an open queue and a slow handler", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		started := make(chan struct{}, 1)
		pool := worker.NewPool(ctx, 2, q, worker.HandlerFunc(func(context.Context, queue.Job) error {
			started <- struct{}{}
			time.Sleep(20 * time.Millisecond)
			return nil
		}))
		pool.Start(ctx)
		convey.So(q.Enqueue(ctx, job("x", 1)), convey.ShouldBeNil)
		<-started

		convey.Convey("When the pool is shut down", func() {
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is closed and workers exit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				pool.Wait()
			})
		})
	})

	convey.Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(ctx, 2, q, worker.HandlerFunc(func(context.Context, queue.Job) error { return nil }))
		pool.Start(ctx)
		cancel()

		convey.Convey("Then Wait returns without the queue closing", func() {
			done := make(chan struct{})
			go func() {
				pool.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("pool did not stop")
			}
			convey.So(q.IsClosed(), convey.ShouldBeFalse)
		})
	})
}

func TestPool_ShutdownTimeout(t *testing.T) {
	convey.Convey("Given a worker stuck in its handler", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		release := make(chan struct{})
		started := make(chan struct{})
		pool := worker.NewPool(ctx, 1, q, worker.HandlerFunc(func(context.Context, queue.Job) error {
			close(started)
			<-release
			return nil
		}))
		pool.Start(ctx)
		convey.So(q.Enqueue(ctx, job("x", 1)), convey.ShouldBeNil)
		<-started

		convey.Convey("When shutdown is bounded by a short deadline", func() {
			sctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(sctx)
			close(release)
			pool.Wait()

			convey.Convey("Then the timeout is reported", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
				convey.So(pool.Processed(), convey.ShouldEqual, int64(1))
			})
		})
	})
}

func TestWorker_Shutdown(t *testing.T) {
	convey.Convey("Given a worker waiting on an empty channel", t, func() {
		jobs := make(chan queue.Job)
		w := worker.NewInMemoryWorker(jobs, worker.HandlerFunc(func(context.Context, queue.Job) error { return nil }),
			worker.WithName("w1"))
		go w.Run(context.Background())

		convey.Convey("When shut down twice", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}
