package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("clips"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithStageBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)
			manager.probes.WithLabelValues("found").Inc()

			Convey("Then metric names carry the namespace and subsystem", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_clips_probes_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording probe outcomes", func() {
			before := testutil.ToFloat64(globalManager.probes.WithLabelValues("quota"))
			RecordProbe("quota", 0.2)

			Convey("Then the outcome counter increases", func() {
				So(testutil.ToFloat64(globalManager.probes.WithLabelValues("quota")), ShouldEqual, before+1)
			})
		})

		Convey("When recording pipeline and publish metrics", func() {
			beforeFail := testutil.ToFloat64(globalManager.stageFailures.WithLabelValues("encode"))
			RecordStageLatency("encode", 3)
			RecordStageFailure("encode")
			RecordStageRetry("acquire")
			RecordClipRendered()
			RecordPublish("success")
			RecordCycle("published", 12)
			UpdateLedgerSize(7)
			UpdateQueueSize(2)
			UpdateWorkerCount(4)

			Convey("Then gauges and counters reflect the values", func() {
				So(testutil.ToFloat64(globalManager.stageFailures.WithLabelValues("encode")), ShouldEqual, beforeFail+1)
				So(testutil.ToFloat64(globalManager.ledgerSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("When recording discovery and HTTP metrics", func() {
			So(func() {
				RecordCandidateFound()
				RecordCandidateBelowThreshold()
				RecordCandidateDuplicate()
				RecordHTTPRequest("healthz", "GET", "200", 0.001)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
