package moment_test

import (
	"math/rand"
	"testing"

	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/internal/domain/moment"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSelect(t *testing.T) {
	Convey("Given the default weights", t, func() {
		Convey("When the signal is empty", func() {
			Convey("Then the fallback is returned as is", func() {
				So(moment.Select(nil, 60, 15), ShouldEqual, 15)
				So(moment.Select(model.EngagementSignal{}, 10, 42), ShouldEqual, 42)
			})
		})

		Convey("When one entry dominates", func() {
			signal := model.EngagementSignal{
				{OffsetSeconds: 0, Intensity: 0.1},
				{OffsetSeconds: 20, Intensity: 0.9, LikeWeight: 0.5},
				{OffsetSeconds: 40, Intensity: 0.3},
			}
			So(moment.Select(signal, 60, 15), ShouldEqual, 20)
		})

		Convey("When like weight tips the balance", func() {
			signal := model.EngagementSignal{
				{OffsetSeconds: 5, Intensity: 0.5, LikeWeight: 0},    // 0.35
				{OffsetSeconds: 30, Intensity: 0.4, LikeWeight: 0.5}, // 0.43
			}
			So(moment.Select(signal, 60, 15), ShouldEqual, 30)
		})

		Convey("When the best entry is past maxOffset", func() {
			signal := model.EngagementSignal{
				{OffsetSeconds: 10, Intensity: 0.2},
				{OffsetSeconds: 70, Intensity: 1.0},
			}
			So(moment.Select(signal, 60, 15), ShouldEqual, 10)
		})

		Convey("When maxima tie", func() {
			signal := model.EngagementSignal{
				{OffsetSeconds: 45, Intensity: 0.8},
				{OffsetSeconds: 12, Intensity: 0.8},
				{OffsetSeconds: 30, Intensity: 0.8},
			}
			Convey("Then the earliest offset wins regardless of order", func() {
				So(moment.Select(signal, 60, 15), ShouldEqual, 12)
			})
		})

		Convey("When no entry is in range", func() {
			signal := model.EngagementSignal{{OffsetSeconds: 90, Intensity: 1}}

			Convey("Then the fallback is clamped below maxOffset", func() {
				So(moment.Select(signal, 60, 15), ShouldEqual, 15)
				So(moment.Select(signal, 10, 15), ShouldEqual, 9)
			})
		})

		Convey("When signals are random", func() {
			rng := rand.New(rand.NewSource(3)) //nolint:gosec // deterministic test data

			Convey("Then the offset is always below maxOffset", func() {
				for i := 0; i < 200; i++ {
					n := rng.Intn(20) + 1
					signal := make(model.EngagementSignal, n)
					for j := range signal {
						signal[j] = model.SignalPoint{
							OffsetSeconds: rng.Intn(120),
							Intensity:     rng.Float64(),
							LikeWeight:    rng.Float64(),
						}
					}
					maxOffset := rng.Intn(100) + 1
					So(moment.Select(signal, maxOffset, 15), ShouldBeLessThan, maxOffset)
				}
			})
		})
	})
}

func TestSelectWeighted(t *testing.T) {
	Convey("Given intensity-only weights", t, func() {
		signal := model.EngagementSignal{
			{OffsetSeconds: 5, Intensity: 0.5, LikeWeight: 0},
			{OffsetSeconds: 30, Intensity: 0.4, LikeWeight: 0.5},
		}
		So(moment.SelectWeighted(signal, 60, 15, 1, 0), ShouldEqual, 5)
	})
}

func TestSelector(t *testing.T) {
	Convey("Given a selector with custom options", t, func() {
		s := moment.NewSelector(
			moment.WithWeights(0, 1),
			moment.WithMaxOffset(30),
			moment.WithFallback(5),
			moment.WithDuration(20),
		)

		Convey("When building a clip from an empty signal", func() {
			clip := s.Clip("vid", nil)
			So(clip, ShouldResemble, model.ClipSpec{VideoID: "vid", StartOffsetSeconds: 5, DurationSeconds: 20})
		})

		Convey("When only like weight counts", func() {
			signal := model.EngagementSignal{
				{OffsetSeconds: 3, Intensity: 1, LikeWeight: 0.1},
				{OffsetSeconds: 8, Intensity: 0, LikeWeight: 0.2},
			}
			So(s.Offset(signal), ShouldEqual, 8)
		})
	})

	Convey("Given invalid options", t, func() {
		s := moment.NewSelector(moment.WithWeights(-1, 0), moment.WithMaxOffset(0), moment.WithDuration(0))

		Convey("Then defaults are kept", func() {
			clip := s.Clip("v", nil)
			So(clip.StartOffsetSeconds, ShouldEqual, moment.DefaultFallback)
			So(clip.DurationSeconds, ShouldEqual, moment.DefaultDuration)
		})
	})
}
