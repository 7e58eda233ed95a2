package moment_test

import (
	"testing"

	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/internal/domain/moment"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseHeatmap(t *testing.T) {
	Convey("Given an info document with heatmap markers", t, func() {
		doc := []byte(`{"id":"abc","duration":90,"heatmap":[
			{"start_time":0.0,"end_time":4.5,"value":0.2},
			{"start_time":4.5,"end_time":9.0,"value":1.0},
			{"start_time":-1,"end_time":0,"value":0.9}
		]}`)

		Convey("When parsing", func() {
			signal, err := moment.ParseHeatmap(doc)

			Convey("Then markers become signal points", func() {
				So(err, ShouldBeNil)
				So(signal, ShouldResemble, model.EngagementSignal{
					{OffsetSeconds: 0, Intensity: 0.2},
					{OffsetSeconds: 4, Intensity: 1.0},
				})
				So(moment.Select(signal, 60, 15), ShouldEqual, 4)
			})
		})
	})

	Convey("Given a document without a heatmap", t, func() {
		signal, err := moment.ParseHeatmap([]byte(`{"id":"abc","heatmap":null}`))
		So(err, ShouldBeNil)
		So(signal, ShouldBeEmpty)
		So(moment.Select(signal, 60, 15), ShouldEqual, 15)
	})

	Convey("Given markers with out-of-range start times", t, func() {
		doc := []byte(`{"heatmap":[
			{"start_time":1e300,"end_time":1e300,"value":1.0},
			{"start_time":2147483648,"end_time":2147483650,"value":1.0},
			{"start_time":2.0,"end_time":4.0,"value":0.5}
		]}`)

		Convey("Then only representable offsets are kept", func() {
			signal, err := moment.ParseHeatmap(doc)
			So(err, ShouldBeNil)
			So(signal, ShouldResemble, model.EngagementSignal{{OffsetSeconds: 2, Intensity: 0.5}})
		})
	})

	Convey("Given malformed JSON", t, func() {
		_, err := moment.ParseHeatmap([]byte(`{`))
		So(err, ShouldNotBeNil)
	})
}
