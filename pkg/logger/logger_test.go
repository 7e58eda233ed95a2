package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with the default format", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				l := Get()
				So(l, ShouldNotBeNil)
				So(func() { l.Info(context.Background(), "hello", String("k", "v")) }, ShouldNotPanic)
			})
		})

		Convey("When initialized with json", func() {
			So(InitWithFormat("json"), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWithFormat("xml")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown log format")
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a json logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(initTo(&buf, "json"), ShouldBeNil)
		SetLevel(slog.LevelInfo)
		defer func() { _ = Init() }()

		Convey("When logging through a named logger with fields", func() {
			Named("probe").With(String("source_id", "UC123")).Info(context.Background(), "probe finished",
				Int("items", 2),
				Duration("took", 1500*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the record carries component, fields and source", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "probe finished")
				So(rec["component"], ShouldEqual, "probe")
				So(rec["source_id"], ShouldEqual, "UC123")
				So(rec["items"], ShouldEqual, float64(2))
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is above the record level", func() {
			SetLevel(slog.LevelWarn)
			Get().Info(context.Background(), "dropped")
			So(buf.Len(), ShouldEqual, 0)
		})

		Convey("When logging with a nil context", func() {
			So(func() { Get().Warn(nil, "nil ctx") }, ShouldNotPanic) //nolint:staticcheck // nil ctx is tolerated
			So(strings.Contains(buf.String(), "nil ctx"), ShouldBeTrue)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "WARN", "warning", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		_ = SetLevelString("info")
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()
		So(func() {
			l.Error(context.Background(), "ignored")
			l.Named("x").With(Bool("b", true)).Debug(context.Background(), "ignored")
		}, ShouldNotPanic)
	})
}
