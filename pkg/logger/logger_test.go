package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialised with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialised with an unknown format", func() {
			err := InitWithWriter(&bytes.Buffer{}, Format("xml"))

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When initialised with a nil writer", func() {
			So(InitWithWriter(nil, FormatText), ShouldNotBeNil)
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, FormatJSON), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging structured fields", func() {
			Named("ledger").Info(ctx, "team added",
				String("team", "Alpha"),
				Int("index", 2),
				Bool("rebuilt", true),
				Duration("took", time.Millisecond),
			)

			Convey("Then the record carries every field under the group", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "team added")
				group, ok := rec["ledger"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["team"], ShouldEqual, "Alpha")
				So(group["index"], ShouldEqual, float64(2))
				So(group["rebuilt"], ShouldEqual, true)
				So(group["source"], ShouldContainSubstring, "logger_test.go")
			})
		})
	})
}

func TestLoggerLevels(t *testing.T) {
	Convey("Given a text logger", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, FormatText), ShouldBeNil)
		ctx := context.Background()

		Convey("When the level is warn", func() {
			So(SetLevelString("WARN"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then info records are suppressed", func() {
				So(strings.Contains(buf.String(), "hidden"), ShouldBeFalse)
				So(strings.Contains(buf.String(), "shown"), ShouldBeTrue)
			})
		})

		Convey("When the level is unknown", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})

		Reset(func() { _ = SetLevelString("info") })
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then logging does not panic", func() {
			So(func() { l.Named("x").Error(context.Background(), "dropped", Error(nil)) }, ShouldNotPanic)
		})
	})
}
