package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every collector is registered", func() {
				So(m, ShouldNotBeNil)
				m.ledgerRebuilds.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(families[0].GetName(), ShouldStartWith, "test_unit_")
			})
		})

		Convey("When registering twice on the same registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto panics on the duplicate", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ledger activity", func() {
			before := testutil.ToFloat64(globalManager.ledgerRebuilds)
			RecordRebuild(1.5)
			UpdateLedgerSize(3, 10)
			RecordMutation("add_team")
			RecordRejection("add_team", "duplicate")
			RecordRangeQuery(0.2)
			UpdateSnapshotVersion(4)

			Convey("Then the collectors reflect it", func() {
				So(testutil.ToFloat64(globalManager.ledgerRebuilds), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.ledgerTeams), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.ledgerMatches), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.snapshotVersion), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.ledgerRejections.WithLabelValues("add_team", "duplicate")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording pipeline and HTTP activity", func() {
			So(func() {
				RecordMatchDuplicate()
				UpdateQueueSize(2)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("full")
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessed(0.3)
				RecordWorkerError()
				RecordHTTPRequest("leader", "GET", "200", 0.1)
				RecordRateLimited("teams")
				RecordErrorByComponent("worker", "unknown_team")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)

			Convey("Then the registry exposes them", func() {
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
				count, err := testutil.GatherAndCount(GetRegistry(), "rangeboard_ledger_http_requests_total")
				So(err, ShouldBeNil)
				So(count, ShouldBeGreaterThan, 0)
			})
		})
	})
}
