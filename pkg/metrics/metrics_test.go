package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors are registered under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.searchTrials.Add(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "survivor_recommender_search_trials_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)
			manager.reservoirSize.Set(7)

			Convey("Then names use the custom namespace and subsystem", func() {
				So(testutil.ToFloat64(manager.reservoirSize), ShouldEqual, 7)
				count, err := testutil.GatherAndCount(registry, "test_unit_reservoir_size")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When empty option values are passed", func() {
			m := &Manager{namespace: "keep", subsystem: "keep"}
			WithNamespace("")(m)
			WithSubsystem("")(m)
			WithHistogramBuckets(nil)(m)
			WithPrometheusRegistry(nil)(m)

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "keep")
				So(m.subsystem, ShouldEqual, "keep")
				So(m.histogramBuckets, ShouldBeNil)
				So(m.registry, ShouldBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording search metrics", func() {
			before := testutil.ToFloat64(globalManager.searchTrials)
			RecordSearchTrials(10)
			RecordSearchPrunedTrials(2)
			RecordSearchDeadTrials(1)
			RecordExhaustivePaths(4)
			RecordExhaustiveDeadEnds(1)
			RecordScoreUnderflows(0)
			RecordSearchDuration("randomized", 0.2)
			UpdateBestScore(0.504)
			RecordRecommendation("ok")

			Convey("Then counters and gauges move", func() {
				So(testutil.ToFloat64(globalManager.searchTrials)-before, ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.searchBestScore), ShouldEqual, 0.504)
			})
		})

		Convey("When recording reservoir, queue and worker metrics", func() {
			So(func() {
				RecordReservoirInsert()
				RecordReservoirDuplicate()
				RecordReservoirTrim()
				UpdateReservoirSize(100)
				UpdateQueueCapacity(64)
				UpdateQueueSize(3)
				UpdateQueueUtilization(3.0 / 64)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(0.5)
				UpdateWorkerActiveCount(4)
				RecordWorkerBatchProcessed()
				RecordWorkerProcessingLatency(12)
				RecordWorkerError()
			}, ShouldNotPanic)
		})

		Convey("When recording collaborator, HTTP and error metrics", func() {
			So(func() {
				RecordScrapeRequest("standings", "ok")
				RecordHistoryOperation("save", "ok")
				RecordHTTPRequest("/recommendations", "POST", "200")
				RecordHTTPRequestDuration("/recommendations", "POST", "200", 15)
				RecordErrorByComponent("search", "no_feasible_path")
				RecordErrorByType("validation", "low")
				RecordErrorByEndpoint("/recommendations", "POST", "invalid_input")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("When exporting the custom registry", func() {
			RecordHTTPRequest("/healthz", "GET", "200")
			families, err := GetRegistry().Gather()

			Convey("Then only service metrics are present", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "survivor_recommender_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent writers", t, func() {
		before := testutil.ToFloat64(globalManager.reservoirInserts)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordReservoirInsert()
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.reservoirInserts)-before, ShouldEqual, 800)
	})
}
