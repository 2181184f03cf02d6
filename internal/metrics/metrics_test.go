package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on a fresh registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithRegistry(registry), WithNamespace("test"))

		Convey("When the pipeline reports progress", func() {
			m.RecordsDropped("money", 2)
			m.RecordsDropped("unknown_kind", 1)
			m.RoundEmitted()
			m.RoundEmitted()
			m.RoundSkipped("snapshot_unavailable")
			m.MatchProcessed(OutcomeOK, 150*time.Millisecond)
			m.ValidationFailures("money_range", 3)
			m.ValidationFailures("pistol_round", 0)

			Convey("Then the counters reflect it", func() {
				So(testutil.ToFloat64(m.recordsDropped.WithLabelValues("money")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.roundsEmitted), ShouldEqual, 2)
				So(testutil.ToFloat64(m.roundsSkipped.WithLabelValues("snapshot_unavailable")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.matchesProcessed.WithLabelValues(OutcomeOK)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.validationFailures.WithLabelValues("money_range")), ShouldEqual, 3)
				So(testutil.CollectAndCount(m.validationFailures), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.matchDuration), ShouldEqual, 1)
			})

			Convey("Then they can be written as a textfile", func() {
				path := filepath.Join(t.TempDir(), "csfeatures.prom")
				So(m.WriteTextfile(path), ShouldBeNil)

				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(strings.Contains(string(data), "test_pipeline_rounds_emitted_total 2"), ShouldBeTrue)
			})
		})
	})
}
