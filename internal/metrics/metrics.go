package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GenerateRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reportcard", Name: "generate_total", Help: "Report card versions generated",
	})
	GenerateErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reportcard", Name: "generate_errors_total", Help: "Failed generation attempts",
	})
	VersionConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reportcard", Name: "version_conflicts_total", Help: "Version number allocation races (retried)",
	})
	Publications = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reportcard", Name: "publish_total", Help: "Versions released",
	})
	MarksImported = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reportcard", Name: "marks_imported_total", Help: "Student marks ingested from mark sheets",
	})
	RankingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reportcard", Name: "ranking_seconds", Help: "Class aggregation and ranking duration",
		Buckets: prometheus.DefBuckets,
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reportcard", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(GenerateRuns, GenerateErrors, VersionConflicts, Publications, MarksImported, RankingDuration, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveRanking(d time.Duration) { RankingDuration.Observe(d.Seconds()) }
