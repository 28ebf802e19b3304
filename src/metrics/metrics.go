package metrics

import (
	"net/http"

	"market-flipper/src/interfaces"
	"market-flipper/src/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ interfaces.IEngineObserver = (*Collector)(nil)

// -----------------------------------------------------------------------------
// Collector exports engine and tick statistics to Prometheus.
// -----------------------------------------------------------------------------

type Collector struct {
	Registry *prometheus.Registry

	TicksTotal      prometheus.Counter
	FeedNotReady    prometheus.Counter
	TickDuration    prometheus.Histogram
	EngineDuration  *prometheus.HistogramVec
	EngineErrors    *prometheus.CounterVec
	Candidates      *prometheus.GaugeVec
	PublishedTotal  *prometheus.CounterVec
	JournalWrites   *prometheus.CounterVec
	FeedFetchErrors prometheus.Counter
}

// -----------------------------------------------------------------------------

// NewCollector registers all series on a private registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "flipper"
	}

	c := &Collector{
		Registry: prometheus.NewRegistry(),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total", Help: "Ticks processed",
		}),
		FeedNotReady: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "feed_not_ready_total", Help: "Ticks skipped because the feed was not ready",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of a full tick",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		EngineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_duration_seconds",
			Help:      "Wall time of one engine per tick",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"engine"}),
		EngineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "engine_errors_total", Help: "Recovered engine failures",
		}, []string{"engine"}),
		Candidates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "candidates", Help: "Size of the last published list",
		}, []string{"engine"}),
		PublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshots_published_total", Help: "Snapshots replaced",
		}, []string{"engine"}),
		JournalWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "journal_writes_total", Help: "Journal writes by outcome",
		}, []string{"outcome"}),
		FeedFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "feed_fetch_errors_total", Help: "Failed wiki refreshes",
		}),
	}

	c.Registry.MustRegister(
		c.TicksTotal, c.FeedNotReady, c.TickDuration,
		c.EngineDuration, c.EngineErrors, c.Candidates, c.PublishedTotal,
		c.JournalWrites, c.FeedFetchErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// -----------------------------------------------------------------------------
// IEngineObserver
// -----------------------------------------------------------------------------

func (c *Collector) ObserveEngine(r models.MEngineReport) {
	c.EngineDuration.WithLabelValues(r.Engine).Observe(r.DurationSeconds)
	if r.Error != "" {
		c.EngineErrors.WithLabelValues(r.Engine).Inc()
	}
	if r.Published {
		c.PublishedTotal.WithLabelValues(r.Engine).Inc()
	}
	c.Candidates.WithLabelValues(r.Engine).Set(float64(r.Candidates))
}

// -----------------------------------------------------------------------------

func (c *Collector) ObserveTick(r models.MTickReport) {
	c.TicksTotal.Inc()
	c.TickDuration.Observe(r.TotalDurationSeconds)
	if !r.FeedReady {
		c.FeedNotReady.Inc()
	}
}

// -----------------------------------------------------------------------------

// ObserveJournal counts journal writes; err == nil is a success.
func (c *Collector) ObserveJournal(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.JournalWrites.WithLabelValues(outcome).Inc()
}

// ObserveFeedError counts one failed feed refresh.
func (c *Collector) ObserveFeedError() {
	c.FeedFetchErrors.Inc()
}

// -----------------------------------------------------------------------------

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})
}
