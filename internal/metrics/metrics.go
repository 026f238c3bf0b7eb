// Package metrics exposes Prometheus collectors for fetches and scans.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"TickerScope/internal/collector"
	"TickerScope/internal/model"
)

const namespace = "tickerscope"

// Fetch status labels.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
	StatusError  = "error"
)

// OutcomeScored labels symbols that produced a result. Excluded symbols use
// their exclusion reason.
const OutcomeScored = "scored"

var fetchBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}

var scanBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200}

// Metrics holds every collector of the application.
type Metrics struct {
	FetchRequestsTotal *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec
	BreakerState       *prometheus.GaugeVec
	BreakerTrips       *prometheus.CounterVec

	SymbolsTotal     *prometheus.CounterVec
	ScansTotal       prometheus.Counter
	ScanDuration     prometheus.Histogram
	LastResultCount  prometheus.Gauge
	LastScanUnixTime prometheus.Gauge
}

// New registers all collectors on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FetchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "requests_total",
				Help:      "Daily bar requests by provider and status",
			},
			[]string{"provider", "status"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "duration_seconds",
				Help:      "Duration of daily bar requests in seconds",
				Buckets:   fetchBuckets,
			},
			[]string{"provider"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of the provider circuit breaker (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),
		BreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Number of times the provider circuit breaker opened",
			},
			[]string{"provider"},
		),
		SymbolsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "symbols_total",
				Help:      "Requested symbols by outcome",
			},
			[]string{"outcome"},
		),
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Completed scans",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of a full scan in seconds",
			Buckets:   scanBuckets,
		}),
		LastResultCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "last_result_count",
			Help:      "Number of scored symbols in the latest scan",
		}),
		LastScanUnixTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "last_run_timestamp_seconds",
			Help:      "Start time of the latest scan",
		}),
	}
}

// ObserveFetch records one provider request.
func (m *Metrics) ObserveFetch(provider string, elapsed time.Duration, err error) {
	status := StatusOK
	switch {
	case errors.Is(err, collector.ErrNoData):
		status = StatusNoData
	case err != nil:
		status = StatusError
	}
	m.FetchRequestsTotal.WithLabelValues(provider, status).Inc()
	m.FetchDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveBreaker records a circuit breaker transition.
func (m *Metrics) ObserveBreaker(provider string, state gobreaker.State) {
	m.BreakerState.WithLabelValues(provider).Set(breakerValue(state))
	if state == gobreaker.StateOpen {
		m.BreakerTrips.WithLabelValues(provider).Inc()
	}
}

// ObserveScan records a finished scan report.
func (m *Metrics) ObserveScan(rep *model.Report) {
	if rep == nil {
		return
	}
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(rep.Duration.Seconds())
	m.LastResultCount.Set(float64(len(rep.Results)))
	m.LastScanUnixTime.Set(float64(rep.StartedAt.Unix()))
	if n := len(rep.Results); n > 0 {
		m.SymbolsTotal.WithLabelValues(OutcomeScored).Add(float64(n))
	}
	for _, ex := range rep.Excluded {
		m.SymbolsTotal.WithLabelValues(ex.Reason).Inc()
	}
}

func breakerValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
