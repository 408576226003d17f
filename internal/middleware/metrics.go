package middleware

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
)

// DurationBuckets spans typical third-party API latencies, 10ms to 60s.
var DurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics holds the Prometheus collectors fed by MetricsPipe.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// that are already registered are reused, so several connectors can share
// one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_requests_total",
			Help: "Requests sent by connectors",
		},
		[]string{"connector", "method", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connector_request_duration_seconds",
			Help:    "Transport duration of connector requests",
			Buckets: DurationBuckets,
		},
		[]string{"connector", "method"},
	)

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}

	return &Metrics{RequestsTotal: requests, RequestDuration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// MetricsPipe records one request count and one duration observation per
// response.
func MetricsPipe(m *Metrics) ResponsePipe {
	return func(ctx context.Context, resp *domain.Response) (*domain.Response, error) {
		connector, method := "", ""
		if resp.Request != nil {
			connector, method = resp.Request.Connector, resp.Request.Method
		}

		m.RequestsTotal.WithLabelValues(connector, method, resp.StatusClass()).Inc()
		m.RequestDuration.WithLabelValues(connector, method).Observe(resp.Duration.Seconds())
		return nil, nil
	}
}
