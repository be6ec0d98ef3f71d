// Package metrics exposes booking counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking outcomes used as the "outcome" label.
const (
	OutcomeBooked           = "booked"
	OutcomeInvalid          = "invalid_argument"
	OutcomeNotFound         = "not_found"
	OutcomeCapacityExceeded = "capacity_exceeded"
	OutcomeDuplicate        = "duplicate_booking"
	OutcomeBusy             = "busy"
	OutcomeStorage          = "storage_failure"
)

type Metrics struct {
	reg *prometheus.Registry

	bookings     *prometheus.CounterVec
	bookLatency  *prometheus.HistogramVec
	seatsBooked  prometheus.Counter
	httpRequests *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		reg: reg,
		bookings: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking attempts by outcome.",
		}, []string{"outcome"}),
		bookLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booking_duration_seconds",
			Help:    "Time spent in Book, including the wait for the event lock.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 6},
		}, []string{"outcome"}),
		seatsBooked: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "seats_booked_total",
			Help: "Seats committed by successful bookings.",
		}),
		httpRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),
	}
}

// ObserveBooking records one Book call.
func (m *Metrics) ObserveBooking(outcome string, seats int, d time.Duration) {
	m.bookings.WithLabelValues(outcome).Inc()
	m.bookLatency.WithLabelValues(outcome).Observe(d.Seconds())
	if outcome == OutcomeBooked {
		m.seatsBooked.Add(float64(seats))
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{
		// Opt into OpenMetrics e.g. to support exemplars.
		EnableOpenMetrics: true,
	})
}
