package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	availableSpots  prometheus.Gauge
	bookingEvents   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		availableSpots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parking",
			Name:      "available_spots",
			Help:      "Number of parking slots currently available.",
		}),
		bookingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "booking_events_total",
			Help:      "Booking state changes by action.",
		}, []string{"action"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.availableSpots,
		m.bookingEvents,
		m.logins,
		m.requestDuration,
	)
	return m
}

// SetAvailableSpots records the current available slot count.
func (m *Metrics) SetAvailableSpots(n int) {
	if m == nil {
		return
	}
	m.availableSpots.Set(float64(n))
}

// BookingEvent counts a reserve, release or expire.
func (m *Metrics) BookingEvent(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bookingEvents.WithLabelValues(action).Add(float64(n))
}

// Login counts a login attempt; result is e.g. "otp_sent", "invalid_credentials", "verified".
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
