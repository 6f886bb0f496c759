package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)

	RelayConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "relay_connections", Help: "Open realtime connections"},
	)
	RelayRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "relay_rooms", Help: "Rooms with at least one member"},
	)
	RelayBroadcasts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "relay_broadcasts_total", Help: "update-event messages fanned out"},
	)

	MailSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mail_sent_total", Help: "Notification emails by result"},
		[]string{"transport", "result"},
	)
)

var once sync.Once

// MustRegister registers every collector with the default registry. Safe to call twice.
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(RequestsTotal, ReqDuration, InFlight,
			RelayConnections, RelayRooms, RelayBroadcasts, MailSent)
	})
}
