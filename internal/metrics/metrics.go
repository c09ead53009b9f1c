package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	startTime time.Time
	registry  *prometheus.Registry

	scheduled  prometheus.Counter
	cancelled  prometheus.Counter
	sent       *prometheus.CounterVec
	failed     *prometheus.CounterVec
	dosesTaken prometheus.Counter
	apiReqs    *prometheus.CounterVec
	wsConns    prometheus.Gauge

	scheduledN  atomic.Int64
	cancelledN  atomic.Int64
	sentN       atomic.Int64
	failedN     atomic.Int64
	dosesTakenN atomic.Int64
	wsConnsN    atomic.Int64
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		startTime: time.Now(),
		registry:  reg,
		scheduled: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ivfmed_notifications_scheduled_total",
			Help: "Dose notifications scheduled",
		}),
		cancelled: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ivfmed_notifications_cancelled_total",
			Help: "Dose notifications cancelled before firing",
		}),
		sent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ivfmed_notifications_sent_total",
			Help: "Notifications delivered per channel",
		}, []string{"channel"}),
		failed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ivfmed_notifications_failed_total",
			Help: "Notification delivery failures per channel",
		}, []string{"channel"}),
		dosesTaken: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ivfmed_doses_taken_total",
			Help: "Doses confirmed as taken",
		}),
		apiReqs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ivfmed_api_requests_total",
			Help: "API requests per method and status",
		}, []string{"method", "status"}),
		wsConns: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ivfmed_ws_connections",
			Help: "Connected websocket clients",
		}),
	}

	return m
}

// Registry returns the prometheus registry for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the prometheus exposition handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordScheduled() {
	m.scheduled.Inc()
	m.scheduledN.Add(1)
}

func (m *Metrics) RecordCancelled() {
	m.cancelled.Inc()
	m.cancelledN.Add(1)
}

func (m *Metrics) RecordSent(channel string) {
	m.sent.WithLabelValues(channel).Inc()
	m.sentN.Add(1)
}

func (m *Metrics) RecordFailed(channel string) {
	m.failed.WithLabelValues(channel).Inc()
	m.failedN.Add(1)
}

func (m *Metrics) RecordDoseTaken() {
	m.dosesTaken.Inc()
	m.dosesTakenN.Add(1)
}

func (m *Metrics) RecordAPIRequest(method, status string) {
	m.apiReqs.WithLabelValues(method, status).Inc()
}

func (m *Metrics) IncrementWSConnections() {
	m.wsConns.Inc()
	m.wsConnsN.Add(1)
}

func (m *Metrics) DecrementWSConnections() {
	m.wsConns.Dec()
	m.wsConnsN.Add(-1)
}

type Snapshot struct {
	Uptime                 time.Duration `json:"uptime"`
	NotificationsScheduled int64         `json:"notifications_scheduled"`
	NotificationsCancelled int64         `json:"notifications_cancelled"`
	NotificationsSent      int64         `json:"notifications_sent"`
	NotificationsFailed    int64         `json:"notifications_failed"`
	DosesTaken             int64         `json:"doses_taken"`
	WSConnections          int64         `json:"ws_connections"`
	DeliveryRate           float64       `json:"delivery_rate"`
}

func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Uptime:                 time.Since(m.startTime),
		NotificationsScheduled: m.scheduledN.Load(),
		NotificationsCancelled: m.cancelledN.Load(),
		NotificationsSent:      m.sentN.Load(),
		NotificationsFailed:    m.failedN.Load(),
		DosesTaken:             m.dosesTakenN.Load(),
		WSConnections:          m.wsConnsN.Load(),
	}

	attempts := s.NotificationsSent + s.NotificationsFailed
	if attempts > 0 {
		s.DeliveryRate = float64(s.NotificationsSent) / float64(attempts) * 100
	}

	return s
}

func RecordScheduled() {
	Default().RecordScheduled()
}

func RecordCancelled() {
	Default().RecordCancelled()
}

func RecordSent(channel string) {
	Default().RecordSent(channel)
}

func RecordFailed(channel string) {
	Default().RecordFailed(channel)
}

func RecordDoseTaken() {
	Default().RecordDoseTaken()
}

func RecordAPIRequest(method, status string) {
	Default().RecordAPIRequest(method, status)
}

func GetSnapshot() *Snapshot {
	return Default().Snapshot()
}
