// Package metrics содержит метрики Prometheus сервиса идентификации.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Исходы операций для счетчика AuthEvents.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics набор метрик, регистрируемых при старте.
type Metrics struct {
	authEvents      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mailPublished   *prometheus.CounterVec
}

// New создает метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "auth_events_total",
			Help:      "Identity operations by event and outcome.",
		}, []string{"event", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "identity",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		mailPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "mail_events_published_total",
			Help:      "Mail events handed to the broker by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	reg.MustRegister(m.authEvents, m.requestDuration, m.mailPublished)
	return m
}

// AuthEvent учитывает исход операции: register, verify, login, forgot_password, reset_password.
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// MailPublished учитывает отправку почтового события в брокер.
func (m *Metrics) MailPublished(mailType, outcome string) {
	if m == nil {
		return
	}
	m.mailPublished.WithLabelValues(mailType, outcome).Inc()
}

// Middleware измеряет время обработки запроса. Метка route берется из
// шаблона chi, чтобы токены из query и path не раздували кардинальность.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
