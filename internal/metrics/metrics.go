// Package metrics содержит метрики Prometheus сервиса погашения предложений.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "offer_redemption"

// Metrics объединяет коллекторы сервиса. Методы безопасны для nil-получателя.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	offersExpired prometheus.Counter
	httpDuration  *prometheus.HistogramVec
}

// New создаёт набор метрик с собственным реестром.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemption_requests_total",
			Help:      "Redemption request creation attempts by result.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemption_transitions_total",
			Help:      "Committed redemption status transitions.",
		}, []string{"from", "to"}),
		offersExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_expired_total",
			Help:      "Offers switched to Inactive by the expiry sweep.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	reg.MustRegister(
		m.requests,
		m.transitions,
		m.offersExpired,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler возвращает HTTP-обработчик для выгрузки метрик.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestCreated учитывает попытку создания запроса на погашение.
func (m *Metrics) RequestCreated(result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
}

// Transitioned учитывает смену статуса запроса.
func (m *Metrics) Transitioned(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// OffersExpired учитывает предложения, деактивированные проверкой сроков.
func (m *Metrics) OffersExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.offersExpired.Add(float64(n))
}

// ObserveHTTP учитывает длительность обработки HTTP-запроса.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}
