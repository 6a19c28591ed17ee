// Package metrics содержит Prometheus-метрики сервера.
//
// Метрики регистрируются в собственном реестре, а не в глобальном,
// чтобы каждый тест мог создать независимый набор.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - набор счётчиков сервиса.
type Metrics struct {
	TokensIssued  *prometheus.CounterVec // kind: valid|expired
	RateLimited   prometheus.Counter
	Registrations *prometheus.CounterVec // result: ok|invalid|conflict|error
	KeyRotations  prometheus.Counter
	JWKSRequests  prometheus.Counter

	registry *prometheus.Registry
}

// New создаёт метрики и регистрирует их в новом реестре.
func New() *Metrics {
	m := &Metrics{
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jwks_tokens_issued_total",
			Help: "Выданные токены по типу",
		}, []string{"kind"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jwks_auth_rate_limited_total",
			Help: "Запросы /auth, отклонённые лимитером",
		}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jwks_registrations_total",
			Help: "Попытки регистрации по результату",
		}, []string{"result"}),
		KeyRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jwks_key_rotations_total",
			Help: "Ротации ключей подписи",
		}),
		JWKSRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jwks_documents_served_total",
			Help: "Отданные JWKS документы",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.TokensIssued,
		m.RateLimited,
		m.Registrations,
		m.KeyRotations,
		m.JWKSRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry возвращает реестр (нужен в тестах для Gather).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
