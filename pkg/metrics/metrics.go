// Package metrics, senkronizasyon katmanının Prometheus collector'larını tutar.
//
// Collector'lar global Registry'ye init'te kaydedilir; /metrics endpoint'i
// Handler() ile bu registry'yi sunar. Kayıt fonksiyonları nil-safe'tir,
// bileşenler metrics'i opsiyonel bağımlılık gibi düşünmeden çağırabilir.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "menuqr_sync"

var (
	// Registry, uygulamaya ait collector'ları tutar.
	Registry = prometheus.NewRegistry()

	tokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_refresh_total",
			Help:      "Network token refresh calls by actor kind and outcome.",
		},
		[]string{"actor", "result"},
	)

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Outgoing REST requests by auth kind and status code.",
		},
		[]string{"auth", "code"},
	)

	realtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Inbound realtime events dispatched to handlers.",
		},
		[]string{"event"},
	)

	reconnectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "reconnect_attempts_total",
			Help:      "Automatic reconnect attempts after a transport drop.",
		},
		[]string{"actor"},
	)

	connectionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connection_status",
			Help:      "1 for the current status of each actor connection, 0 otherwise.",
		},
		[]string{"actor", "status"},
	)
)

var statuses = []string{"disconnected", "connecting", "connected", "authError"}

func init() {
	Registry.MustRegister(
		tokenRefreshes,
		gatewayRequests,
		realtimeEvents,
		reconnectAttempts,
		connectionStatus,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler, Registry'yi Prometheus exposition formatında sunar.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordTokenRefresh, bir ağ refresh çağrısının sonucunu kaydeder.
// result: "ok", "rejected", "network".
func RecordTokenRefresh(actor, result string) {
	tokenRefreshes.WithLabelValues(actor, result).Inc()
}

// RecordGatewayRequest, bir REST çağrısının status kodunu kaydeder. code 0 = transport hatası.
func RecordGatewayRequest(auth string, code int) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	gatewayRequests.WithLabelValues(auth, label).Inc()
}

// RecordEvent, dispatch edilen bir realtime event'i sayar.
func RecordEvent(name string) {
	realtimeEvents.WithLabelValues(name).Inc()
}

// RecordReconnectAttempt, otomatik reconnect denemesini sayar.
func RecordReconnectAttempt(actor string) {
	reconnectAttempts.WithLabelValues(actor).Inc()
}

// SetConnectionStatus, actor'ün mevcut durumunu 1, diğerlerini 0 yapar.
func SetConnectionStatus(actor, status string) {
	for _, s := range statuses {
		v := 0.0
		if s == status {
			v = 1
		}
		connectionStatus.WithLabelValues(actor, s).Set(v)
	}
}
