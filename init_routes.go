// Package main: HTTP route registration.
//
// initRoutes, yerel API endpoint'lerini mux'a bağlar.
// /api/health ve /metrics token'sız açıktır; diğer her şey local token
// middleware'ından geçer (LOCAL_API_TOKEN boşsa middleware no-op'tur).
//
// Route sıralama kuralı: literal path'ler ("/api/deliveries/current") parametrik
// path'lerle çakışmayacak şekilde ayrı method+path kombinasyonlarıdır.
package main

import (
	"net/http"

	"github.com/HusseinTALL/menuqr-sync/middleware"
	"github.com/HusseinTALL/menuqr-sync/pkg/metrics"
)

func initRoutes(mux *http.ServeMux, h *Handlers, tokenMw *middleware.LocalTokenMiddleware) {
	local := func(fn http.HandlerFunc) http.Handler {
		return tokenMw.Require(fn)
	}

	// Public
	mux.HandleFunc("GET /api/health", h.Realtime.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Realtime
	mux.Handle("GET /api/realtime/status", local(h.Realtime.Status))

	// Credentials: login sonrası token teslimi ve logout
	mux.Handle("GET /api/credentials", local(h.Credential.List))
	mux.Handle("PUT /api/credentials", local(h.Credential.Put))
	mux.Handle("DELETE /api/credentials/{kind}", local(h.Credential.Clear))

	// KDS
	mux.Handle("GET /api/kds/queue", local(h.KDS.Queue))
	mux.Handle("POST /api/kds/orders/{id}/acknowledge", local(h.KDS.Acknowledge))

	// Deliveries & driver
	mux.Handle("GET /api/deliveries/current", local(h.Delivery.Current))
	mux.Handle("POST /api/deliveries/{id}/track", local(h.Delivery.Track))
	mux.Handle("POST /api/driver/location", local(h.Delivery.PublishLocation))

	// Orders
	mux.Handle("GET /api/orders/current", local(h.Order.Current))
	mux.Handle("POST /api/orders/{id}/track", local(h.Order.Track))

	// Notifications & alerts
	mux.Handle("GET /api/notifications", local(h.Notification.List))
	mux.Handle("POST /api/notifications/{id}/read", local(h.Notification.MarkRead))
	mux.Handle("GET /api/alerts", local(h.Alert.Stats))
}
