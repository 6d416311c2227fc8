// Package main: Handler katmanı başlatma.
//
// initHandlers, yerel API handler'larını oluşturur. Handler'lar "thin"dir:
// projeksiyon snapshot'larını okur veya ilgili service/bağlantıya iletir.
package main

import (
	"github.com/HusseinTALL/menuqr-sync/config"
	"github.com/HusseinTALL/menuqr-sync/handlers"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Realtime     *handlers.RealtimeHandler
	Credential   *handlers.CredentialHandler
	KDS          *handlers.KDSHandler
	Delivery     *handlers.DeliveryHandler
	Order        *handlers.OrderHandler
	Notification *handlers.NotificationHandler
	Alert        *handlers.AlertHandler
}

func initHandlers(cfg *config.Config, svcs *Services, rt *Realtime, proj *Projections) *Handlers {
	conns := make([]handlers.ConnectionStatusSource, 0, 3)
	for _, c := range rt.Connections() {
		conns = append(conns, c)
	}

	return &Handlers{
		Realtime:     handlers.NewRealtimeHandler(conns...),
		Credential:   handlers.NewCredentialHandler(svcs.Credentials),
		KDS:          handlers.NewKDSHandler(proj.KDS, rt.Staff, cfg.KDS.RestaurantID),
		Delivery:     handlers.NewDeliveryHandler(proj.Deliveries, rt.DriverChannel),
		Order:        handlers.NewOrderHandler(proj.Orders),
		Notification: handlers.NewNotificationHandler(proj.Notifications, svcs.Notifications),
		Alert:        handlers.NewAlertHandler(proj.Alerts),
	}
}
