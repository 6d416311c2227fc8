// Package main: Projeksiyonlar ve callback wire-up.
//
// Projeksiyonlar ws paketini bilmez; sadece Subscriber/RoomHolder interface'lerini
// görür. Hangi projeksiyonun hangi bağlantının odalarını dinleyeceği burada,
// wire-up noktasında karar verilir.
package main

import (
	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/config"
	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
	"github.com/HusseinTALL/menuqr-sync/projections"
)

// Projections, yerel UI'ın okuduğu canlı görünümler.
type Projections struct {
	KDS           *projections.KDSQueue
	Deliveries    *projections.DeliveryTracker
	Orders        *projections.OrderTracker
	Notifications *projections.NotificationFeed
	Alerts        *projections.AlertFeed
}

func initProjections(cfg *config.Config, rt *Realtime) *Projections {
	tracking := rt.TrackingRooms()
	return &Projections{
		KDS:           projections.NewKDSQueue(cfg.KDS.SoundTTL),
		Deliveries:    projections.NewDeliveryTracker(tracking),
		Orders:        projections.NewOrderTracker(tracking),
		Notifications: projections.NewNotificationFeed(),
		Alerts:        projections.NewAlertFeed(),
	}
}

// registerCallbacks, projeksiyonları event'lere bağlar, restoran odalarını tutar ve
// durum değişikliklerini loglar. Dönen fonksiyon tüm bağları ve odaları bırakır.
func registerCallbacks(cfg *config.Config, rt *Realtime, proj *Projections, svcs *Services, log logrus.FieldLogger) func() {
	var cleanups []func()

	tracking := rt.TrackingRooms()
	cleanups = append(cleanups,
		projections.BindKDS(rt.StaffRooms, proj.KDS),
		projections.BindNotifications(rt.StaffRooms, proj.Notifications),
		projections.BindAlerts(rt.StaffRooms, svcs.Alerts.Invalidate),
		projections.BindDelivery(tracking, proj.Deliveries),
		projections.BindOrderTrack(tracking, proj.Orders),
	)

	// KDS odaları ekran açık olduğu sürece tutulur; rotasyon sonrası yeniden katılınır.
	if id := cfg.KDS.RestaurantID; id != "" {
		for _, roomType := range []models.RoomType{models.RoomRestaurant, models.RoomKDS} {
			release, err := rt.StaffRooms.Hold(roomType, id)
			if err != nil {
				log.WithError(err).WithField("room", roomType).Error("failed to hold kitchen room")
				continue
			}
			cleanups = append(cleanups, release)
		}
	}

	for _, conn := range rt.Connections() {
		connLog := logger.Component(log, "ws").WithField("actor", conn.Actor())
		cleanups = append(cleanups, conn.OnStatus(func(h models.ConnectionHandle) {
			entry := connLog.WithField("status", h.Status)
			if h.Status == models.StatusAuthError {
				entry.WithField("error", h.LastError).Warn("realtime credential rejected, waiting for new login")
				return
			}
			entry.Info("realtime status changed")
		}))
	}

	kdsLog := logger.Component(log, "projections")
	cleanups = append(cleanups,
		proj.KDS.OnSoundHint(func(hint models.SoundHint) {
			kdsLog.WithFields(logrus.Fields{"order_id": hint.OrderID, "sound": hint.Sound}).Info("new order sound")
		}),
		rt.DriverChannel.OnAssigned(func(a models.DeliveryAssignment) {
			kdsLog.WithField("delivery_id", a.DeliveryID).Info("delivery assigned to driver")
		}),
	)

	return func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		proj.Deliveries.Untrack()
		proj.Orders.Untrack()
	}
}
