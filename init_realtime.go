// Package main: Realtime bağlantıların başlatılması.
//
// Her aktör sınıfı kendi bağlantısını ve oda yöneticisini taşır:
//   - staff (veya superAdmin): KDS kuyruğu, bildirimler, sistem uyarıları
//   - customer: sipariş ve teslimat takibi (REALTIME_CUSTOMER_TENANT verilmişse)
//   - driver: konum yayını ve teslimat atamaları
//
// Bağlantılar credential store'u izler; credential yoksa disconnected bekler,
// login ile credential yazıldığında kendiliğinden bağlanır.
package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/config"
	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
	"github.com/HusseinTALL/menuqr-sync/pkg/ratelimit"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

// Realtime, aktör bağlantılarını tutan container struct. Customer alanları nil olabilir.
type Realtime struct {
	Staff    *ws.Connection
	Customer *ws.Connection
	Driver   *ws.Connection

	StaffRooms    *ws.RoomManager
	CustomerRooms *ws.RoomManager
	DriverRooms   *ws.RoomManager

	DriverChannel *ws.DriverChannel

	throttle *ratelimit.LocationThrottle
}

func initRealtime(cfg *config.Config, svcs *Services, log logrus.FieldLogger) *Realtime {
	wsLog := logger.Component(log, "ws")

	newConn := func(actor models.ActorKind, tenantID, url string) *ws.Connection {
		dialer := &ws.WebSocketDialer{
			URL:               url,
			HandshakeTimeout:  cfg.Realtime.HandshakeTimeout,
			HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
			Log:               wsLog,
		}
		return ws.NewConnection(ws.ConnectionConfig{
			Actor:             actor,
			TenantID:          tenantID,
			ReconnectAttempts: cfg.Realtime.ReconnectAttempts,
			ReconnectDelay:    cfg.Realtime.ReconnectDelay,
		}, dialer, svcs.Credentials, svcs.Refresh, wsLog)
	}

	rt := &Realtime{
		Staff:    newConn(staffActor(cfg), "", cfg.Realtime.StaffURL),
		Driver:   newConn(models.ActorDriver, "", cfg.Realtime.DriverURL),
		throttle: ratelimit.NewLocationThrottle(cfg.Driver.LocationMinInterval),
	}
	rt.StaffRooms = ws.NewRoomManager(rt.Staff, wsLog)
	rt.DriverRooms = ws.NewRoomManager(rt.Driver, wsLog)
	rt.DriverChannel = ws.NewDriverChannel(rt.DriverRooms, rt.throttle)

	if tenant := cfg.Realtime.CustomerTenantID; tenant != "" {
		rt.Customer = newConn(models.ActorCustomer, tenant, cfg.Realtime.StaffURL)
		rt.CustomerRooms = ws.NewRoomManager(rt.Customer, wsLog)
	}
	return rt
}

// staffActor, personel/yönetici bağlantısının hangi credential ile açılacağı.
// Sadece super-admin girişi yapılmış cihazlar REALTIME_STAFF_ACTOR=superAdmin kullanır.
func staffActor(cfg *config.Config) models.ActorKind {
	if models.ActorKind(cfg.Realtime.StaffActor) == models.ActorSuperAdmin {
		return models.ActorSuperAdmin
	}
	return models.ActorStaff
}

// TrackingRooms, sipariş/teslimat takibinin yapıldığı oda yöneticisi.
// Müşteri bağlantısı yoksa personel bağlantısı kullanılır.
func (rt *Realtime) TrackingRooms() *ws.RoomManager {
	if rt.CustomerRooms != nil {
		return rt.CustomerRooms
	}
	return rt.StaffRooms
}

// Connections, durumu raporlanacak tüm bağlantılar.
func (rt *Realtime) Connections() []*ws.Connection {
	conns := []*ws.Connection{rt.Staff, rt.Driver}
	if rt.Customer != nil {
		conns = append(conns, rt.Customer)
	}
	return conns
}

// Start, tüm bağlantıları credential izlemeye başlatır. ctx bitince kapanırlar.
func (rt *Realtime) Start(ctx context.Context) {
	for _, c := range rt.Connections() {
		c.Start(ctx)
	}
}

// Close, oda yöneticilerini ve bağlantıları kapatır.
func (rt *Realtime) Close() {
	rt.DriverChannel.Close()
	for _, m := range []*ws.RoomManager{rt.StaffRooms, rt.CustomerRooms, rt.DriverRooms} {
		if m != nil {
			m.Close()
		}
	}
	for _, c := range rt.Connections() {
		c.Close()
	}
	rt.throttle.Stop()
}
