// Package ws, realtime push kanalının istemci tarafıdır.
//
// Mimari:
//   - Transport: tek bir soket (gorilla/websocket); event okur/yazar, heartbeat atar
//   - Connection: aktör başına tek transport'un yaşam döngüsü sahibi
//     (connect, kopmada sınırlı yeniden deneme, credential değişince tam yeniden kurulum)
//   - RoomManager: aynı bağlantı üzerinden oda katılımları ve event aboneleri
//   - DriverChannel: sürücü bağlantısına özgü giden konum yayınları
//
// Event akışı:
//  1. Sunucu bir event yazar → Transport.ReadEvent
//  2. Connection okuma döngüsü event'i geliş sırasıyla handler'lara dağıtır
//  3. RoomManager event adını çözüp (Decode) typed payload'u abonelere iletir
//  4. Projeksiyonlar payload'u kendi state'ine katlar
package ws

import (
	"encoding/json"
	"fmt"
)

// Event, soket üzerinden iletilen zarf.
//
// Name: event adı ("kds:new-order", "join:delivery" …)
// Data: event'e özgü payload, ham JSON
// Seq: sunucunun verdiği artan sıra numarası (varsa). Eksik event tespiti için loglanır.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// NewEvent, payload'u serileştirip bir Event oluşturur.
func NewEvent(name string, payload any) (Event, error) {
	if payload == nil {
		return Event{Name: name}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Name: name, Data: data}, nil
}

// ────────────────────────────────────────────
// Event adları
// ────────────────────────────────────────────

// Sunucu → istemci
const (
	EventOrderNew          = "order:new"
	EventOrderUpdated      = "order:updated"
	EventKDSNewOrder       = "kds:new-order"
	EventKDSOrderUpdated   = "kds:order-updated"
	EventKDSOrderReady     = "kds:order-ready"
	EventOrderAcknowledged = "order:acknowledged"
	EventNotificationNew   = "notification:new"
	EventDriverLocation    = "driver:location"
	EventDeliveryStatus    = "delivery:status"
	EventDeliveryCompleted = "delivery:completed"
	EventDeliveryAssigned  = "delivery:assigned"
	EventOrderStatus       = "order:status"
	EventOrderReady        = "order:ready"
	EventMenuUpdated       = "menu:updated"
	EventSystemAlert       = "system:alert"
)

// İstemci → sunucu
const (
	EventOrderAcknowledge     = "order:acknowledge"
	EventDriverLocationUpdate = "driver:location:update"
)

// JoinEvent, oda tipi için katılma event adı ("join:delivery").
func JoinEvent(room string) string { return "join:" + room }

// LeaveEvent, oda tipi için ayrılma event adı ("leave:delivery").
func LeaveEvent(room string) string { return "leave:" + room }
