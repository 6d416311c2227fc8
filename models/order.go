package models

import "time"

// OrderStatus, backend'in sipariş durum string'leri.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderItem, KDS'te gösterilen bir kalem.
type OrderItem struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Notes    string   `json:"notes,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// SoundHint, KDS ekranına "bu sesi çal" ipucu. Her yeni sipariş için en fazla bir kez üretilir.
type SoundHint struct {
	OrderID string `json:"orderId"`
	Sound   string `json:"sound"`
}

// OrderQueueEntry, KDS canlı kuyruğundaki bir sipariş. Kuyruk en yeni başta sıralanır.
type OrderQueueEntry struct {
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
	Items       []OrderItem `json:"items"`
	TableNumber string      `json:"tableNumber,omitempty"`
	OrderType   string      `json:"orderType,omitempty"`
	SoundHint   string      `json:"soundHint,omitempty"`
	ReceivedAt  time.Time   `json:"receivedAt"`
}

// Clone, items slice'ı dahil derin kopya.
func (e OrderQueueEntry) Clone() OrderQueueEntry {
	if e.Items != nil {
		items := make([]OrderItem, len(e.Items))
		for i, it := range e.Items {
			if it.Options != nil {
				it.Options = append([]string(nil), it.Options...)
			}
			items[i] = it
		}
		e.Items = items
	}
	return e
}

// OrderTrackState, müşterinin sipariş odasındaki görünüm.
type OrderTrackState struct {
	OrderID   string      `json:"orderId"`
	Status    OrderStatus `json:"status"`
	Ready     bool        `json:"ready"`
	Message   string      `json:"message,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
