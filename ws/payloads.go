package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HusseinTALL/menuqr-sync/models"
)

// Message, adı ile etiketlenmiş, çözülmüş bir gelen event.
// Payload'un somut tipi Name'e göre sabittir (bkz. payloadFactories);
// projeksiyonlar isteğe bağlı alanları yoklamak yerine tipe göre eşleşir.
type Message struct {
	Name    string
	Seq     int64
	Payload any
}

// ErrUnknownEvent, Decode'un tanımadığı event adı. Bu event'ler ham haliyle
// abonelere iletilir (Payload = json.RawMessage).
var ErrUnknownEvent = errors.New("unknown realtime event")

// OrderPayload: order:new, order:updated, kds:new-order, kds:order-updated.
type OrderPayload struct {
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	Status      models.OrderStatus `json:"status"`
	Items       []models.OrderItem `json:"items,omitempty"`
	TableNumber string             `json:"tableNumber,omitempty"`
	OrderType   string             `json:"orderType,omitempty"`
	Sound       string             `json:"sound,omitempty"`
}

// OrderRefPayload: kds:order-ready.
type OrderRefPayload struct {
	OrderID string `json:"orderId"`
}

// OrderAcknowledgedPayload: order:acknowledged.
type OrderAcknowledgedPayload struct {
	OrderID        string             `json:"orderId"`
	Status         models.OrderStatus `json:"status"`
	AcknowledgedBy string             `json:"acknowledgedBy,omitempty"`
}

// OrderAcknowledgePayload: order:acknowledge (giden).
type OrderAcknowledgePayload struct {
	OrderID      string `json:"orderId"`
	RestaurantID string `json:"restaurantId,omitempty"`
}

// NotificationPayload: notification:new.
type NotificationPayload struct {
	models.NotificationEntry
}

// ETAPayload, driver:location içindeki tahmini varış.
type ETAPayload struct {
	Minutes        int `json:"minutes"`
	DistanceMeters int `json:"distanceMeters"`
}

// DriverLocationPayload: driver:location.
type DriverLocationPayload struct {
	DeliveryID string                `json:"deliveryId"`
	Location   models.DriverLocation `json:"location"`
	ETA        *ETAPayload           `json:"eta,omitempty"`
}

// DeliveryStatusPayload: delivery:status. ETAMinutes opsiyoneldir.
type DeliveryStatusPayload struct {
	DeliveryID string `json:"deliveryId"`
	Status     string `json:"status"`
	ETAMinutes *int   `json:"etaMinutes,omitempty"`
}

// DeliveryCompletedPayload: delivery:completed.
type DeliveryCompletedPayload struct {
	DeliveryID  string    `json:"deliveryId"`
	CompletedAt time.Time `json:"completedAt"`
}

// DeliveryAssignedPayload: delivery:assigned (sürücü bağlantısı).
type DeliveryAssignedPayload struct {
	models.DeliveryAssignment
}

// DriverLocationUpdatePayload: driver:location:update (giden).
type DriverLocationUpdatePayload struct {
	DeliveryID string `json:"deliveryId"`
	models.DriverLocation
}

// OrderStatusPayload: order:status (müşteri sipariş odası).
type OrderStatusPayload struct {
	OrderID string             `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
	Message string             `json:"message,omitempty"`
}

// OrderReadyPayload: order:ready (müşteri sipariş odası).
type OrderReadyPayload struct {
	OrderID string `json:"orderId"`
	Message string `json:"message,omitempty"`
}

// MenuUpdatedPayload: menu:updated.
type MenuUpdatedPayload struct {
	RestaurantID string    `json:"restaurantId"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SystemAlertPayload: system:alert. Alert feed'i hemen yeniden çekmek için sinyal.
type SystemAlertPayload struct {
	Severity string `json:"severity"`
	Message  string `json:"message,omitempty"`
}

var payloadFactories = map[string]func() any{
	EventOrderNew:          func() any { return &OrderPayload{} },
	EventOrderUpdated:      func() any { return &OrderPayload{} },
	EventKDSNewOrder:       func() any { return &OrderPayload{} },
	EventKDSOrderUpdated:   func() any { return &OrderPayload{} },
	EventKDSOrderReady:     func() any { return &OrderRefPayload{} },
	EventOrderAcknowledged: func() any { return &OrderAcknowledgedPayload{} },
	EventNotificationNew:   func() any { return &NotificationPayload{} },
	EventDriverLocation:    func() any { return &DriverLocationPayload{} },
	EventDeliveryStatus:    func() any { return &DeliveryStatusPayload{} },
	EventDeliveryCompleted: func() any { return &DeliveryCompletedPayload{} },
	EventDeliveryAssigned:  func() any { return &DeliveryAssignedPayload{} },
	EventOrderStatus:       func() any { return &OrderStatusPayload{} },
	EventOrderReady:        func() any { return &OrderReadyPayload{} },
	EventMenuUpdated:       func() any { return &MenuUpdatedPayload{} },
	EventSystemAlert:       func() any { return &SystemAlertPayload{} },
}

// Decode, event'i adına göre typed payload'a çözer.
// Bilinmeyen adlar ErrUnknownEvent ile birlikte ham veriyle döner.
func Decode(e Event) (Message, error) {
	msg := Message{Name: e.Name, Seq: e.Seq}

	factory, ok := payloadFactories[e.Name]
	if !ok {
		msg.Payload = e.Data
		return msg, fmt.Errorf("%w: %s", ErrUnknownEvent, e.Name)
	}

	payload := factory()
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, payload); err != nil {
			return msg, fmt.Errorf("decode %s: %w", e.Name, err)
		}
	}
	msg.Payload = payload
	return msg, nil
}

// joinPayload, oda katılma/ayrılma event'inin gövdesi.
func joinPayload(room models.RoomSubscription) map[string]string {
	switch room.Type {
	case models.RoomOrder:
		return map[string]string{"orderId": room.ID}
	case models.RoomDelivery:
		return map[string]string{"deliveryId": room.ID}
	default:
		// restaurant ve kds odaları restoran id'si ile anahtarlanır.
		return map[string]string{"restaurantId": room.ID}
	}
}
