package models

// ConnectionStatus, realtime bağlantının yaşam döngüsü durumu.
//
//	disconnected → connecting → connected
//	connected → (kopma) → connecting … → disconnected (deneme hakkı bitti)
//	connecting → (handshake auth reddi) → authError
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusAuthError    ConnectionStatus = "authError"
)

// ConnectionHandle, bir aktör bağlantısının okunabilir görüntüsü.
type ConnectionHandle struct {
	ActorKind ActorKind        `json:"actorKind"`
	Status    ConnectionStatus `json:"status"`
	LastError string           `json:"lastError,omitempty"`
}

// RoomType, sunucu tanımlı yayın kapsamları.
type RoomType string

const (
	RoomOrder      RoomType = "order"
	RoomDelivery   RoomType = "delivery"
	RoomRestaurant RoomType = "restaurant"
	RoomKDS        RoomType = "kds"
)

// Valid, bilinen bir oda tipi mi?
func (t RoomType) Valid() bool {
	switch t {
	case RoomOrder, RoomDelivery, RoomRestaurant, RoomKDS:
		return true
	}
	return false
}

// RoomSubscription, katılınmış bir oda. Yaşam süresi onu açan görünüme aittir.
type RoomSubscription struct {
	Type RoomType `json:"type"`
	ID   string   `json:"id"`
}

func (r RoomSubscription) String() string {
	return string(r.Type) + ":" + r.ID
}
