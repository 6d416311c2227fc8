package models

import "time"

// DeliveryStatusDelivered, delivery:completed sonrası yapışkan terminal durum.
const DeliveryStatusDelivered = "delivered"

// DriverLocation, sürücünün son bilinen konumu. Heading ve Speed cihazdan gelmeyebilir.
// Timestamp unix milisaniye.
type DriverLocation struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// Valid, koordinatlar geçerli aralıkta mı?
func (l DriverLocation) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

func (l DriverLocation) clone() DriverLocation {
	if l.Heading != nil {
		h := *l.Heading
		l.Heading = &h
	}
	if l.Speed != nil {
		s := *l.Speed
		l.Speed = &s
	}
	return l
}

// DeliveryETA, tahmini varış.
type DeliveryETA struct {
	Minutes        int       `json:"minutes"`
	DistanceMeters int       `json:"distanceMeters"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DeliveryTrackState, takip edilen tek bir teslimatın görünümü.
// Okuyuculara her zaman Clone ile kopya verilir.
type DeliveryTrackState struct {
	DeliveryID     string          `json:"deliveryId"`
	DriverLocation *DriverLocation `json:"driverLocation,omitempty"`
	ETA            *DeliveryETA    `json:"eta,omitempty"`
	Status         string          `json:"status,omitempty"`
	Completed      bool            `json:"completed"`
}

// Clone, pointer alanlar dahil derin kopya.
func (s DeliveryTrackState) Clone() DeliveryTrackState {
	if s.DriverLocation != nil {
		loc := s.DriverLocation.clone()
		s.DriverLocation = &loc
	}
	if s.ETA != nil {
		eta := *s.ETA
		s.ETA = &eta
	}
	return s
}

// DeliveryAssignment, sürücüye yeni teslimat atandığında gelen özet.
type DeliveryAssignment struct {
	DeliveryID      string `json:"deliveryId"`
	OrderID         string `json:"orderId"`
	PickupAddress   string `json:"pickupAddress,omitempty"`
	DropoffAddress  string `json:"dropoffAddress,omitempty"`
	EstimatedMinute int    `json:"estimatedMinutes,omitempty"`
}
