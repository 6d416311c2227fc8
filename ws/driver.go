package ws

import (
	"context"
	"fmt"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/ratelimit"
)

// DriverChannel, sürücü bağlantısına özgü işlemler: konum yayını ve atama bildirimi.
type DriverChannel struct {
	rooms    *RoomManager
	throttle *ratelimit.LocationThrottle
	stop     func()
}

// NewDriverChannel, constructor. Tamamlanan teslimatların throttle durumu silinir.
func NewDriverChannel(rooms *RoomManager, throttle *ratelimit.LocationThrottle) *DriverChannel {
	d := &DriverChannel{rooms: rooms, throttle: throttle}
	d.stop = rooms.On(EventDeliveryCompleted, func(msg Message) {
		if p, ok := msg.Payload.(*DeliveryCompletedPayload); ok {
			throttle.Forget(p.DeliveryID)
		}
	})
	return d
}

// PublishLocation, driver:location:update gönderir. Teslimat başına en fazla
// bir güncelleme / minimum aralık; throttle'a takılan güncelleme sessizce
// düşer (sent=false, err=nil).
func (d *DriverChannel) PublishLocation(ctx context.Context, deliveryID string, loc models.DriverLocation) (sent bool, err error) {
	if deliveryID == "" {
		return false, fmt.Errorf("%w: delivery id required", pkg.ErrBadRequest)
	}
	if !loc.Valid() {
		return false, fmt.Errorf("%w: invalid coordinates", pkg.ErrBadRequest)
	}
	if d.rooms.Connection().Status() != models.StatusConnected {
		return false, pkg.ErrNotConnected
	}
	if !d.throttle.Allow(deliveryID) {
		return false, nil
	}

	ev, err := NewEvent(EventDriverLocationUpdate, DriverLocationUpdatePayload{DeliveryID: deliveryID, DriverLocation: loc})
	if err != nil {
		return false, err
	}
	if err := d.rooms.Connection().Emit(ctx, ev); err != nil {
		return false, err
	}
	return true, nil
}

// OnAssigned, delivery:assigned için handler kaydeder.
func (d *DriverChannel) OnAssigned(handler func(models.DeliveryAssignment)) (unsubscribe func()) {
	return d.rooms.On(EventDeliveryAssigned, func(msg Message) {
		if p, ok := msg.Payload.(*DeliveryAssignedPayload); ok {
			handler(p.DeliveryAssignment)
		}
	})
}

// Close, abonelikleri bırakır.
func (d *DriverChannel) Close() {
	d.stop()
}
