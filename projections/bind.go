package projections

import "github.com/HusseinTALL/menuqr-sync/ws"

// BindKDS, KDS kuyruğunu ilgili event'lere bağlar.
func BindKDS(sub Subscriber, q *KDSQueue) (unbind func()) {
	names := []string{
		ws.EventOrderNew,
		ws.EventOrderUpdated,
		ws.EventKDSNewOrder,
		ws.EventKDSOrderUpdated,
		ws.EventKDSOrderReady,
		ws.EventOrderAcknowledged,
	}
	fns := make([]func(), 0, len(names))
	for _, name := range names {
		fns = append(fns, sub.On(name, q.Apply))
	}
	return unbindAll(fns...)
}

// BindDelivery, teslimat takibini bağlar.
func BindDelivery(sub Subscriber, t *DeliveryTracker) (unbind func()) {
	return unbindAll(
		sub.On(ws.EventDriverLocation, t.Apply),
		sub.On(ws.EventDeliveryStatus, t.Apply),
		sub.On(ws.EventDeliveryCompleted, t.Apply),
	)
}

// BindOrderTrack, sipariş takibini bağlar.
func BindOrderTrack(sub Subscriber, t *OrderTracker) (unbind func()) {
	return unbindAll(
		sub.On(ws.EventOrderStatus, t.Apply),
		sub.On(ws.EventOrderReady, t.Apply),
	)
}

// BindNotifications, bildirim akışını bağlar.
func BindNotifications(sub Subscriber, f *NotificationFeed) (unbind func()) {
	return sub.On(ws.EventNotificationNew, f.Apply)
}

// BindAlerts, system:alert geldiğinde invalidate'i çağırır (poller erken çeker).
func BindAlerts(sub Subscriber, invalidate func()) (unbind func()) {
	return sub.On(ws.EventSystemAlert, func(ws.Message) { invalidate() })
}
