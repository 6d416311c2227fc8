package handlers

import (
	"context"
	"net/http"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

// OrderQueueReader, KDS kuyruğunun okunabilir görüntüsü.
type OrderQueueReader interface {
	Snapshot() []models.OrderQueueEntry
}

// EventEmitter, realtime kanala giden event yazan bağlantı.
type EventEmitter interface {
	Emit(ctx context.Context, e ws.Event) error
}

// KDSHandler, mutfak ekranı endpoint'leri.
type KDSHandler struct {
	queue        OrderQueueReader
	emitter      EventEmitter
	restaurantID string
}

// NewKDSHandler, constructor. emitter personel bağlantısıdır.
func NewKDSHandler(queue OrderQueueReader, emitter EventEmitter, restaurantID string) *KDSHandler {
	return &KDSHandler{queue: queue, emitter: emitter, restaurantID: restaurantID}
}

// Queue godoc
// GET /api/kds/queue
// En yeni sipariş başta olacak şekilde aktif kuyruk.
func (h *KDSHandler) Queue(w http.ResponseWriter, r *http.Request) {
	queue := h.queue.Snapshot()
	if queue == nil {
		queue = []models.OrderQueueEntry{}
	}
	pkg.JSON(w, http.StatusOK, queue)
}

// Acknowledge godoc
// POST /api/kds/orders/{id}/acknowledge
// order:acknowledge gönderir. Kuyruk yerelde değişmez; sunucunun
// order:acknowledged yayını geldiğinde güncellenir.
func (h *KDSHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "order id required")
		return
	}

	ev, err := ws.NewEvent(ws.EventOrderAcknowledge, ws.OrderAcknowledgePayload{
		OrderID:      orderID,
		RestaurantID: h.restaurantID,
	})
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if err := h.emitter.Emit(r.Context(), ev); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusAccepted, map[string]string{"orderId": orderID})
}
