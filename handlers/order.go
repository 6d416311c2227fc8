package handlers

import (
	"net/http"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// OrderTracking, müşterinin tek sipariş takibi.
type OrderTracking interface {
	Track(orderID string) error
	Snapshot() (models.OrderTrackState, bool)
}

// OrderHandler, sipariş takibi endpoint'leri.
type OrderHandler struct {
	tracker OrderTracking
}

// NewOrderHandler, constructor.
func NewOrderHandler(tracker OrderTracking) *OrderHandler {
	return &OrderHandler{tracker: tracker}
}

// Track godoc
// POST /api/orders/{id}/track
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Track(r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}
	state, _ := h.tracker.Snapshot()
	pkg.JSON(w, http.StatusOK, state)
}

// Current godoc
// GET /api/orders/current
func (h *OrderHandler) Current(w http.ResponseWriter, r *http.Request) {
	state, ok := h.tracker.Snapshot()
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusNotFound, "no order tracked")
		return
	}
	pkg.JSON(w, http.StatusOK, state)
}
