package handlers

import (
	"context"
	"net/http"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// DeliveryTracking, tek teslimat takibi.
type DeliveryTracking interface {
	Track(deliveryID string) error
	Snapshot() (models.DeliveryTrackState, bool)
}

// LocationPublisher, sürücü konumu yayını.
type LocationPublisher interface {
	PublishLocation(ctx context.Context, deliveryID string, loc models.DriverLocation) (sent bool, err error)
}

// DeliveryHandler, teslimat takibi ve sürücü konumu endpoint'leri.
// driver nil ise bu cihazda sürücü kanalı yoktur.
type DeliveryHandler struct {
	tracker DeliveryTracking
	driver  LocationPublisher
}

// NewDeliveryHandler, constructor.
func NewDeliveryHandler(tracker DeliveryTracking, driver LocationPublisher) *DeliveryHandler {
	return &DeliveryHandler{tracker: tracker, driver: driver}
}

// Track godoc
// POST /api/deliveries/{id}/track
// Takip edilen teslimatı değiştirir; önceki teslimatın odasından çıkılır.
func (h *DeliveryHandler) Track(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.PathValue("id")

	if err := h.tracker.Track(deliveryID); err != nil {
		pkg.Error(w, err)
		return
	}

	state, _ := h.tracker.Snapshot()
	pkg.JSON(w, http.StatusOK, state)
}

// Current godoc
// GET /api/deliveries/current
func (h *DeliveryHandler) Current(w http.ResponseWriter, r *http.Request) {
	state, ok := h.tracker.Snapshot()
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusNotFound, "no delivery tracked")
		return
	}
	pkg.JSON(w, http.StatusOK, state)
}

type publishLocationRequest struct {
	DeliveryID string `json:"deliveryId"`
	models.DriverLocation
}

type publishLocationResponse struct {
	Sent bool `json:"sent"`
}

// PublishLocation godoc
// POST /api/driver/location
// Kısılan (throttled) güncellemeler hata değildir; sent=false döner.
func (h *DeliveryHandler) PublishLocation(w http.ResponseWriter, r *http.Request) {
	if h.driver == nil {
		pkg.ErrorWithMessage(w, http.StatusNotFound, "driver channel disabled")
		return
	}

	var req publishLocationRequest
	if err := decodeBody(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	sent, err := h.driver.PublishLocation(r.Context(), req.DeliveryID, req.DriverLocation)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, publishLocationResponse{Sent: sent})
}
