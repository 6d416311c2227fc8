package handlers

import (
	"net/http"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// AlertReader, son bilinen uyarı sayaçları.
type AlertReader interface {
	Snapshot() (models.AlertStats, bool)
}

// AlertHandler, süper admin uyarı sayaçları.
type AlertHandler struct {
	feed AlertReader
}

// NewAlertHandler, constructor.
func NewAlertHandler(feed AlertReader) *AlertHandler {
	return &AlertHandler{feed: feed}
}

// Stats godoc
// GET /api/alerts
// İlk çekim tamamlanmadıysa 503.
func (h *AlertHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, ok := h.feed.Snapshot()
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusServiceUnavailable, "alert stats not loaded yet")
		return
	}
	pkg.JSON(w, http.StatusOK, stats)
}
