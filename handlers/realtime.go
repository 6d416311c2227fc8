package handlers

import (
	"net/http"
	"time"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// ConnectionStatusSource, durumu raporlanacak bir realtime bağlantı.
type ConnectionStatusSource interface {
	Handle() models.ConnectionHandle
}

// RealtimeHandler, sağlık ve bağlantı durumu endpoint'leri.
type RealtimeHandler struct {
	connections []ConnectionStatusSource
	startedAt   time.Time
}

// NewRealtimeHandler, constructor. nil bağlantılar atlanır (ör: sürücü kanalı kapalı).
func NewRealtimeHandler(connections ...ConnectionStatusSource) *RealtimeHandler {
	h := &RealtimeHandler{startedAt: time.Now()}
	for _, c := range connections {
		if c != nil {
			h.connections = append(h.connections, c)
		}
	}
	return h
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Health godoc
// GET /api/health
func (h *RealtimeHandler) Health(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}

// Status godoc
// GET /api/realtime/status
// Her aktör bağlantısının durumunu ve son hatasını döner.
func (h *RealtimeHandler) Status(w http.ResponseWriter, r *http.Request) {
	handles := make([]models.ConnectionHandle, 0, len(h.connections))
	for _, c := range h.connections {
		handles = append(handles, c.Handle())
	}
	pkg.JSON(w, http.StatusOK, handles)
}
