package handlers

import (
	"context"
	"net/http"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// NotificationReader, bildirim akışının okunabilir görüntüsü.
type NotificationReader interface {
	Snapshot() []models.NotificationEntry
	Unread() int
}

// NotificationMarker, sunucuda okundu işaretleme.
type NotificationMarker interface {
	MarkRead(ctx context.Context, id string) error
}

// NotificationHandler, personel bildirim akışı endpoint'leri.
type NotificationHandler struct {
	feed    NotificationReader
	service NotificationMarker
}

// NewNotificationHandler, constructor.
func NewNotificationHandler(feed NotificationReader, service NotificationMarker) *NotificationHandler {
	return &NotificationHandler{feed: feed, service: service}
}

type notificationListResponse struct {
	Notifications []models.NotificationEntry `json:"notifications"`
	Unread        int                        `json:"unread"`
}

// List godoc
// GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.feed.Snapshot()
	if entries == nil {
		entries = []models.NotificationEntry{}
	}
	pkg.JSON(w, http.StatusOK, notificationListResponse{
		Notifications: entries,
		Unread:        h.feed.Unread(),
	})
}

// MarkRead godoc
// POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.service.MarkRead(r.Context(), id); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "notification marked as read"})
}
