package models

import "time"

// NotificationEntry, personel bildirim akışındaki bir kayıt. ID ile tekilleştirilir.
type NotificationEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      *string   `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// AlertStats, sistem uyarısı sayaçları. Polling doğruluk kaynağıdır.
type AlertStats struct {
	Unresolved int       `json:"unresolved"`
	Critical   int       `json:"critical"`
	Last24h    int       `json:"last24h"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
