package projections

import (
	"sort"
	"sync"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

// NotificationCap, akışta tutulan en fazla bildirim.
const NotificationCap = 100

// InsertNotification, realtime gelen bildirimi başa ekler. Aynı id zaten varsa
// akış değişmez. Sıralama yapılmaz: realtime kayıt en yeni kabul edilir.
func InsertNotification(feed []models.NotificationEntry, entry models.NotificationEntry) ([]models.NotificationEntry, bool) {
	if entry.ID == "" {
		return feed, false
	}
	for _, e := range feed {
		if e.ID == entry.ID {
			return feed, false
		}
	}

	next := make([]models.NotificationEntry, 0, min(len(feed)+1, NotificationCap))
	next = append(next, cloneNotification(entry))
	for _, e := range feed {
		if len(next) == NotificationCap {
			break
		}
		next = append(next, cloneNotification(e))
	}
	return next, true
}

// MergeNotifications, tam yenilemeden gelen listeyi mevcut akışla birleştirir.
// Aynı id için sunucudaki kayıt kazanır; sonuç createdAt'e göre azalan sıralanır
// ve NotificationCap ile sınırlanır. Sonuçta her id en fazla bir kez bulunur.
func MergeNotifications(current, fetched []models.NotificationEntry) []models.NotificationEntry {
	byID := make(map[string]models.NotificationEntry, len(current)+len(fetched))
	for _, e := range current {
		if e.ID != "" {
			byID[e.ID] = e
		}
	}
	for _, e := range fetched {
		if e.ID != "" {
			byID[e.ID] = e
		}
	}

	merged := make([]models.NotificationEntry, 0, len(byID))
	for _, e := range byID {
		merged = append(merged, cloneNotification(e))
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID > merged[j].ID
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > NotificationCap {
		merged = merged[:NotificationCap]
	}
	return merged
}

func cloneNotification(e models.NotificationEntry) models.NotificationEntry {
	if e.Link != nil {
		link := *e.Link
		e.Link = &link
	}
	return e
}

func cloneFeed(feed []models.NotificationEntry) []models.NotificationEntry {
	out := make([]models.NotificationEntry, len(feed))
	for i, e := range feed {
		out[i] = cloneNotification(e)
	}
	return out
}

// NotificationFeed, personel bildirim akışı.
type NotificationFeed struct {
	mu      sync.RWMutex
	entries []models.NotificationEntry

	changes listenerSet[[]models.NotificationEntry]
}

func NewNotificationFeed() *NotificationFeed {
	return &NotificationFeed{}
}

// Apply, notification:new event'ini uygular.
func (f *NotificationFeed) Apply(msg ws.Message) {
	p, ok := msg.Payload.(*ws.NotificationPayload)
	if !ok {
		return
	}
	f.Insert(p.NotificationEntry)
}

// Insert, tek bir bildirimi ekler. Tekrar eden id için false.
func (f *NotificationFeed) Insert(entry models.NotificationEntry) bool {
	f.mu.Lock()
	next, changed := InsertNotification(f.entries, entry)
	if !changed {
		f.mu.Unlock()
		return false
	}
	f.entries = next
	snapshot := cloneFeed(next)
	f.mu.Unlock()

	f.changes.emit(snapshot)
	return true
}

// Merge, tam yenileme sonucunu uygular.
func (f *NotificationFeed) Merge(fetched []models.NotificationEntry) {
	f.mu.Lock()
	f.entries = MergeNotifications(f.entries, fetched)
	snapshot := cloneFeed(f.entries)
	f.mu.Unlock()

	f.changes.emit(snapshot)
}

// MarkRead, bildirimi yerelde okundu işaretler. Bulunamazsa false.
func (f *NotificationFeed) MarkRead(id string) bool {
	f.mu.Lock()
	found := false
	for i := range f.entries {
		if f.entries[i].ID == id {
			found = true
			if f.entries[i].Read {
				f.mu.Unlock()
				return true
			}
			f.entries[i].Read = true
			break
		}
	}
	if !found {
		f.mu.Unlock()
		return false
	}
	snapshot := cloneFeed(f.entries)
	f.mu.Unlock()

	f.changes.emit(snapshot)
	return true
}

func (f *NotificationFeed) Snapshot() []models.NotificationEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneFeed(f.entries)
}

// Unread, okunmamış bildirim sayısı.
func (f *NotificationFeed) Unread() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, e := range f.entries {
		if !e.Read {
			n++
		}
	}
	return n
}

// Reset, akışı boşaltır (logout).
func (f *NotificationFeed) Reset() {
	f.mu.Lock()
	f.entries = nil
	f.mu.Unlock()
	f.changes.emit([]models.NotificationEntry{})
}

func (f *NotificationFeed) OnChange(fn func([]models.NotificationEntry)) (unsubscribe func()) {
	return f.changes.add(fn)
}
