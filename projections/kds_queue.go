package projections

import (
	"sync"
	"time"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg/cache"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

// KDSQueueCap, KDS kuyruğunda tutulan en fazla sipariş. Fazlası sondan düşer.
const KDSQueueCap = 50

// DefaultSound, payload ses belirtmediğinde kullanılan ipucu.
const DefaultSound = "new-order"

// KDSChange, ReduceKDS'in yaptığı değişiklik.
type KDSChange struct {
	Changed bool
	// Added, kuyruğun başına yeni eklenen siparişin id'si. Yeni ekleme yoksa boş.
	Added string
	// Sound, Added için istenen ses.
	Sound string
}

// ReduceKDS, bir event'i KDS kuyruğuna uygular. queue değiştirilmez.
//
//   - order:new / kds:new-order: başa ekler. Id zaten varsa yerinde günceller (tekrar ekleme yok).
//   - order:updated / kds:order-updated: id varsa değiştirir, yoksa no-op.
//   - kds:order-ready: id'yi çıkarır.
//   - order:acknowledged: status'u yerinde günceller.
func ReduceKDS(queue []models.OrderQueueEntry, msg ws.Message, now time.Time) ([]models.OrderQueueEntry, KDSChange) {
	switch p := msg.Payload.(type) {
	case *ws.OrderPayload:
		if p.OrderID == "" {
			return queue, KDSChange{}
		}
		switch msg.Name {
		case ws.EventOrderNew, ws.EventKDSNewOrder:
			if idx := indexOfOrder(queue, p.OrderID); idx >= 0 {
				next := cloneQueue(queue)
				next[idx] = mergeOrder(next[idx], p)
				return next, KDSChange{Changed: true}
			}
			sound := p.Sound
			if sound == "" {
				sound = DefaultSound
			}
			entry := models.OrderQueueEntry{
				OrderID:     p.OrderID,
				OrderNumber: p.OrderNumber,
				Status:      p.Status,
				Items:       p.Items,
				TableNumber: p.TableNumber,
				OrderType:   p.OrderType,
				SoundHint:   sound,
				ReceivedAt:  now,
			}
			if entry.Status == "" {
				entry.Status = models.OrderPending
			}
			next := make([]models.OrderQueueEntry, 0, min(len(queue)+1, KDSQueueCap))
			next = append(next, entry.Clone())
			for _, e := range queue {
				if len(next) == KDSQueueCap {
					break
				}
				next = append(next, e.Clone())
			}
			return next, KDSChange{Changed: true, Added: p.OrderID, Sound: sound}

		case ws.EventOrderUpdated, ws.EventKDSOrderUpdated:
			idx := indexOfOrder(queue, p.OrderID)
			if idx < 0 {
				return queue, KDSChange{}
			}
			next := cloneQueue(queue)
			next[idx] = mergeOrder(next[idx], p)
			return next, KDSChange{Changed: true}
		}

	case *ws.OrderRefPayload:
		if msg.Name != ws.EventKDSOrderReady {
			return queue, KDSChange{}
		}
		idx := indexOfOrder(queue, p.OrderID)
		if idx < 0 {
			return queue, KDSChange{}
		}
		next := make([]models.OrderQueueEntry, 0, len(queue)-1)
		for i, e := range queue {
			if i != idx {
				next = append(next, e.Clone())
			}
		}
		return next, KDSChange{Changed: true}

	case *ws.OrderAcknowledgedPayload:
		idx := indexOfOrder(queue, p.OrderID)
		if idx < 0 || p.Status == "" || queue[idx].Status == p.Status {
			return queue, KDSChange{}
		}
		next := cloneQueue(queue)
		next[idx].Status = p.Status
		return next, KDSChange{Changed: true}
	}
	return queue, KDSChange{}
}

// mergeOrder, güncelleme payload'unu mevcut girişe uygular. Ses ipucu ve
// geliş zamanı korunur; boş alanlar eskisini silmez.
func mergeOrder(e models.OrderQueueEntry, p *ws.OrderPayload) models.OrderQueueEntry {
	if p.OrderNumber != "" {
		e.OrderNumber = p.OrderNumber
	}
	if p.Status != "" {
		e.Status = p.Status
	}
	if p.Items != nil {
		e.Items = p.Items
	}
	if p.TableNumber != "" {
		e.TableNumber = p.TableNumber
	}
	if p.OrderType != "" {
		e.OrderType = p.OrderType
	}
	return e.Clone()
}

func indexOfOrder(queue []models.OrderQueueEntry, id string) int {
	for i := range queue {
		if queue[i].OrderID == id {
			return i
		}
	}
	return -1
}

func cloneQueue(queue []models.OrderQueueEntry) []models.OrderQueueEntry {
	out := make([]models.OrderQueueEntry, len(queue))
	for i, e := range queue {
		out[i] = e.Clone()
	}
	return out
}

// KDSQueue, mutfak ekranının canlı sipariş kuyruğu.
type KDSQueue struct {
	mu      sync.RWMutex
	entries []models.OrderQueueEntry

	// sounds, ses ipucu verilmiş sipariş id'leri. Aynı sipariş pencere
	// içinde tekrar eklense bile ses bir kez çalar.
	sounds *cache.TTLCache[string, struct{}]
	now    func() time.Time

	changes listenerSet[[]models.OrderQueueEntry]
	hints   listenerSet[models.SoundHint]
}

// NewKDSQueue, constructor. soundWindow: ses tekilleştirme penceresi.
func NewKDSQueue(soundWindow time.Duration) *KDSQueue {
	if soundWindow <= 0 {
		soundWindow = 10 * time.Minute
	}
	return &KDSQueue{
		sounds: cache.New[string, struct{}](soundWindow, soundWindow),
		now:    time.Now,
	}
}

// Apply, event'i kuyruğa uygular ve gerekirse dinleyicileri çağırır.
func (q *KDSQueue) Apply(msg ws.Message) {
	q.mu.Lock()
	next, change := ReduceKDS(q.entries, msg, q.now())
	if !change.Changed {
		q.mu.Unlock()
		return
	}
	q.entries = next
	snapshot := cloneQueue(next)
	q.mu.Unlock()

	q.changes.emit(snapshot)

	if change.Added != "" && q.sounds.SetIfAbsent(change.Added, struct{}{}) {
		q.hints.emit(models.SoundHint{OrderID: change.Added, Sound: change.Sound})
	}
}

// Snapshot, kuyruğun kopyası (en yeni başta).
func (q *KDSQueue) Snapshot() []models.OrderQueueEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return cloneQueue(q.entries)
}

// Reset, kuyruğu boşaltır (ör. restoran değişimi).
func (q *KDSQueue) Reset() {
	q.mu.Lock()
	q.entries = nil
	q.mu.Unlock()
	q.changes.emit([]models.OrderQueueEntry{})
}

// OnChange, kuyruk her değiştiğinde yeni kopya ile çağrılır.
func (q *KDSQueue) OnChange(fn func([]models.OrderQueueEntry)) (unsubscribe func()) {
	return q.changes.add(fn)
}

// OnSoundHint, yeni sipariş başına en fazla bir kez çağrılır.
func (q *KDSQueue) OnSoundHint(fn func(models.SoundHint)) (unsubscribe func()) {
	return q.hints.add(fn)
}

// Close, ses penceresinin temizlik goroutine'ini durdurur.
func (q *KDSQueue) Close() {
	q.sounds.Close()
}
