package projections

import (
	"sync"

	"github.com/HusseinTALL/menuqr-sync/models"
)

// AlertFeed, sistem uyarısı sayaçları. Doğruluk kaynağı periyodik çekimdir;
// realtime yalnızca erken yenilemeyi tetikler.
type AlertFeed struct {
	mu    sync.RWMutex
	stats models.AlertStats
	has   bool

	changes listenerSet[models.AlertStats]
}

func NewAlertFeed() *AlertFeed {
	return &AlertFeed{}
}

// Set, yeni sayaçları yazar ve önceki değeri döner. Sayaçlar değişmediyse
// dinleyiciler çağrılmaz.
func (f *AlertFeed) Set(stats models.AlertStats) (previous models.AlertStats, hadPrevious bool) {
	f.mu.Lock()
	previous, hadPrevious = f.stats, f.has
	same := f.has && sameCounters(f.stats, stats)
	f.stats, f.has = stats, true
	f.mu.Unlock()

	if !same {
		f.changes.emit(stats)
	}
	return previous, hadPrevious
}

// Snapshot, son sayaçlar. Henüz çekilmediyse ok=false.
func (f *AlertFeed) Snapshot() (models.AlertStats, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stats, f.has
}

func (f *AlertFeed) OnChange(fn func(models.AlertStats)) (unsubscribe func()) {
	return f.changes.add(fn)
}

func sameCounters(a, b models.AlertStats) bool {
	return a.Unresolved == b.Unresolved && a.Critical == b.Critical && a.Last24h == b.Last24h
}
