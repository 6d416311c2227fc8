// Package ratelimit: sürücü konum yayınlarını teslimat bazlı kısıtlar.
//
// Sürücü cihazı GPS'ten saniyede birkaç konum alabilir; her birini
// driver:location:update olarak göndermek hem bataryayı hem realtime sunucusunu yorar.
// LocationThrottle her teslimat için bir token bucket (golang.org/x/time/rate) tutar:
// minInterval içinde gelen ek konumlar düşürülür, caller bir sonrakini bekler.
//
// Neden teslimat bazlı?
// Bir sürücü aynı anda birden fazla teslimata atanabilir; her teslimatın
// takip ekranı kendi akışını görmeli, biri diğerinin kotasını yememeli.
//
// pkg/ratelimit hiçbir proje içi pakete bağımlı değildir (leaf dependency).
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// throttleEntry, bir teslimatın limiter'ı ve son kullanım zamanı.
// lastSeen cleanup için tutulur.
type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocationThrottle, teslimat bazlı konum yayın kısıtlayıcısı.
//
//	throttle := NewLocationThrottle(3 * time.Second)
//	defer throttle.Stop()
//	if throttle.Allow(deliveryID) { emit(...) }
type LocationThrottle struct {
	mu          sync.Mutex
	entries     map[string]*throttleEntry
	every       rate.Limit
	idleTTL     time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewLocationThrottle, minInterval'de en fazla bir yayına izin veren throttle oluşturur.
// minInterval <= 0 ise kısıtlama yapılmaz.
func NewLocationThrottle(minInterval time.Duration) *LocationThrottle {
	every := rate.Inf
	if minInterval > 0 {
		every = rate.Every(minInterval)
	}

	idle := 10 * minInterval
	if idle < time.Minute {
		idle = time.Minute
	}

	lt := &LocationThrottle{
		entries:     make(map[string]*throttleEntry),
		every:       every,
		idleTTL:     idle,
		stopCleanup: make(chan struct{}),
	}

	go lt.cleanupLoop()

	return lt
}

// Allow, bu teslimat için şimdi yayın yapılabilir mi? İlk çağrı her zaman true.
func (lt *LocationThrottle) Allow(deliveryID string) bool {
	now := time.Now()

	lt.mu.Lock()
	defer lt.mu.Unlock()

	e, ok := lt.entries[deliveryID]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(lt.every, 1)}
		lt.entries[deliveryID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Forget, teslimat bittiğinde bucket'ı siler.
func (lt *LocationThrottle) Forget(deliveryID string) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	delete(lt.entries, deliveryID)
}

// Stop, arka plan temizleme goroutine'ini durdurur. Graceful shutdown'da çağrılır.
func (lt *LocationThrottle) Stop() {
	lt.stopOnce.Do(func() { close(lt.stopCleanup) })
}

// cleanupLoop, uzun süre kullanılmayan bucket'ları periyodik olarak siler.
func (lt *LocationThrottle) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lt.evictIdle(time.Now())
		case <-lt.stopCleanup:
			return
		}
	}
}

func (lt *LocationThrottle) evictIdle(now time.Time) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	for id, e := range lt.entries {
		if now.Sub(e.lastSeen) > lt.idleTTL {
			delete(lt.entries, id)
		}
	}
}
