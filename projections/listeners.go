// Package projections, realtime event'lerini okunabilir state'e katlar.
//
// Her projeksiyon iki parçadan oluşur:
//   - Saf reducer (ReduceKDS, ReduceDelivery …): state + mesaj → yeni state.
//     Girdiyi değiştirmez; test edilmesi kolaydır.
//   - Holder (KDSQueue, DeliveryTracker …): reducer'ı mutex altında uygular,
//     okuyuculara kopya (Snapshot) verir, değişikliklerde dinleyicileri çağırır.
//
// Holder'lar Bind* yardımcılarıyla bir ws.RoomManager'a bağlanır.
package projections

import (
	"sync"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

// Subscriber, event aboneliği sağlayan taraf (ws.RoomManager).
type Subscriber interface {
	On(name string, handler func(ws.Message)) (unsubscribe func())
}

// RoomHolder, görünüm ömrü boyunca odada kalma (ws.RoomManager.Hold).
type RoomHolder interface {
	Hold(roomType models.RoomType, id string) (release func(), err error)
}

// listenerSet, dinleyici kaydı. emit, kilit dışında çağrılmalıdır.
type listenerSet[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (l *listenerSet[T]) add(fn func(T)) (unsubscribe func()) {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	l.next++
	id := l.next
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listenerSet[T]) emit(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func unbindAll(fns ...func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, fn := range fns {
				fn()
			}
		})
	}
}
