package projections

import (
	"fmt"
	"sync"
	"time"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

// ReduceOrderTrack, sipariş odasındaki order:status / order:ready event'lerini uygular.
// Başka siparişlere ait event'ler yok sayılır.
func ReduceOrderTrack(state models.OrderTrackState, msg ws.Message, now time.Time) (models.OrderTrackState, bool) {
	if state.OrderID == "" {
		return state, false
	}

	switch p := msg.Payload.(type) {
	case *ws.OrderStatusPayload:
		if p.OrderID != state.OrderID || p.Status == "" {
			return state, false
		}
		state.Status = p.Status
		state.Ready = p.Status == models.OrderReady
		if p.Message != "" {
			state.Message = p.Message
		}
		state.UpdatedAt = now
		return state, true

	case *ws.OrderReadyPayload:
		if p.OrderID != state.OrderID {
			return state, false
		}
		state.Status = models.OrderReady
		state.Ready = true
		if p.Message != "" {
			state.Message = p.Message
		}
		state.UpdatedAt = now
		return state, true
	}
	return state, false
}

// OrderTracker, müşterinin tek bir siparişini takip eder.
type OrderTracker struct {
	rooms RoomHolder

	mu      sync.RWMutex
	state   models.OrderTrackState
	release func()
	now     func() time.Time

	changes listenerSet[models.OrderTrackState]
}

func NewOrderTracker(rooms RoomHolder) *OrderTracker {
	return &OrderTracker{rooms: rooms, now: time.Now}
}

// Track, orderID'yi takip etmeye başlar; önceki siparişin odası bırakılır.
func (t *OrderTracker) Track(orderID string) error {
	if orderID == "" {
		return fmt.Errorf("%w: id required", pkg.ErrBadRequest)
	}

	var release func()
	if t.rooms != nil {
		r, err := t.rooms.Hold(models.RoomOrder, orderID)
		if err != nil {
			return err
		}
		release = r
	}

	t.mu.Lock()
	prev := t.release
	t.release = release
	t.state = models.OrderTrackState{OrderID: orderID}
	snapshot := t.state
	t.mu.Unlock()

	if prev != nil {
		prev()
	}
	t.changes.emit(snapshot)
	return nil
}

func (t *OrderTracker) Untrack() {
	t.mu.Lock()
	prev := t.release
	t.release = nil
	t.state = models.OrderTrackState{}
	t.mu.Unlock()

	if prev != nil {
		prev()
	}
	t.changes.emit(models.OrderTrackState{})
}

func (t *OrderTracker) Apply(msg ws.Message) {
	t.mu.Lock()
	next, changed := ReduceOrderTrack(t.state, msg, t.now())
	if !changed {
		t.mu.Unlock()
		return
	}
	t.state = next
	t.mu.Unlock()

	t.changes.emit(next)
}

func (t *OrderTracker) Snapshot() (models.OrderTrackState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state, t.state.OrderID != ""
}

func (t *OrderTracker) OnChange(fn func(models.OrderTrackState)) (unsubscribe func()) {
	return t.changes.add(fn)
}
