package projections

import (
	"fmt"
	"sync"
	"time"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

// ReduceDelivery, takip edilen teslimata ait event'i uygular.
// Başka bir deliveryId'ye ait event'ler state'i değiştirmez (tamponlanmaz da).
// Tamamlanma yalnızca status için yapışkandır: sonraki konum ve ETA güncellemeleri kabul edilir.
func ReduceDelivery(state models.DeliveryTrackState, msg ws.Message, now time.Time) (models.DeliveryTrackState, bool) {
	if state.DeliveryID == "" {
		return state, false
	}

	switch p := msg.Payload.(type) {
	case *ws.DriverLocationPayload:
		if p.DeliveryID != state.DeliveryID || !p.Location.Valid() {
			return state, false
		}
		next := state.Clone()
		loc := p.Location
		next.DriverLocation = &loc
		if p.ETA != nil {
			next.ETA = &models.DeliveryETA{
				Minutes:        p.ETA.Minutes,
				DistanceMeters: p.ETA.DistanceMeters,
				UpdatedAt:      now,
			}
		}
		return next.Clone(), true

	case *ws.DeliveryStatusPayload:
		if p.DeliveryID != state.DeliveryID {
			return state, false
		}
		next := state.Clone()
		changed := false
		if !next.Completed && p.Status != "" && p.Status != next.Status {
			next.Status = p.Status
			changed = true
		}
		if p.ETAMinutes != nil {
			eta := models.DeliveryETA{Minutes: *p.ETAMinutes, UpdatedAt: now}
			if next.ETA != nil {
				eta.DistanceMeters = next.ETA.DistanceMeters
			}
			next.ETA = &eta
			changed = true
		}
		if !changed {
			return state, false
		}
		return next, true

	case *ws.DeliveryCompletedPayload:
		if p.DeliveryID != state.DeliveryID || state.Completed {
			return state, false
		}
		next := state.Clone()
		next.Completed = true
		next.Status = models.DeliveryStatusDelivered
		return next, true
	}
	return state, false
}

// DeliveryTracker, tek bir teslimatın canlı takibi.
// Track ile takip edilen teslimat değişir; önceki odanın katılımı bırakılır.
type DeliveryTracker struct {
	rooms RoomHolder // nil olabilir

	mu      sync.RWMutex
	state   models.DeliveryTrackState
	release func()
	now     func() time.Time

	changes listenerSet[models.DeliveryTrackState]
}

// NewDeliveryTracker, constructor. rooms verilirse Track teslimat odasına katılır.
func NewDeliveryTracker(rooms RoomHolder) *DeliveryTracker {
	return &DeliveryTracker{rooms: rooms, now: time.Now}
}

// Track, deliveryID'yi takip etmeye başlar. State sıfırlanır.
func (t *DeliveryTracker) Track(deliveryID string) error {
	if deliveryID == "" {
		return fmt.Errorf("%w: id required", pkg.ErrBadRequest)
	}

	var release func()
	if t.rooms != nil {
		r, err := t.rooms.Hold(models.RoomDelivery, deliveryID)
		if err != nil {
			return err
		}
		release = r
	}

	t.mu.Lock()
	prev := t.release
	t.release = release
	t.state = models.DeliveryTrackState{DeliveryID: deliveryID}
	snapshot := t.state.Clone()
	t.mu.Unlock()

	if prev != nil {
		prev()
	}
	t.changes.emit(snapshot)
	return nil
}

// Untrack, takibi bırakır.
func (t *DeliveryTracker) Untrack() {
	t.mu.Lock()
	prev := t.release
	t.release = nil
	t.state = models.DeliveryTrackState{}
	t.mu.Unlock()

	if prev != nil {
		prev()
	}
	t.changes.emit(models.DeliveryTrackState{})
}

// Apply, event'i uygular.
func (t *DeliveryTracker) Apply(msg ws.Message) {
	t.mu.Lock()
	next, changed := ReduceDelivery(t.state, msg, t.now())
	if !changed {
		t.mu.Unlock()
		return
	}
	t.state = next
	snapshot := next.Clone()
	t.mu.Unlock()

	t.changes.emit(snapshot)
}

// Snapshot, mevcut state'in kopyası. Takip yoksa ok=false.
func (t *DeliveryTracker) Snapshot() (models.DeliveryTrackState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state.DeliveryID == "" {
		return models.DeliveryTrackState{}, false
	}
	return t.state.Clone(), true
}

// OnChange, state değiştiğinde kopya ile çağrılır.
func (t *DeliveryTracker) OnChange(fn func(models.DeliveryTrackState)) (unsubscribe func()) {
	return t.changes.add(fn)
}
