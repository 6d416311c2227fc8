package projections

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

// fakeSubscriber, RoomManager yerine event'leri senkron teslim eder.
type fakeSubscriber struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func(ws.Message)
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{subs: make(map[string]map[int]func(ws.Message))}
}

func (f *fakeSubscriber) On(name string, fn func(ws.Message)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[name] == nil {
		f.subs[name] = make(map[int]func(ws.Message))
	}
	f.next++
	id := f.next
	f.subs[name][id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[name], id)
	}
}

// publish, event'i ws.Decode'dan geçirip abonelere verir.
func (f *fakeSubscriber) publish(t *testing.T, name string, payload any) {
	t.Helper()
	ev, err := ws.NewEvent(name, payload)
	require.NoError(t, err)
	msg, err := ws.Decode(ev)
	require.NoError(t, err)

	f.mu.Lock()
	var fns []func(ws.Message)
	for _, fn := range f.subs[name] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (f *fakeSubscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.subs {
		n += len(m)
	}
	return n
}

// fakeRooms, Hold/release çağrılarını kaydeder.
type fakeRooms struct {
	mu   sync.Mutex
	held map[models.RoomSubscription]int
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{held: make(map[models.RoomSubscription]int)}
}

func (r *fakeRooms) Hold(roomType models.RoomType, id string) (func(), error) {
	room := models.RoomSubscription{Type: roomType, ID: id}
	r.mu.Lock()
	r.held[room]++
	r.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.held[room]--
			if r.held[room] == 0 {
				delete(r.held, room)
			}
			r.mu.Unlock()
		})
	}, nil
}

func (r *fakeRooms) rooms() map[models.RoomSubscription]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[models.RoomSubscription]int, len(r.held))
	for k, v := range r.held {
		out[k] = v
	}
	return out
}

func orderIDs(queue []models.OrderQueueEntry) []string {
	ids := make([]string, len(queue))
	for i, e := range queue {
		ids[i] = e.OrderID
	}
	return ids
}

func msg(name string, payload any) ws.Message {
	return ws.Message{Name: name, Payload: payload}
}
