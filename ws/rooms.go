package ws

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
)

// RoomManager, tek bir Connection üzerindeki oda katılımları ve event abonelikleri.
//
// Odalar referans sayımlıdır: aynı odaya iki görünüm katılırsa leave, son görünüm
// ayrıldığında gönderilir. Bağlı değilken yapılan Join kaydedilir ve bağlantı
// kurulduğunda gönderilir; kopma sonrası yeniden bağlanmada tüm odalara tekrar katılınır.
// Credential değişimi veya logout (reset) kayıtları siler.
type RoomManager struct {
	conn *Connection
	log  logrus.FieldLogger

	mu             sync.Mutex
	rooms          map[models.RoomSubscription]int
	subs           map[string][]handlerEntry[func(Message)]
	resetListeners []handlerEntry[func()]
	nextID         int

	detach []func()
}

// NewRoomManager, connection'a bağlanır. Close ile ayrılır.
func NewRoomManager(conn *Connection, log logrus.FieldLogger) *RoomManager {
	m := &RoomManager{
		conn:  conn,
		log:   logger.Component(log, "ws.rooms").WithField("actor", conn.Actor()),
		rooms: make(map[models.RoomSubscription]int),
		subs:  make(map[string][]handlerEntry[func(Message)]),
	}
	m.detach = []func(){
		conn.OnEvent(m.route),
		conn.OnStatus(m.onStatus),
		conn.OnReset(m.onReset),
	}
	return m
}

// Connection, altta yatan bağlantı.
func (m *RoomManager) Connection() *Connection { return m.conn }

// Join, odaya katılır. İlk katılımda join event'i gönderilir; bağlı değilse
// bağlantı kurulunca gönderilir.
func (m *RoomManager) Join(ctx context.Context, roomType models.RoomType, id string) error {
	room, err := newRoom(roomType, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.rooms[room]++
	first := m.rooms[room] == 1
	m.mu.Unlock()

	if !first {
		return nil
	}
	return m.emitRoom(ctx, JoinEvent(string(room.Type)), room)
}

// Leave, katılımı bırakır. Son katılım bırakıldığında leave event'i gönderilir.
// Katılınmamış oda için no-op.
func (m *RoomManager) Leave(ctx context.Context, roomType models.RoomType, id string) error {
	room, err := newRoom(roomType, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	n := m.rooms[room]
	if n == 0 {
		m.mu.Unlock()
		return nil
	}
	last := n == 1
	if last {
		delete(m.rooms, room)
	} else {
		m.rooms[room] = n - 1
	}
	m.mu.Unlock()

	if !last {
		return nil
	}
	return m.emitRoom(ctx, LeaveEvent(string(room.Type)), room)
}

// Hold, görünüm ömrü boyunca odada kalır: reset sonrası otomatik tekrar katılır.
// Dönen release bir kez Leave yapar; sonraki çağrılar no-op.
func (m *RoomManager) Hold(roomType models.RoomType, id string) (release func(), err error) {
	if _, err := newRoom(roomType, id); err != nil {
		return nil, err
	}

	join := func() {
		if err := m.Join(context.Background(), roomType, id); err != nil {
			m.log.WithError(err).WithField("room", string(roomType)+":"+id).Warn("join failed")
		}
	}

	m.mu.Lock()
	m.nextID++
	listenerID := m.nextID
	m.resetListeners = append(m.resetListeners, handlerEntry[func()]{id: listenerID, fn: join})
	m.mu.Unlock()

	join()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.resetListeners = removeEntry(m.resetListeners, listenerID)
			m.mu.Unlock()
			if err := m.Leave(context.Background(), roomType, id); err != nil {
				m.log.WithError(err).Debug("leave failed")
			}
		})
	}, nil
}

// On, event adına abone olur. Handler çözülmüş Message alır.
// Dönen unsubscribe idempotenttir.
func (m *RoomManager) On(name string, handler func(Message)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[name] = append(m.subs[name], handlerEntry[func(Message)]{id: id, fn: handler})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.subs[name] = removeEntry(m.subs[name], id)
			if len(m.subs[name]) == 0 {
				delete(m.subs, name)
			}
		})
	}
}

// Joined, kayıtlı odalar (sıralı).
func (m *RoomManager) Joined() []models.RoomSubscription {
	m.mu.Lock()
	out := make([]models.RoomSubscription, 0, len(m.rooms))
	for room := range m.rooms {
		out = append(out, room)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Close, connection callback'lerinden ayrılır.
func (m *RoomManager) Close() {
	for _, fn := range m.detach {
		fn()
	}
}

func (m *RoomManager) emitRoom(ctx context.Context, name string, room models.RoomSubscription) error {
	ev, err := NewEvent(name, joinPayload(room))
	if err != nil {
		return err
	}
	if err := m.conn.Emit(ctx, ev); err != nil {
		if errors.Is(err, pkg.ErrNotConnected) {
			// Bağlantı kurulduğunda onStatus tekrar gönderir.
			return nil
		}
		return err
	}
	return nil
}

func (m *RoomManager) route(ev Event) {
	msg, err := Decode(ev)
	if err != nil && !errors.Is(err, ErrUnknownEvent) {
		m.log.WithError(err).WithField("event", ev.Name).Warn("dropping undecodable event")
		return
	}

	m.mu.Lock()
	handlers := append([]handlerEntry[func(Message)](nil), m.subs[ev.Name]...)
	m.mu.Unlock()

	for _, h := range handlers {
		m.deliver(h.fn, msg)
	}
}

func (m *RoomManager) deliver(fn func(Message), msg Message) {
	defer func() {
		if r := recover(); r != nil {
			m.log.WithField("event", msg.Name).Error(fmt.Sprintf("subscriber panic: %v", r))
		}
	}()
	fn(msg)
}

func (m *RoomManager) onStatus(h models.ConnectionHandle) {
	if h.Status != models.StatusConnected {
		return
	}
	for _, room := range m.Joined() {
		if err := m.emitRoom(context.Background(), JoinEvent(string(room.Type)), room); err != nil {
			m.log.WithError(err).WithField("room", room.String()).Warn("rejoin failed")
		}
	}
}

func (m *RoomManager) onReset() {
	m.mu.Lock()
	m.rooms = make(map[models.RoomSubscription]int)
	listeners := append([]handlerEntry[func()](nil), m.resetListeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l.fn()
	}
}

func newRoom(roomType models.RoomType, id string) (models.RoomSubscription, error) {
	if !roomType.Valid() {
		return models.RoomSubscription{}, fmt.Errorf("%w: room type %q", pkg.ErrBadRequest, roomType)
	}
	if id == "" {
		return models.RoomSubscription{}, fmt.Errorf("%w: room id required", pkg.ErrBadRequest)
	}
	return models.RoomSubscription{Type: roomType, ID: id}, nil
}
