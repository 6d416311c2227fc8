package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
)

func setupRooms(t *testing.T, creds *fakeCreds) (*Connection, *RoomManager, *fakeDialer) {
	t.Helper()
	dialer := newFakeDialer()
	c := newTestConnection(t, creds, dialer, 3, 5*time.Millisecond)
	m := NewRoomManager(c, logger.Discard())
	t.Cleanup(m.Close)
	return c, m, dialer
}

func countNames(names []string, name string) int {
	n := 0
	for _, s := range names {
		if s == name {
			n++
		}
	}
	return n
}

func TestJoinIsReferenceCounted(t *testing.T) {
	c, m, dialer := setupRooms(t, &fakeCreds{token: "A"})
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	require.NoError(t, m.Join(ctx, models.RoomDelivery, "d1"))
	require.NoError(t, m.Join(ctx, models.RoomDelivery, "d1"))
	require.NoError(t, m.Leave(ctx, models.RoomDelivery, "d1"))

	tr := dialer.transport(0)
	assert.Equal(t, 1, countNames(tr.writtenNames(), "join:delivery"))
	assert.Zero(t, countNames(tr.writtenNames(), "leave:delivery"))
	assert.Len(t, m.Joined(), 1)

	require.NoError(t, m.Leave(ctx, models.RoomDelivery, "d1"))
	assert.Equal(t, 1, countNames(tr.writtenNames(), "leave:delivery"))
	assert.Empty(t, m.Joined())

	// Katılınmamış oda için no-op
	require.NoError(t, m.Leave(ctx, models.RoomDelivery, "d1"))
	assert.Equal(t, 1, countNames(tr.writtenNames(), "leave:delivery"))
}

func TestJoinPayloadCarriesRoomID(t *testing.T) {
	c, m, dialer := setupRooms(t, &fakeCreds{token: "A"})
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	require.NoError(t, m.Join(ctx, models.RoomKDS, "r1"))

	tr := dialer.transport(0)
	tr.mu.Lock()
	ev := tr.written[0]
	tr.mu.Unlock()

	assert.Equal(t, "join:kds", ev.Name)
	var body map[string]string
	require.NoError(t, json.Unmarshal(ev.Data, &body))
	assert.Equal(t, "r1", body["restaurantId"])
}

func TestJoinBeforeConnectIsSentOnConnect(t *testing.T) {
	c, m, dialer := setupRooms(t, &fakeCreds{token: "A"})
	ctx := context.Background()

	require.NoError(t, m.Join(ctx, models.RoomOrder, "o1"))
	require.NoError(t, c.Connect(ctx))

	assert.Equal(t, []string{"join:order"}, dialer.transport(0).writtenNames())
}

func TestDropReconnectRejoinsRooms(t *testing.T) {
	c, m, dialer := setupRooms(t, &fakeCreds{token: "A"})
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, m.Join(ctx, models.RoomKDS, "r1"))

	dialer.transport(0).fail(pkg.ErrNetwork)

	require.Eventually(t, func() bool {
		tr := dialer.transport(1)
		return tr != nil && countNames(tr.writtenNames(), "join:kds") == 1
	}, waitFor, tick)
	assert.Len(t, m.Joined(), 1)
}

func TestRotationDiscardsRooms(t *testing.T) {
	creds := &fakeCreds{token: "A"}
	c, m, dialer := setupRooms(t, creds)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	require.NoError(t, m.Join(ctx, models.RoomDelivery, "d1"))
	creds.set("B")

	require.Eventually(t, func() bool {
		return dialer.dialCount() == 2 && c.Status() == models.StatusConnected
	}, waitFor, tick)

	assert.Empty(t, m.Joined())
	assert.Empty(t, dialer.transport(1).writtenNames())
}

func TestHoldRejoinsAfterRotation(t *testing.T) {
	creds := &fakeCreds{token: "A"}
	c, m, dialer := setupRooms(t, creds)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	release, err := m.Hold(models.RoomKDS, "r1")
	require.NoError(t, err)

	creds.set("B")
	require.Eventually(t, func() bool {
		tr := dialer.transport(1)
		return tr != nil && countNames(tr.writtenNames(), "join:kds") == 1
	}, waitFor, tick)

	release()
	release()
	assert.Empty(t, m.Joined())
	assert.Equal(t, 1, countNames(dialer.transport(1).writtenNames(), "leave:kds"))
}

func TestOnDeliversTypedPayload(t *testing.T) {
	c, m, dialer := setupRooms(t, &fakeCreds{token: "A"})
	require.NoError(t, c.Connect(context.Background()))

	var mu sync.Mutex
	var got *DriverLocationPayload
	unsub := m.On(EventDriverLocation, func(msg Message) {
		mu.Lock()
		got, _ = msg.Payload.(*DriverLocationPayload)
		mu.Unlock()
	})
	defer unsub()

	dialer.transport(0).in <- mustEvent(t, EventDriverLocation, DriverLocationPayload{
		DeliveryID: "d1",
		Location:   models.DriverLocation{Lat: 41.0, Lng: 29.0},
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil
	}, waitFor, tick)
	mu.Lock()
	assert.Equal(t, "d1", got.DeliveryID)
	assert.InDelta(t, 41.0, got.Location.Lat, 0.0001)
	mu.Unlock()
}

func TestOnSkipsUndecodableEvent(t *testing.T) {
	c, m, dialer := setupRooms(t, &fakeCreds{token: "A"})
	require.NoError(t, c.Connect(context.Background()))

	var mu sync.Mutex
	var ids []string
	m.On(EventKDSNewOrder, func(msg Message) {
		mu.Lock()
		ids = append(ids, msg.Payload.(*OrderPayload).OrderID)
		mu.Unlock()
	})

	tr := dialer.transport(0)
	tr.in <- Event{Name: EventKDSNewOrder, Data: json.RawMessage(`{"orderId": 12`)}
	tr.in <- mustEvent(t, EventKDSNewOrder, OrderPayload{OrderID: "o2"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ids) == 1
	}, waitFor, tick)
	mu.Lock()
	assert.Equal(t, []string{"o2"}, ids)
	mu.Unlock()
}

func TestJoinValidatesRoom(t *testing.T) {
	_, m, _ := setupRooms(t, &fakeCreds{token: "A"})

	assert.ErrorIs(t, m.Join(context.Background(), models.RoomType("table"), "t1"), pkg.ErrBadRequest)
	assert.ErrorIs(t, m.Join(context.Background(), models.RoomOrder, ""), pkg.ErrBadRequest)
	_, err := m.Hold(models.RoomType("table"), "t1")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}
