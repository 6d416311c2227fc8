package projections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

func TestReduceOrderTrack(t *testing.T) {
	now := time.Now()
	state := models.OrderTrackState{OrderID: "o1"}

	state, changed := ReduceOrderTrack(state, msg(ws.EventOrderStatus, &ws.OrderStatusPayload{OrderID: "o1", Status: models.OrderPreparing}), now)
	require.True(t, changed)
	assert.Equal(t, models.OrderPreparing, state.Status)
	assert.False(t, state.Ready)

	_, changed = ReduceOrderTrack(state, msg(ws.EventOrderReady, &ws.OrderReadyPayload{OrderID: "o2"}), now)
	assert.False(t, changed)

	state, changed = ReduceOrderTrack(state, msg(ws.EventOrderReady, &ws.OrderReadyPayload{OrderID: "o1", Message: "Siparişiniz hazır"}), now)
	require.True(t, changed)
	assert.True(t, state.Ready)
	assert.Equal(t, models.OrderReady, state.Status)
	assert.Equal(t, "Siparişiniz hazır", state.Message)
}

func TestOrderTrackerBound(t *testing.T) {
	sub := newFakeSubscriber()
	rooms := newFakeRooms()
	tracker := NewOrderTracker(rooms)
	unbind := BindOrderTrack(sub, tracker)
	defer unbind()

	require.NoError(t, tracker.Track("o1"))
	assert.Len(t, rooms.rooms(), 1)

	sub.publish(t, ws.EventOrderStatus, ws.OrderStatusPayload{OrderID: "o1", Status: models.OrderReady})
	state, ok := tracker.Snapshot()
	require.True(t, ok)
	assert.True(t, state.Ready)

	tracker.Untrack()
	assert.Empty(t, rooms.rooms())
}
