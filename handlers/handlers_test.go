package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/services"
	"github.com/HusseinTALL/menuqr-sync/ws"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// serve, handler'ı gerçek bir mux üzerinden çağırır; PathValue'nun dolması için gerekir.
func serve(t *testing.T, pattern string, h http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

// ─── Fakes ───

type fakeStore struct {
	mu      sync.Mutex
	put     []*models.Credential
	cleared []string
	list    []services.CredentialSummary
}

func (s *fakeStore) Put(_ context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put = append(s.put, cred)
	return nil
}

func (s *fakeStore) Clear(_ context.Context, kind models.ActorKind, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, models.StorageKey(kind, tenantID))
	return nil
}

func (s *fakeStore) List(context.Context) ([]services.CredentialSummary, error) {
	return s.list, nil
}

type fakeEmitter struct {
	err    error
	events []ws.Event
}

func (e *fakeEmitter) Emit(_ context.Context, ev ws.Event) error {
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, ev)
	return nil
}

type fakeQueue []models.OrderQueueEntry

func (q fakeQueue) Snapshot() []models.OrderQueueEntry { return q }

type fakeTracker struct {
	state   models.DeliveryTrackState
	tracked bool
}

func (t *fakeTracker) Track(id string) error {
	if id == "" {
		return pkg.ErrBadRequest
	}
	t.state = models.DeliveryTrackState{DeliveryID: id}
	t.tracked = true
	return nil
}

func (t *fakeTracker) Snapshot() (models.DeliveryTrackState, bool) { return t.state, t.tracked }

type fakePublisher struct {
	sent bool
	err  error
	last models.DriverLocation
	id   string
}

func (p *fakePublisher) PublishLocation(_ context.Context, id string, loc models.DriverLocation) (bool, error) {
	p.id, p.last = id, loc
	return p.sent, p.err
}

type fakeConn models.ConnectionHandle

func (c fakeConn) Handle() models.ConnectionHandle { return models.ConnectionHandle(c) }

// ─── Realtime ───

func TestRealtimeStatusListsConnections(t *testing.T) {
	h := NewRealtimeHandler(
		fakeConn{ActorKind: models.ActorStaff, Status: models.StatusConnected},
		nil,
		fakeConn{ActorKind: models.ActorDriver, Status: models.StatusAuthError, LastError: "realtime handshake rejected"},
	)

	rec, env := serve(t, "GET /api/realtime/status", h.Status, http.MethodGet, "/api/realtime/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var handles []models.ConnectionHandle
	require.NoError(t, json.Unmarshal(env.Data, &handles))
	require.Len(t, handles, 2)
	assert.Equal(t, models.StatusAuthError, handles[1].Status)

	rec, env = serve(t, "GET /api/health", h.Health, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

// ─── Credentials ───

func TestCredentialPut(t *testing.T) {
	store := &fakeStore{}
	h := NewCredentialHandler(store)

	rec, _ := serve(t, "PUT /api/credentials", h.Put, http.MethodPut, "/api/credentials",
		`{"actorKind":"staff","tenantId":"ignored","accessToken":"a","refreshToken":"r"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.put, 1)
	assert.Equal(t, "auth.staff", store.put[0].Key())
	assert.NotContains(t, rec.Body.String(), `"a"`)
}

func TestCredentialPutValidation(t *testing.T) {
	cases := map[string]string{
		"unknown kind":       `{"actorKind":"chef","accessToken":"a"}`,
		"customer no tenant": `{"actorKind":"customer","accessToken":"a","refreshToken":"r"}`,
		"missing access":     `{"actorKind":"driver"}`,
		"staff no refresh":   `{"actorKind":"staff","accessToken":"a"}`,
		"unknown field":      `{"actorKind":"driver","accessToken":"a","extra":1}`,
		"not json":           `nope`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{}
			rec, env := serve(t, "PUT /api/credentials", NewCredentialHandler(store).Put, http.MethodPut, "/api/credentials", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.Empty(t, store.put)
		})
	}
}

func TestCredentialClear(t *testing.T) {
	store := &fakeStore{}
	h := NewCredentialHandler(store)

	rec, _ := serve(t, "DELETE /api/credentials/{kind}", h.Clear, http.MethodDelete, "/api/credentials/customer?tenant=r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"auth.customer.r1"}, store.cleared)

	rec, _ = serve(t, "DELETE /api/credentials/{kind}", h.Clear, http.MethodDelete, "/api/credentials/customer", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, "DELETE /api/credentials/{kind}", h.Clear, http.MethodDelete, "/api/credentials/chef", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCredentialList(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	store := &fakeStore{list: []services.CredentialSummary{{ActorKind: models.ActorStaff, ExpiresAt: &exp}}}

	rec, env := serve(t, "GET /api/credentials", NewCredentialHandler(store).List, http.MethodGet, "/api/credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []services.CredentialSummary
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, exp, *got[0].ExpiresAt)
}

// ─── KDS ───

func TestKDSQueueEmptyIsArray(t *testing.T) {
	h := NewKDSHandler(fakeQueue(nil), &fakeEmitter{}, "r1")

	rec, env := serve(t, "GET /api/kds/queue", h.Queue, http.MethodGet, "/api/kds/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestKDSAcknowledgeEmits(t *testing.T) {
	emitter := &fakeEmitter{}
	h := NewKDSHandler(fakeQueue(nil), emitter, "r1")

	rec, _ := serve(t, "POST /api/kds/orders/{id}/acknowledge", h.Acknowledge, http.MethodPost, "/api/kds/orders/o1/acknowledge", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, ws.EventOrderAcknowledge, emitter.events[0].Name)
	assert.JSONEq(t, `{"orderId":"o1","restaurantId":"r1"}`, string(emitter.events[0].Data))
}

func TestKDSAcknowledgeWhileDisconnected(t *testing.T) {
	h := NewKDSHandler(fakeQueue(nil), &fakeEmitter{err: pkg.ErrNotConnected}, "r1")

	rec, env := serve(t, "POST /api/kds/orders/{id}/acknowledge", h.Acknowledge, http.MethodPost, "/api/kds/orders/o1/acknowledge", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)
}

// ─── Deliveries ───

func TestDeliveryTrackAndCurrent(t *testing.T) {
	tracker := &fakeTracker{}
	h := NewDeliveryHandler(tracker, nil)

	rec, _ := serve(t, "GET /api/deliveries/current", h.Current, http.MethodGet, "/api/deliveries/current", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(t, "POST /api/deliveries/{id}/track", h.Track, http.MethodPost, "/api/deliveries/d1/track", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := serve(t, "GET /api/deliveries/current", h.Current, http.MethodGet, "/api/deliveries/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state models.DeliveryTrackState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, "d1", state.DeliveryID)
}

func TestDriverLocation(t *testing.T) {
	pub := &fakePublisher{sent: true}
	h := NewDeliveryHandler(&fakeTracker{}, pub)

	rec, env := serve(t, "POST /api/driver/location", h.PublishLocation, http.MethodPost, "/api/driver/location",
		`{"deliveryId":"d1","lat":41.01,"lng":28.97,"timestamp":1700000000000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sent":true}`, string(env.Data))
	assert.Equal(t, "d1", pub.id)
	assert.InDelta(t, 41.01, pub.last.Lat, 1e-9)

	pub.err = pkg.ErrNotConnected
	rec, _ = serve(t, "POST /api/driver/location", h.PublishLocation, http.MethodPost, "/api/driver/location",
		`{"deliveryId":"d1","lat":1,"lng":1}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDriverLocationDisabled(t *testing.T) {
	h := NewDeliveryHandler(&fakeTracker{}, nil)
	rec, _ := serve(t, "POST /api/driver/location", h.PublishLocation, http.MethodPost, "/api/driver/location", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ─── Notifications & alerts ───

type fakeFeed []models.NotificationEntry

func (f fakeFeed) Snapshot() []models.NotificationEntry { return f }
func (f fakeFeed) Unread() int {
	n := 0
	for _, e := range f {
		if !e.Read {
			n++
		}
	}
	return n
}

type fakeMarker struct {
	ids []string
	err error
}

func (m *fakeMarker) MarkRead(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.ids = append(m.ids, id)
	return nil
}

func TestNotificationList(t *testing.T) {
	feed := fakeFeed{{ID: "n1"}, {ID: "n2", Read: true}}
	h := NewNotificationHandler(feed, &fakeMarker{})

	rec, env := serve(t, "GET /api/notifications", h.List, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp notificationListResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Len(t, resp.Notifications, 2)
	assert.Equal(t, 1, resp.Unread)
}

func TestNotificationMarkRead(t *testing.T) {
	marker := &fakeMarker{}
	h := NewNotificationHandler(fakeFeed{}, marker)

	rec, _ := serve(t, "POST /api/notifications/{id}/read", h.MarkRead, http.MethodPost, "/api/notifications/n1/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n1"}, marker.ids)

	marker.err = pkg.ErrAuth
	rec, _ = serve(t, "POST /api/notifications/{id}/read", h.MarkRead, http.MethodPost, "/api/notifications/n1/read", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeAlerts struct {
	stats models.AlertStats
	ok    bool
}

func (a fakeAlerts) Snapshot() (models.AlertStats, bool) { return a.stats, a.ok }

func TestAlertStats(t *testing.T) {
	rec, _ := serve(t, "GET /api/alerts", NewAlertHandler(fakeAlerts{}).Stats, http.MethodGet, "/api/alerts", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, env := serve(t, "GET /api/alerts", NewAlertHandler(fakeAlerts{stats: models.AlertStats{Critical: 2}, ok: true}).Stats, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.AlertStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 2, stats.Critical)
}

// ─── Orders ───

type fakeOrderTracker struct {
	state   models.OrderTrackState
	tracked bool
}

func (t *fakeOrderTracker) Track(id string) error {
	t.state, t.tracked = models.OrderTrackState{OrderID: id, Status: models.OrderPending}, true
	return nil
}

func (t *fakeOrderTracker) Snapshot() (models.OrderTrackState, bool) { return t.state, t.tracked }

func TestOrderTrackAndCurrent(t *testing.T) {
	h := NewOrderHandler(&fakeOrderTracker{})

	rec, _ := serve(t, "GET /api/orders/current", h.Current, http.MethodGet, "/api/orders/current", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := serve(t, "POST /api/orders/{id}/track", h.Track, http.MethodPost, "/api/orders/o7/track", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state models.OrderTrackState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, "o7", state.OrderID)
}
