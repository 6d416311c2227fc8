package ws

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
)

// fakeCreds, tek aktörlük bellek içi credential kaynağı. kind boşsa her aktöre cevap verir.
type fakeCreds struct {
	mu       sync.Mutex
	kind     models.ActorKind
	token    string
	watchers []chan struct{}
}

func (f *fakeCreds) Get(_ context.Context, kind models.ActorKind, tenantID string) (*models.Credential, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == "" || (f.kind != "" && f.kind != kind) {
		return nil, false
	}
	return &models.Credential{ActorKind: kind, TenantID: tenantID, AccessToken: f.token}, true
}

func (f *fakeCreds) Watch(models.ActorKind, string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.watchers = append(f.watchers, ch)
	f.mu.Unlock()
	return ch, func() {}
}

func (f *fakeCreds) set(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	for _, ch := range f.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// fakeFreshener, coordinator gibi credential yoksa ErrAuth döner.
type fakeFreshener struct {
	creds *fakeCreds
	mu    sync.Mutex
	calls int
}

func (f *fakeFreshener) EnsureFresh(ctx context.Context, kind models.ActorKind, tenantID string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if _, ok := f.creds.Get(ctx, kind, tenantID); !ok {
		return fmt.Errorf("%w: no %s credential", pkg.ErrAuth, kind)
	}
	return nil
}

func (f *fakeFreshener) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTransport struct {
	token  string
	dialer *fakeDialer
	in     chan Event
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	failErr error
	written []Event
}

func (t *fakeTransport) ReadEvent() (Event, error) {
	select {
	case ev := <-t.in:
		return ev, nil
	case <-t.closed:
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.failErr != nil {
			return Event{}, t.failErr
		}
		return Event{}, pkg.ErrNetwork
	}
}

func (t *fakeTransport) WriteEvent(e Event) error {
	select {
	case <-t.closed:
		return pkg.ErrNotConnected
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, e)
	return nil
}

func (t *fakeTransport) Close() error {
	t.once.Do(func() {
		close(t.closed)
		t.dialer.mu.Lock()
		t.dialer.open--
		t.dialer.mu.Unlock()
	})
	return nil
}

// fail, sunucu tarafı kopmayı taklit eder.
func (t *fakeTransport) fail(err error) {
	t.mu.Lock()
	t.failErr = err
	t.mu.Unlock()
	t.once.Do(func() {
		close(t.closed)
		t.dialer.mu.Lock()
		t.dialer.open--
		t.dialer.mu.Unlock()
	})
}

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) writtenNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.written))
	for _, e := range t.written {
		names = append(names, e.Name)
	}
	return names
}

type fakeDialer struct {
	mu         sync.Mutex
	tokens     []string
	transports []*fakeTransport
	open       int
	overlap    bool
	reject     map[string]bool
	failures   int
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{reject: make(map[string]bool)}
}

func (d *fakeDialer) Dial(_ context.Context, token string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.tokens = append(d.tokens, token)
	if d.open > 0 {
		d.overlap = true
	}
	if d.reject[token] {
		return nil, pkg.ErrSocketAuth
	}
	if d.failures > 0 {
		d.failures--
		return nil, pkg.ErrNetwork
	}
	t := &fakeTransport{token: token, dialer: d, in: make(chan Event, 16), closed: make(chan struct{})}
	d.open++
	d.transports = append(d.transports, t)
	return t, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}

func (d *fakeDialer) dialedTokens() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.tokens...)
}

func (d *fakeDialer) transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.transports) {
		return nil
	}
	return d.transports[i]
}

func (d *fakeDialer) setFailures(n int) {
	d.mu.Lock()
	d.failures = n
	d.mu.Unlock()
}

func (d *fakeDialer) hadOverlap() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overlap
}

type statusRecorder struct {
	mu  sync.Mutex
	seq []models.ConnectionStatus
}

func (r *statusRecorder) record(h models.ConnectionHandle) {
	r.mu.Lock()
	r.seq = append(r.seq, h.Status)
	r.mu.Unlock()
}

func (r *statusRecorder) statuses() []models.ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ConnectionStatus(nil), r.seq...)
}

func newTestConnection(t *testing.T, creds *fakeCreds, dialer *fakeDialer, attempts int, delay time.Duration) *Connection {
	t.Helper()
	c := NewConnection(ConnectionConfig{
		Actor:             models.ActorStaff,
		ReconnectAttempts: attempts,
		ReconnectDelay:    delay,
	}, dialer, creds, nil, logger.Discard())
	t.Cleanup(c.Close)
	return c
}

func mustEvent(t *testing.T, name string, payload any) Event {
	t.Helper()
	ev, err := NewEvent(name, payload)
	if err != nil {
		t.Fatal(err)
	}
	return ev
}
