package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
	"github.com/HusseinTALL/menuqr-sync/pkg/metrics"
)

// CredentialSource, bağlantının credential store'dan ihtiyaç duyduğu kısım.
type CredentialSource interface {
	Get(ctx context.Context, kind models.ActorKind, tenantID string) (*models.Credential, bool)
	Watch(kind models.ActorKind, tenantID string) (<-chan struct{}, func())
}

// TokenFreshener, dial öncesi token tazeleme. nil olabilir.
type TokenFreshener interface {
	EnsureFresh(ctx context.Context, kind models.ActorKind, tenantID string) error
}

// ConnectionConfig, bağlantı ayarları.
type ConnectionConfig struct {
	Actor             models.ActorKind
	TenantID          string // yalnızca customer bağlantıları için
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

type handlerEntry[T any] struct {
	id int
	fn T
}

// Connection, bir aktör sınıfının tek realtime bağlantısı.
//
// Aynı anda en fazla bir Transport açıktır. Yaşam döngüsü işlemleri (connect,
// disconnect, reconnect, retry timer'ı, credential değişimi) lifecycle mutex'i
// altında sıralanır; gen sayacı, eskimiş okuma döngülerinin ve timer'ların
// etkisiz kalmasını sağlar.
//
// Callback'ler (OnStatus, OnReset) lifecycle kilidi altında senkron çağrılır:
// içlerinden Connect/Disconnect/Reconnect çağrılmamalıdır. Emit güvenlidir.
type Connection struct {
	cfg    ConnectionConfig
	dialer Dialer
	creds  CredentialSource
	fresh  TokenFreshener
	log    logrus.FieldLogger

	lifecycle sync.Mutex
	baseCtx   context.Context
	closed    bool
	attempts  int
	retry     *time.Timer
	token     string // son dial'da kullanılan access token

	mu        sync.Mutex
	gen       uint64
	status    models.ConnectionStatus
	lastErr   string
	transport Transport

	handlersMu     sync.RWMutex
	nextHandlerID  int
	eventHandlers  []handlerEntry[func(Event)]
	statusHandlers []handlerEntry[func(models.ConnectionHandle)]
	resetHandlers  []handlerEntry[func()]
}

// NewConnection, constructor. fresh nil olabilir.
func NewConnection(cfg ConnectionConfig, dialer Dialer, creds CredentialSource, fresh TokenFreshener, log logrus.FieldLogger) *Connection {
	if cfg.ReconnectAttempts < 0 {
		cfg.ReconnectAttempts = 0
	}
	c := &Connection{
		cfg:     cfg,
		dialer:  dialer,
		creds:   creds,
		fresh:   fresh,
		log:     logger.Component(log, "ws").WithField("actor", cfg.Actor),
		baseCtx: context.Background(),
		status:  models.StatusDisconnected,
	}
	metrics.SetConnectionStatus(string(cfg.Actor), string(models.StatusDisconnected))
	return c
}

// Start, credential'ı izlemeye başlar ve varsa hemen bağlanır.
// ctx bittiğinde bağlantı kapatılır.
func (c *Connection) Start(ctx context.Context) {
	c.lifecycle.Lock()
	c.baseCtx = ctx
	c.lifecycle.Unlock()

	changes, stop := c.creds.Watch(c.cfg.Actor, c.cfg.TenantID)
	if err := c.Connect(ctx); err != nil {
		c.log.WithError(err).Warn("initial connect failed")
	}

	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				c.Close()
				return
			case <-changes:
				c.onCredentialChange(ctx)
			}
		}
	}()
}

// Connect, bağlantı yoksa kurar. Zaten bağlı veya bağlanıyorsa no-op.
// Credential yoksa no-op (status disconnected kalır).
func (c *Connection) Connect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed {
		return pkg.ErrNotConnected
	}
	switch c.Status() {
	case models.StatusConnected, models.StatusConnecting:
		return nil
	}
	c.attempts = 0
	return c.dialLocked(ctx)
}

// Disconnect, bağlantıyı kapatır, bekleyen yeniden denemeyi iptal eder ve
// oda durumunu sıfırlar.
func (c *Connection) Disconnect() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.teardownLocked()
	c.fireReset()
	c.setStatus(models.StatusDisconnected, nil)
}

// Reconnect, mevcut transport'u tamamen kapatıp yeni credential ile tekrar bağlanır.
// Yeni transport eskisi kapanmadan açılmaz.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed {
		return pkg.ErrNotConnected
	}
	c.teardownLocked()
	c.fireReset()
	c.setStatus(models.StatusConnecting, nil)
	return c.dialLocked(ctx)
}

// Close, bağlantıyı kalıcı olarak kapatır. Sonraki Connect çağrıları hata döner.
func (c *Connection) Close() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.teardownLocked()
	c.fireReset()
	c.setStatus(models.StatusDisconnected, nil)
}

// Status, mevcut durum.
func (c *Connection) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Handle, okunabilir görüntü.
func (c *Connection) Handle() models.ConnectionHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.ConnectionHandle{ActorKind: c.cfg.Actor, Status: c.status, LastError: c.lastErr}
}

// Actor, bağlantının aktör sınıfı.
func (c *Connection) Actor() models.ActorKind { return c.cfg.Actor }

// Emit, event'i mevcut transport üzerinden gönderir. Bağlı değilse pkg.ErrNotConnected.
func (c *Connection) Emit(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	t, status := c.transport, c.status
	c.mu.Unlock()

	if t == nil || status != models.StatusConnected {
		return pkg.ErrNotConnected
	}
	return t.WriteEvent(e)
}

// OnEvent, gelen her event için handler kaydeder. Event'ler transport sırasıyla,
// tek goroutine'den teslim edilir.
func (c *Connection) OnEvent(fn func(Event)) (unsubscribe func()) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	id := c.nextID()
	c.eventHandlers = append(c.eventHandlers, handlerEntry[func(Event)]{id: id, fn: fn})
	return c.removeOnce(func() {
		c.eventHandlers = removeEntry(c.eventHandlers, id)
	})
}

// OnStatus, durum değişikliklerinde çağrılır.
func (c *Connection) OnStatus(fn func(models.ConnectionHandle)) (unsubscribe func()) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	id := c.nextID()
	c.statusHandlers = append(c.statusHandlers, handlerEntry[func(models.ConnectionHandle)]{id: id, fn: fn})
	return c.removeOnce(func() {
		c.statusHandlers = removeEntry(c.statusHandlers, id)
	})
}

// OnReset, transport bilinçli olarak kapatıldığında (logout, credential değişimi)
// çağrılır. Kopma sonrası otomatik yeniden bağlanmada çağrılmaz.
func (c *Connection) OnReset(fn func()) (unsubscribe func()) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	id := c.nextID()
	c.resetHandlers = append(c.resetHandlers, handlerEntry[func()]{id: id, fn: fn})
	return c.removeOnce(func() {
		c.resetHandlers = removeEntry(c.resetHandlers, id)
	})
}

// ────────────────────────────────────────────
// Yaşam döngüsü (lifecycle kilidi altında)
// ────────────────────────────────────────────

// dialLocked, güncel credential ile yeni transport açar.
func (c *Connection) dialLocked(ctx context.Context) error {
	actor, tenant := c.cfg.Actor, c.cfg.TenantID

	// Credential yoksa bağlanacak bir şey de yok; hata değil.
	if _, ok := c.creds.Get(ctx, actor, tenant); !ok {
		c.token = ""
		c.setStatus(models.StatusDisconnected, nil)
		return nil
	}

	if c.fresh != nil && actor.HasRefreshFlow() {
		if err := c.fresh.EnsureFresh(ctx, actor, tenant); err != nil {
			if errors.Is(err, pkg.ErrAuth) {
				c.token = ""
				c.setStatus(models.StatusDisconnected, err)
				return err
			}
			// Ağ hatası: mevcut token ile denemeye devam.
			c.log.WithError(err).Warn("token refresh before connect failed")
		}
	}

	// Refresh token'ı döndürmüş olabilir; güncel olanı oku.
	cred, ok := c.creds.Get(ctx, actor, tenant)
	if !ok {
		c.token = ""
		c.setStatus(models.StatusDisconnected, nil)
		return nil
	}
	c.token = cred.AccessToken

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	c.setStatus(models.StatusConnecting, nil)

	t, err := c.dialer.Dial(ctx, cred.AccessToken)
	if err != nil {
		if errors.Is(err, pkg.ErrSocketAuth) {
			c.log.WithError(err).Warn("realtime handshake rejected")
			c.setStatus(models.StatusAuthError, err)
			return err
		}
		if ctx.Err() != nil {
			c.setStatus(models.StatusDisconnected, err)
			return err
		}
		c.log.WithError(err).Warn("realtime dial failed")
		c.scheduleRetryLocked(err)
		return err
	}

	c.mu.Lock()
	c.transport = t
	c.mu.Unlock()
	c.attempts = 0

	go c.readLoop(t, gen)
	c.log.Info("realtime connected")
	c.setStatus(models.StatusConnected, nil)
	return nil
}

// scheduleRetryLocked, deneme hakkı varsa sabit gecikmeli bir yeniden deneme kurar.
func (c *Connection) scheduleRetryLocked(cause error) {
	if c.attempts >= c.cfg.ReconnectAttempts {
		c.log.WithField("attempts", c.attempts).Warn("reconnect attempts exhausted")
		c.setStatus(models.StatusDisconnected, cause)
		return
	}
	c.attempts++
	metrics.RecordReconnectAttempt(string(c.cfg.Actor))

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.setStatus(models.StatusConnecting, cause)
	c.retry = time.AfterFunc(c.cfg.ReconnectDelay, func() { c.retryDial(gen) })
}

func (c *Connection) retryDial(gen uint64) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	stale := c.gen != gen
	c.mu.Unlock()
	if stale || c.closed {
		return
	}
	c.retry = nil
	c.log.WithField("attempt", c.attempts).Debug("reconnecting")
	_ = c.dialLocked(c.baseCtx)
}

// teardownLocked, transport'u kapatır ve bekleyen timer'ı iptal eder.
// gen artırıldığı için eski okuma döngüsü ve timer callback'i etkisiz kalır.
func (c *Connection) teardownLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}

	c.mu.Lock()
	c.gen++
	t := c.transport
	c.transport = nil
	c.mu.Unlock()

	if t != nil {
		if err := t.Close(); err != nil {
			c.log.WithError(err).Debug("transport close")
		}
	}
	c.attempts = 0
	c.token = ""
}

// onCredentialChange, store sinyalinde credential'ı yeniden okuyup bağlantıyı uyumlar.
func (c *Connection) onCredentialChange(ctx context.Context) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed {
		return
	}
	cred, ok := c.creds.Get(ctx, c.cfg.Actor, c.cfg.TenantID)
	status := c.Status()

	switch {
	case !ok:
		if status == models.StatusDisconnected && c.token == "" {
			return
		}
		c.log.Info("credential cleared, disconnecting")
		c.teardownLocked()
		c.fireReset()
		c.setStatus(models.StatusDisconnected, nil)

	case status == models.StatusDisconnected || status == models.StatusAuthError:
		c.attempts = 0
		_ = c.dialLocked(ctx)

	case cred.AccessToken != c.token:
		c.log.Info("credential rotated, re-establishing connection")
		c.teardownLocked()
		c.fireReset()
		c.setStatus(models.StatusConnecting, nil)
		_ = c.dialLocked(ctx)
	}
}

// ────────────────────────────────────────────
// Okuma döngüsü
// ────────────────────────────────────────────

func (c *Connection) readLoop(t Transport, gen uint64) {
	var lastSeq int64
	for {
		ev, err := t.ReadEvent()
		if err != nil {
			c.handleDrop(gen, err)
			return
		}

		c.mu.Lock()
		current := c.gen == gen
		c.mu.Unlock()
		if !current {
			return
		}

		if ev.Seq > 0 {
			if lastSeq > 0 && ev.Seq > lastSeq+1 {
				c.log.WithFields(logrus.Fields{"from": lastSeq, "to": ev.Seq}).Warn("event sequence gap")
			}
			lastSeq = ev.Seq
		}
		metrics.RecordEvent(ev.Name)
		c.dispatch(ev)
	}
}

func (c *Connection) handleDrop(gen uint64, cause error) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.gen != gen || c.closed {
		c.mu.Unlock()
		return
	}
	t := c.transport
	c.transport = nil
	c.gen++
	c.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}

	if errors.Is(cause, pkg.ErrSocketAuth) {
		c.log.WithError(cause).Warn("realtime auth rejected by server")
		c.setStatus(models.StatusAuthError, cause)
		return
	}
	c.log.WithError(cause).Warn("realtime transport dropped")
	c.scheduleRetryLocked(cause)
}

// ────────────────────────────────────────────
// Callback yardımcıları
// ────────────────────────────────────────────

func (c *Connection) setStatus(s models.ConnectionStatus, cause error) {
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}

	c.mu.Lock()
	changed := c.status != s || c.lastErr != errText
	c.status = s
	c.lastErr = errText
	handle := models.ConnectionHandle{ActorKind: c.cfg.Actor, Status: s, LastError: errText}
	c.mu.Unlock()

	if !changed {
		return
	}
	metrics.SetConnectionStatus(string(c.cfg.Actor), string(s))

	c.handlersMu.RLock()
	handlers := append([]handlerEntry[func(models.ConnectionHandle)](nil), c.statusHandlers...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		c.safeCall("status", func() { h.fn(handle) })
	}
}

func (c *Connection) fireReset() {
	c.handlersMu.RLock()
	handlers := append([]handlerEntry[func()](nil), c.resetHandlers...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		c.safeCall("reset", h.fn)
	}
}

func (c *Connection) dispatch(ev Event) {
	c.handlersMu.RLock()
	handlers := append([]handlerEntry[func(Event)](nil), c.eventHandlers...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		c.safeCall(ev.Name, func() { h.fn(ev) })
	}
}

// safeCall, tek bir handler'ın panic'i diğerlerini ve okuma döngüsünü durdurmasın.
func (c *Connection) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("handler", what).Error(fmt.Sprintf("handler panic: %v", r))
		}
	}()
	fn()
}

func (c *Connection) nextID() int {
	c.nextHandlerID++
	return c.nextHandlerID
}

func (c *Connection) removeOnce(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.handlersMu.Lock()
			defer c.handlersMu.Unlock()
			remove()
		})
	}
}

func removeEntry[T any](entries []handlerEntry[T], id int) []handlerEntry[T] {
	out := make([]handlerEntry[T], 0, len(entries))
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}
