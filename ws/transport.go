package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir event'i yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// maxMessageSize: Sunucudan kabul edilen en büyük event (byte).
	maxMessageSize = 64 << 10

	// Sunucunun kimlik doğrulama reddi için kullandığı close kodları.
	closeUnauthorized = 4401
	closeForbidden    = 4403
)

// Transport, tek bir soket bağlantısı.
// ReadEvent tek bir goroutine'den çağrılır; WriteEvent eşzamanlı çağrılabilir.
type Transport interface {
	ReadEvent() (Event, error)
	WriteEvent(e Event) error
	Close() error
}

// Dialer, verilen access token ile yeni bir Transport açar.
// Kimlik doğrulama reddi pkg.ErrSocketAuth ile sarılı dönmelidir.
type Dialer interface {
	Dial(ctx context.Context, accessToken string) (Transport, error)
}

// WebSocketDialer, gorilla/websocket tabanlı Dialer.
//
// Token iki yerde gönderilir: "token" query parametresi (tarayıcı uyumlu sunucular için)
// ve Authorization header'ı. Upgrade'in başarılı olması handshake onayı sayılır.
type WebSocketDialer struct {
	URL               string
	HandshakeTimeout  time.Duration
	HeartbeatInterval time.Duration
	Log               logrus.FieldLogger
}

// Dial, soketi açar ve heartbeat döngüsünü başlatır.
func (d *WebSocketDialer) Dial(ctx context.Context, accessToken string) (Transport, error) {
	target, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse realtime url: %w", err)
	}
	q := target.Query()
	q.Set("token", accessToken)
	target.RawQuery = q.Encode()

	handshake := d.HandshakeTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshake,
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)

	conn, resp, err := dialer.DialContext(ctx, target.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: handshake rejected (%d)", pkg.ErrSocketAuth, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: dial realtime: %v", pkg.ErrNetwork, err)
	}

	t := newWSTransport(conn, d.HeartbeatInterval, logger.Component(d.Log, "ws.transport"))
	go t.heartbeatLoop()
	return t, nil
}

// wsTransport, gorilla bağlantısının Transport sarmalayıcısı.
//
// gorilla/websocket aynı anda tek okuyucu ve tek yazıcı destekler:
// okuma Connection'ın okuma döngüsünden, yazmalar ise mu altında yapılır.
type wsTransport struct {
	conn      *websocket.Conn
	heartbeat time.Duration
	log       logrus.FieldLogger

	mu        sync.Mutex // conn.Write* çağrılarını korur
	done      chan struct{}
	closeOnce sync.Once
}

func newWSTransport(conn *websocket.Conn, heartbeat time.Duration, log logrus.FieldLogger) *wsTransport {
	t := &wsTransport{
		conn:      conn,
		heartbeat: heartbeat,
		log:       log,
		done:      make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	if heartbeat > 0 {
		// 3 heartbeat boyunca hiçbir şey okunmazsa bağlantı kopmuş sayılır.
		pongWait := 3 * heartbeat
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}
	return t
}

// ReadEvent, bir sonraki geçerli event'i döner. Çözülemeyen frame'ler atlanır.
func (t *wsTransport) ReadEvent() (Event, error) {
	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && (closeErr.Code == closeUnauthorized || closeErr.Code == closeForbidden) {
				return Event{}, fmt.Errorf("%w: closed by server (%d %s)", pkg.ErrSocketAuth, closeErr.Code, closeErr.Text)
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.log.WithError(err).Debug("unexpected close")
			}
			return Event{}, fmt.Errorf("%w: %v", pkg.ErrNetwork, err)
		}

		if t.heartbeat > 0 {
			_ = t.conn.SetReadDeadline(time.Now().Add(3 * t.heartbeat))
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Name == "" {
			t.log.WithField("bytes", len(raw)).Warn("dropping malformed frame")
			continue
		}
		return ev, nil
	}
}

// WriteEvent, event'i JSON text frame olarak yazar.
func (t *wsTransport) WriteEvent(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.Name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.done:
		return pkg.ErrNotConnected
	default:
	}

	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrNetwork, err)
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", pkg.ErrNetwork, e.Name, err)
	}
	return nil
}

// Close, close frame gönderip bağlantıyı kapatır. Birden fazla çağrılabilir.
func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		close(t.done)
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		t.mu.Unlock()
		err = t.conn.Close()
	})
	return err
}

// heartbeatLoop, ping control frame'leri gönderir. Yazma hatası bağlantıyı kapatır;
// okuma döngüsü hatayı görüp kopmayı raporlar.
func (t *wsTransport) heartbeatLoop() {
	if t.heartbeat <= 0 {
		return
	}
	ticker := time.NewTicker(t.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.mu.Lock()
			err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			t.mu.Unlock()
			if err != nil {
				t.log.WithError(err).Debug("heartbeat failed, closing transport")
				_ = t.conn.Close()
				return
			}
		}
	}
}
