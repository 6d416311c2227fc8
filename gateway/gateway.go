// Package gateway, REST backend'e giden tüm çağrıların tek kapısıdır.
//
// Caller'lar (CRUD ekranları, poller'lar) token'a hiç dokunmaz: Request.Auth ile
// hangi aktörün credential'ının kullanılacağını söyler, gateway gerisini yapar:
//
//  1. EnsureFresh: token lead time içinde dolacaksa önce yenilenir
//  2. Authorization: Bearer <token> ile gönderim
//  3. 401 → tek bir reaktif refresh + tekrar deneme
//  4. İkinci 401 → credential temizlenir, pkg.ErrAuth döner
//
// Taşıma hataları pkg.ErrNetwork olarak sarılır; credential'a dokunulmaz.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
	"github.com/HusseinTALL/menuqr-sync/pkg/metrics"
)

// AuthNone, public endpoint'ler için: Authorization header'ı eklenmez, refresh yapılmaz.
const AuthNone models.ActorKind = "none"

// maxResponseBytes, okunacak en büyük yanıt gövdesi.
const maxResponseBytes = 10 << 20

// CredentialReader, gateway'in credential store'dan ihtiyaç duyduğu kısım.
type CredentialReader interface {
	Get(ctx context.Context, kind models.ActorKind, tenantID string) (*models.Credential, bool)
	Clear(ctx context.Context, kind models.ActorKind, tenantID string) error
}

// Refresher, gateway'in refresh coordinator'dan ihtiyaç duyduğu kısım.
type Refresher interface {
	EnsureFresh(ctx context.Context, kind models.ActorKind, tenantID string) error
	ForceRefresh(ctx context.Context, kind models.ActorKind, tenantID, staleAccessToken string) error
}

// Request, tek bir REST çağrısı.
// Auth boş bırakılamaz: public endpoint için AuthNone açıkça verilmelidir.
type Request struct {
	Method   string
	Path     string // BaseURL'e göre, ör: "/notifications"
	Query    url.Values
	Body     any // nil değilse JSON olarak gönderilir
	Auth     models.ActorKind
	TenantID string // customer credential'ı ve X-Tenant-ID header'ı için
}

// Response, okunmuş yanıt.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Gateway, kimlik doğrulamalı REST istemcisi.
type Gateway struct {
	baseURL   string
	client    *http.Client
	store     CredentialReader
	refresher Refresher
	log       logrus.FieldLogger
}

// New, constructor. client nil ise timeout'lu bir http.Client oluşturulur.
func New(baseURL string, client *http.Client, store CredentialReader, refresher Refresher, log logrus.FieldLogger) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Gateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		store:     store,
		refresher: refresher,
		log:       logger.Component(log, "gateway"),
	}
}

// Call, isteği gönderir. 401 dışındaki HTTP status kodları hata değildir;
// Response olarak döner. Dönen hatalar: pkg.ErrAuth, pkg.ErrNetwork, pkg.ErrBadRequest.
func (g *Gateway) Call(ctx context.Context, req Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	if req.Auth == AuthNone {
		return g.send(ctx, req, body, "")
	}
	if !req.Auth.Valid() {
		return nil, fmt.Errorf("%w: auth kind %q", pkg.ErrBadRequest, req.Auth)
	}

	kind, tenant := req.Auth, req.TenantID
	if err := g.refresher.EnsureFresh(ctx, kind, tenant); err != nil {
		return nil, err
	}

	cred, ok := g.store.Get(ctx, kind, tenant)
	if !ok {
		return nil, fmt.Errorf("%w: no %s credential", pkg.ErrAuth, kind)
	}

	resp, err := g.send(ctx, req, body, cred.AccessToken)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// Reaktif yol: tek refresh, tek tekrar.
	log := g.log.WithFields(logrus.Fields{"actor": kind, "path": req.Path})
	log.Debug("received 401, forcing token refresh")

	if err := g.refresher.ForceRefresh(ctx, kind, tenant, cred.AccessToken); err != nil {
		return nil, err
	}
	cred, ok = g.store.Get(ctx, kind, tenant)
	if !ok {
		return nil, fmt.Errorf("%w: no %s credential", pkg.ErrAuth, kind)
	}

	resp, err = g.send(ctx, req, body, cred.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		log.Warn("request still unauthorized after refresh, clearing credential")
		if clearErr := g.store.Clear(ctx, kind, tenant); clearErr != nil {
			log.WithError(clearErr).Error("failed to clear credential")
		}
		return nil, fmt.Errorf("%w: %s %s unauthorized after refresh", pkg.ErrAuth, req.Method, req.Path)
	}
	return resp, nil
}

// CallJSON, Call + yanıt çözme. 2xx yanıtlarda {success,data} zarfı varsa data,
// yoksa gövdenin tamamı out'a çözülür. >=400 yanıtlar *pkg.HTTPError olur.
// out nil ise gövde yok sayılır.
func (g *Gateway) CallJSON(ctx context.Context, req Request, out any) error {
	resp, err := g.Call(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return &pkg.HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	return decodeData(resp.Body, out)
}

func (g *Gateway) send(ctx context.Context, req Request, body []byte, accessToken string) (*Response, error) {
	authLabel := string(req.Auth)

	target := g.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", pkg.ErrBadRequest, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if req.TenantID != "" {
		httpReq.Header.Set("X-Tenant-ID", req.TenantID)
	}

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		metrics.RecordGatewayRequest(authLabel, 0)
		return nil, fmt.Errorf("%w: %s %s: %v", pkg.ErrNetwork, req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordGatewayRequest(authLabel, 0)
		return nil, fmt.Errorf("%w: read response: %v", pkg.ErrNetwork, err)
	}

	metrics.RecordGatewayRequest(authLabel, httpResp.StatusCode)
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

// encodeBody, gövdeyi bir kez serileştirir; tekrar denemede aynı byte'lar gönderilir.
func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode body: %v", pkg.ErrBadRequest, err)
	}
	return data, nil
}

// apiEnvelope, backend'in {success, data, error|message} zarfı.
type apiEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeData(body []byte, out any) error {
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Success != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		body = env.Data
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// IsTerminalAuth, caller'ın login'e yönlendirmesi gerekip gerekmediği.
func IsTerminalAuth(err error) bool {
	return errors.Is(err, pkg.ErrAuth)
}
