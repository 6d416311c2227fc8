package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
	"github.com/HusseinTALL/menuqr-sync/pkg/metrics"
)

// DefaultRefreshLeadTime, exp'ten bu kadar önce proaktif yenileme yapılır.
const DefaultRefreshLeadTime = 5 * time.Minute

// refreshTimeout, paylaşılan refresh çağrısının üst sınırı. Çağrı tek bir
// caller'ın context'ine bağlı değildir; o caller vazgeçse de diğerleri sonucu bekler.
const refreshTimeout = 30 * time.Second

// RefreshClient, refresh endpoint'ine giden ağ çağrısı.
//
// Dönen hata sınıflandırılmış olmalıdır:
//   - pkg.ErrAuth: sunucu refresh token'ı reddetti (credential temizlenir)
//   - diğer her şey: geçici ağ hatası (credential korunur)
//
// Sunucu yeni refresh token dönmezse payload.RefreshToken boş bırakılır; eskisi korunur.
type RefreshClient interface {
	Refresh(ctx context.Context, kind models.ActorKind, tenantID, refreshToken string) (*models.CredentialPayload, error)
}

// TokenRefreshCoordinator, aktör sınıfı başına en fazla bir refresh çağrısının
// uçuşta olmasını garanti eder. Aynı anda yenileme isteyen caller'lar aynı
// sonucu bekler; backend'in hâlâ kullanılan bir refresh token'ı iptal etmesi engellenir.
//
// Sadece iki terminal hata üst katmana çıkar: pkg.ErrAuth ve pkg.ErrNetwork.
type TokenRefreshCoordinator interface {
	// EnsureFresh, her istekten önce çağrılır. Token lead time içinde dolacaksa yeniler.
	EnsureFresh(ctx context.Context, kind models.ActorKind, tenantID string) error
	// ForceRefresh, 401 gözlendiğinde çağrılır. staleAccessToken, 401 alan token'dır;
	// store'daki token zaten değişmişse ağ çağrısı yapılmaz.
	ForceRefresh(ctx context.Context, kind models.ActorKind, tenantID, staleAccessToken string) error
}

type tokenRefreshCoordinator struct {
	store  CredentialStore
	client RefreshClient
	lead   time.Duration
	now    func() time.Time
	log    logrus.FieldLogger

	// flights, storage key başına tek uçuş slotu.
	flights singleflight.Group
}

// NewTokenRefreshCoordinator, constructor. lead <= 0 ise DefaultRefreshLeadTime kullanılır.
func NewTokenRefreshCoordinator(store CredentialStore, client RefreshClient, lead time.Duration, log logrus.FieldLogger) TokenRefreshCoordinator {
	if lead <= 0 {
		lead = DefaultRefreshLeadTime
	}
	return &tokenRefreshCoordinator{
		store:  store,
		client: client,
		lead:   lead,
		now:    time.Now,
		log:    logger.Component(log, "refresh"),
	}
}

func (c *tokenRefreshCoordinator) EnsureFresh(ctx context.Context, kind models.ActorKind, tenantID string) error {
	cred, ok := c.store.Get(ctx, kind, tenantID)
	if !ok {
		return fmt.Errorf("%w: no %s credential", pkg.ErrAuth, kind)
	}
	lead := c.lead
	if !kind.HasRefreshFlow() {
		// Refresh akışı yok: token ancak gerçekten süresi dolunca temizlenir.
		lead = 0
	}
	if !models.NeedsRefresh(cred.AccessToken, c.now(), lead) {
		return nil
	}
	return c.refresh(ctx, kind, tenantID, cred.AccessToken)
}

func (c *tokenRefreshCoordinator) ForceRefresh(ctx context.Context, kind models.ActorKind, tenantID, staleAccessToken string) error {
	cred, ok := c.store.Get(ctx, kind, tenantID)
	if !ok {
		return fmt.Errorf("%w: no %s credential", pkg.ErrAuth, kind)
	}
	if staleAccessToken != "" && cred.AccessToken != staleAccessToken {
		// Başka bir caller bu arada yeniledi.
		return nil
	}
	return c.refresh(ctx, kind, tenantID, cred.AccessToken)
}

// refresh, uçuştaki çağrıya katılır veya yenisini başlatır.
// Caller'ın ctx'i sadece kendi beklemesini iptal eder, paylaşılan çağrıyı değil.
func (c *tokenRefreshCoordinator) refresh(ctx context.Context, kind models.ActorKind, tenantID, staleAccessToken string) error {
	key := models.StorageKey(kind, tenantID)

	ch := c.flights.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return nil, c.doRefresh(flightCtx, kind, tenantID, staleAccessToken)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", pkg.ErrNetwork, ctx.Err())
	}
}

func (c *tokenRefreshCoordinator) doRefresh(ctx context.Context, kind models.ActorKind, tenantID, staleAccessToken string) error {
	log := c.log.WithField("actor", kind)
	if tenantID != "" {
		log = log.WithField("tenant", tenantID)
	}

	cred, ok := c.store.Get(ctx, kind, tenantID)
	if !ok {
		return fmt.Errorf("%w: no %s credential", pkg.ErrAuth, kind)
	}
	// Önceki bir uçuş az önce bitirmiş olabilir.
	if cred.AccessToken != staleAccessToken && !models.NeedsRefresh(cred.AccessToken, c.now(), c.lead) {
		return nil
	}

	if !kind.HasRefreshFlow() || cred.RefreshToken == "" {
		log.Info("access token expired and no refresh flow available, clearing credential")
		c.clear(ctx, kind, tenantID, log)
		return fmt.Errorf("%w: %s credential expired", pkg.ErrAuth, kind)
	}

	payload, err := c.client.Refresh(ctx, kind, tenantID, cred.RefreshToken)
	if err != nil {
		if errors.Is(err, pkg.ErrAuth) {
			metrics.RecordTokenRefresh(string(kind), "rejected")
			log.WithError(err).Warn("refresh token rejected, clearing credential")
			c.clear(ctx, kind, tenantID, log)
			return fmt.Errorf("%w: refresh rejected", pkg.ErrAuth)
		}
		metrics.RecordTokenRefresh(string(kind), "network")
		log.WithError(err).Warn("token refresh failed")
		return fmt.Errorf("%w: token refresh: %v", pkg.ErrNetwork, err)
	}
	if payload == nil || payload.AccessToken == "" {
		metrics.RecordTokenRefresh(string(kind), "network")
		return fmt.Errorf("%w: refresh response without access token", pkg.ErrNetwork)
	}

	// Çağrı sürerken logout veya yeni login olduysa sonucu yazma.
	current, ok := c.store.Get(ctx, kind, tenantID)
	if !ok {
		return fmt.Errorf("%w: credential cleared during refresh", pkg.ErrAuth)
	}
	if current.RefreshToken != cred.RefreshToken {
		log.Debug("credential replaced during refresh, discarding result")
		return nil
	}

	next := &models.Credential{
		ActorKind:    kind,
		TenantID:     cred.TenantID,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}
	if err := c.store.Put(ctx, next); err != nil {
		metrics.RecordTokenRefresh(string(kind), "network")
		return fmt.Errorf("%w: failed to store refreshed credential: %v", pkg.ErrNetwork, err)
	}

	metrics.RecordTokenRefresh(string(kind), "ok")
	log.Info("access token refreshed")
	return nil
}

func (c *tokenRefreshCoordinator) clear(ctx context.Context, kind models.ActorKind, tenantID string, log logrus.FieldLogger) {
	if err := c.store.Clear(ctx, kind, tenantID); err != nil {
		log.WithError(err).Error("failed to clear credential")
	}
}
