// Package services, senkronizasyon katmanının iş kurallarını barındırır:
// credential saklama, token yenileme koordinasyonu ve periyodik çekimler.
//
// Service'ler ASLA http.Request/Response bilmez; kalıcılık için repository
// interface'lerini, ağ için gateway'i kullanır.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
	"github.com/HusseinTALL/menuqr-sync/repository"
)

// CredentialStore, aktör sınıfı başına kalıcı token çiftleri.
//
// Coordinator ve realtime bağlantı credential'ı önbelleğe almaz; her ihtiyaçta
// Get ile okur. Değişiklikten haberdar olmak isteyen Watch ile sinyal alır
// ve sinyalde tekrar okur.
type CredentialStore interface {
	// Get, credential'ı döner. Yok, okunamıyor veya bozuksa (nil, false).
	Get(ctx context.Context, kind models.ActorKind, tenantID string) (*models.Credential, bool)
	// Put, (kind, tenant) için credential'ı atomik olarak değiştirir.
	Put(ctx context.Context, cred *models.Credential) error
	// Clear, credential'ı siler. Olmayan credential için no-op.
	Clear(ctx context.Context, kind models.ActorKind, tenantID string) error
	// List, saklanan tüm credential'ların okunabilir özetleri (token'sız).
	List(ctx context.Context) ([]CredentialSummary, error)
	// Watch, bu key için değişiklik sinyali. Sinyaller birleşir (kapasite 1);
	// alıcı sinyal başına değil, sinyalden sonra güncel duruma bakmalıdır.
	Watch(kind models.ActorKind, tenantID string) (<-chan struct{}, func())
	// Run, backend başka process'lerin değişikliklerini bildiriyorsa onları dinler.
	// ctx bitene kadar bloklar.
	Run(ctx context.Context) error
}

// CredentialSummary, yerel API'de gösterilen özet. Token içermez.
type CredentialSummary struct {
	ActorKind models.ActorKind `json:"actorKind"`
	TenantID  string           `json:"tenantId,omitempty"`
	ExpiresAt *int64           `json:"expiresAt,omitempty"` // unix saniye; çözülemezse yok
	Malformed bool             `json:"malformed,omitempty"`
}

type credentialStore struct {
	repo repository.CredentialRepository
	log  logrus.FieldLogger

	mu       sync.Mutex
	watchers map[string]map[int]chan struct{}
	nextID   int
}

// NewCredentialStore, constructor.
func NewCredentialStore(repo repository.CredentialRepository, log logrus.FieldLogger) CredentialStore {
	return &credentialStore{
		repo:     repo,
		log:      logger.Component(log, "credentials"),
		watchers: make(map[string]map[int]chan struct{}),
	}
}

func (s *credentialStore) Get(ctx context.Context, kind models.ActorKind, tenantID string) (*models.Credential, bool) {
	if !kind.Valid() {
		return nil, false
	}
	key := models.StorageKey(kind, tenantID)

	raw, err := s.repo.Get(ctx, key)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("credential unreadable, treating as absent")
		return nil, false
	}

	payload, err := decodePayload(raw)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("malformed credential payload, treating as absent")
		return nil, false
	}

	return &models.Credential{
		ActorKind:    kind,
		TenantID:     tenantForKey(kind, tenantID),
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}, true
}

func (s *credentialStore) Put(ctx context.Context, cred *models.Credential) error {
	if cred == nil || !cred.ActorKind.Valid() {
		return fmt.Errorf("%w: unknown actor kind", pkg.ErrBadRequest)
	}
	if cred.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", pkg.ErrBadRequest)
	}
	if cred.ActorKind.TenantScoped() && cred.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required for %s", pkg.ErrBadRequest, cred.ActorKind)
	}

	payload := cred.Payload()
	if !cred.ActorKind.HasRefreshFlow() {
		payload.RefreshToken = ""
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	key := cred.Key()
	if err := s.repo.Put(ctx, key, raw); err != nil {
		return err
	}

	s.log.WithField("key", key).Debug("credential stored")
	s.notify(key)
	return nil
}

func (s *credentialStore) Clear(ctx context.Context, kind models.ActorKind, tenantID string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown actor kind", pkg.ErrBadRequest)
	}
	key := models.StorageKey(kind, tenantID)
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}

	s.log.WithField("key", key).Info("credential cleared")
	s.notify(key)
	return nil
}

func (s *credentialStore) List(ctx context.Context) ([]CredentialSummary, error) {
	keys, err := s.repo.Keys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	out := make([]CredentialSummary, 0, len(keys))
	for _, key := range keys {
		kind, tenant, err := models.ParseStorageKey(key)
		if err != nil {
			continue
		}
		summary := CredentialSummary{ActorKind: kind, TenantID: tenant}

		cred, ok := s.Get(ctx, kind, tenant)
		if !ok {
			summary.Malformed = true
		} else if exp, err := cred.ExpiresAt(); err == nil {
			unix := exp.Unix()
			summary.ExpiresAt = &unix
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *credentialStore) Watch(kind models.ActorKind, tenantID string) (<-chan struct{}, func()) {
	key := models.StorageKey(kind, tenantID)
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[int]chan struct{})
	}
	s.watchers[key][id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers[key], id)
			if len(s.watchers[key]) == 0 {
				delete(s.watchers, key)
			}
		})
	}
	return ch, cancel
}

func (s *credentialStore) Run(ctx context.Context) error {
	notifier, ok := s.repo.(repository.ChangeNotifier)
	if !ok {
		<-ctx.Done()
		return nil
	}

	changes, err := notifier.SubscribeChanges(ctx)
	if err != nil {
		return err
	}
	s.log.Info("listening for credential changes from other devices")

	for key := range changes {
		s.notify(key)
	}
	return nil
}

// notify, key'in tüm watcher'larına bloklamadan sinyal gönderir.
// Buffer doluysa zaten bekleyen bir sinyal vardır; ikincisi gereksizdir.
func (s *credentialStore) notify(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func decodePayload(raw []byte) (*models.CredentialPayload, error) {
	var p models.CredentialPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrMalformedCredential, err)
	}
	if p.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing accessToken", pkg.ErrMalformedCredential)
	}
	return &p, nil
}

func tenantForKey(kind models.ActorKind, tenantID string) string {
	if kind.TenantScoped() {
		return tenantID
	}
	return ""
}
