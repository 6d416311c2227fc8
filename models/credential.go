// Package models, senkronizasyon katmanının domain modellerini tanımlar.
//
// Credential'lar, bağlantı durumları, oda abonelikleri ve projeksiyon
// snapshot'ları burada durur. Birden fazla katman (services, gateway, ws,
// projections, handlers) bu tiplere bağımlıdır; models hiçbir proje içi
// pakete bağımlı değildir.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ActorKind, credential sahibi aktör sınıfı.
type ActorKind string

const (
	ActorStaff      ActorKind = "staff"
	ActorSuperAdmin ActorKind = "superAdmin"
	ActorCustomer   ActorKind = "customer"
	ActorDriver     ActorKind = "driver"
)

// AllActorKinds, bilinen tüm aktör sınıfları.
var AllActorKinds = []ActorKind{ActorStaff, ActorSuperAdmin, ActorCustomer, ActorDriver}

// Valid, bilinen bir aktör sınıfı mı?
func (k ActorKind) Valid() bool {
	switch k {
	case ActorStaff, ActorSuperAdmin, ActorCustomer, ActorDriver:
		return true
	}
	return false
}

// HasRefreshFlow, bu aktörün refresh token ile yenileme akışı var mı?
// Sürücü sadece access token taşır; süresi dolunca yeniden giriş gerekir.
func (k ActorKind) HasRefreshFlow() bool {
	return k == ActorStaff || k == ActorSuperAdmin || k == ActorCustomer
}

// TenantScoped, storage key'in tenant içerip içermediği.
// Bir tarayıcı oturumu birden fazla restoranın müşteri credential'ını aynı anda tutabilir.
func (k ActorKind) TenantScoped() bool {
	return k == ActorCustomer
}

const storageKeyPrefix = "auth."

// ErrInvalidStorageKey, ParseStorageKey'in tanımadığı key.
var ErrInvalidStorageKey = errors.New("invalid credential storage key")

// StorageKey, kalıcı katmandaki key'i üretir:
// auth.staff, auth.superAdmin, auth.customer.<tenantId>, auth.driver.
// Tenant sadece customer için anlamlıdır; diğerlerinde yok sayılır.
func StorageKey(kind ActorKind, tenantID string) string {
	if kind.TenantScoped() {
		return storageKeyPrefix + string(kind) + "." + tenantID
	}
	return storageKeyPrefix + string(kind)
}

// ParseStorageKey, StorageKey'in tersi.
func ParseStorageKey(key string) (ActorKind, string, error) {
	rest, ok := strings.CutPrefix(key, storageKeyPrefix)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidStorageKey, key)
	}

	kindPart, tenant, hasTenant := strings.Cut(rest, ".")
	kind := ActorKind(kindPart)
	if !kind.Valid() {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidStorageKey, key)
	}
	if kind.TenantScoped() != hasTenant || (hasTenant && tenant == "") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidStorageKey, key)
	}
	return kind, tenant, nil
}

// Credential, bir aktör sınıfının canlı token çifti.
// (ActorKind, TenantID) başına en fazla bir Credential vardır; Put eskisini atomik olarak değiştirir.
type Credential struct {
	ActorKind    ActorKind `json:"actorKind"`
	TenantID     string    `json:"tenantId,omitempty"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
}

// Key, credential'ın storage key'i.
func (c *Credential) Key() string {
	return StorageKey(c.ActorKind, c.TenantID)
}

// ExpiresAt, access token'daki exp claim. Çözülemeyen token için zero time ve hata döner.
func (c *Credential) ExpiresAt() (time.Time, error) {
	return DecodeExpiry(c.AccessToken)
}

// Payload, kalıcı katmana yazılacak JSON gövdesi.
func (c *Credential) Payload() CredentialPayload {
	return CredentialPayload{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken}
}

// CredentialPayload, saklanan JSON: {accessToken, refreshToken}.
// Sürücü için refreshToken boştur ve yazılmaz.
type CredentialPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// TokenClaims, access token payload'ından okunan alanlar.
// İmza doğrulanmaz; sadece exp ve kimlik bilgisi için okunur, yetki kararı backend'indir.
type TokenClaims struct {
	UserID       string `json:"userId,omitempty"`
	RestaurantID string `json:"restaurantId,omitempty"`
	Role         string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ErrUndecodableToken, JWT parse edilemedi veya exp yok.
var ErrUndecodableToken = errors.New("undecodable access token")

// DecodeExpiry, access token'ın exp claim'ini imza doğrulamadan çözer.
// Çözülemeyen token veya exp'siz token hata döner; caller bunu "süresi dolmuş" sayar.
func DecodeExpiry(accessToken string) (time.Time, error) {
	claims, err := DecodeClaims(accessToken)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp", ErrUndecodableToken)
	}
	return claims.ExpiresAt.Time, nil
}

// DecodeClaims, token'ı imza doğrulamadan TokenClaims'e çözer.
func DecodeClaims(accessToken string) (*TokenClaims, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: empty", ErrUndecodableToken)
	}
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableToken, err)
	}
	return claims, nil
}

// NeedsRefresh, token'ın now+lead anında veya öncesinde süresinin dolup dolmadığı.
// Çözülemeyen token her zaman yenileme gerektirir.
func NeedsRefresh(accessToken string, now time.Time, lead time.Duration) bool {
	exp, err := DecodeExpiry(accessToken)
	if err != nil {
		return true
	}
	return !now.Add(lead).Before(exp)
}
