package repository

import (
	"context"
	"fmt"

	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/crypto"
)

// encryptedCredentialRepo, başka bir CredentialRepository'yi AES-256-GCM ile saran decorator.
// Çözülemeyen payload (yanlış anahtar, bozuk veri, şifresiz eski kayıt)
// pkg.ErrMalformedCredential döner; store bunu "credential yok" olarak ele alır.
type encryptedCredentialRepo struct {
	inner CredentialRepository
	key   []byte
}

// NewEncryptedCredentialRepo, inner'ı şifreleme katmanıyla sarar.
// key 32 byte olmalıdır (crypto.DeriveKeyFromSecret çıktısı).
//
// inner ChangeNotifier ise dönen değer de ChangeNotifier'dır.
func NewEncryptedCredentialRepo(inner CredentialRepository, key []byte) (CredentialRepository, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	base := &encryptedCredentialRepo{inner: inner, key: key}
	if n, ok := inner.(ChangeNotifier); ok {
		return &encryptedNotifyingRepo{encryptedCredentialRepo: base, notifier: n}, nil
	}
	return base, nil
}

func (r *encryptedCredentialRepo) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := r.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := crypto.Decrypt(sealed, r.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrMalformedCredential, err)
	}
	return plain, nil
}

func (r *encryptedCredentialRepo) Put(ctx context.Context, key string, payload []byte) error {
	sealed, err := crypto.Encrypt(payload, r.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}
	return r.inner.Put(ctx, key, sealed)
}

func (r *encryptedCredentialRepo) Delete(ctx context.Context, key string) error {
	return r.inner.Delete(ctx, key)
}

func (r *encryptedCredentialRepo) Keys(ctx context.Context) ([]string, error) {
	return r.inner.Keys(ctx)
}

type encryptedNotifyingRepo struct {
	*encryptedCredentialRepo
	notifier ChangeNotifier
}

func (r *encryptedNotifyingRepo) SubscribeChanges(ctx context.Context) (<-chan string, error) {
	return r.notifier.SubscribeChanges(ctx)
}
