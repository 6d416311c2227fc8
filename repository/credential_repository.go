package repository

import "context"

// CredentialRepository, storage key → opak payload saklama.
//
// Payload'ın içeriği (JSON token çifti, şifreli blob) repository'yi ilgilendirmez;
// parse etmek CredentialStore'un işidir. Key formatı models.StorageKey'dir.
// Bulunamayan key için pkg.ErrNotFound döner. Put, eski değeri atomik olarak değiştirir.
type CredentialRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// ChangeNotifier, başka process'lerin yaptığı değişiklikleri bildiren backend'ler için.
// Paylaşılan Redis backend'i bunu karşılar: bir ekran token'ı yenilediğinde
// aynı mutfaktaki diğer ekranlar da yeni credential'ı görür.
//
// Dönen channel değişen key'leri taşır; ctx iptal edilince kapanır.
type ChangeNotifier interface {
	SubscribeChanges(ctx context.Context) (<-chan string, error)
}
