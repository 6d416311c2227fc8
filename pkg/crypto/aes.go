// Package crypto: saklanan credential'lar için AES-256-GCM şifreleme.
//
// Cihazda duran token çiftleri (sqlite dosyası veya paylaşılan Redis) düz metin
// tutulmamalı. Anahtar, konfigürasyondaki serbest metin secret'tan HKDF-SHA256
// ile türetilir; böylece operatör hex anahtar üretmek zorunda kalmaz.
//
// Kullanım:
//
//	key, _ := crypto.DeriveKeyFromSecret(cfg.Auth.CredentialSecret)
//	sealed, _ := crypto.Encrypt(payload, key)
//	plain, _ := crypto.Decrypt(sealed, key)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// keyInfo, HKDF context etiketi. Değişirse eski kayıtlar çözülemez.
const keyInfo = "menuqr-sync/credential-store/v1"

// ErrCiphertextTooShort, nonce'tan kısa girdi.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// DeriveKey, hex-encoded string'den 32-byte AES-256 anahtarı oluşturur.
// Input tam 64 hex karakter (= 32 byte) olmalıdır.
func DeriveKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be exactly 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// DeriveKeyFromSecret, herhangi uzunluktaki bir secret'tan HKDF ile 32-byte anahtar türetir.
// Boş secret kabul edilmez; şifrelemesiz mod caller'ın kararıdır.
func DeriveKeyFromSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("secret must not be empty")
	}

	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return key, nil
}

// Encrypt, plaintext'i AES-256-GCM ile şifreler.
// Dönen değer base64: nonce (12 byte) + ciphertext + tag.
func Encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

// Decrypt, Encrypt çıktısını çözer. Yanlış anahtar veya bozuk veri hata döner.
func Decrypt(encoded []byte, key []byte) ([]byte, error) {
	data := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(data, encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	data = data[:n]

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
