// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya senkronizasyon katmanının hata taksonomisini içerir.
//
// Üst katmana sadece iki terminal tür çıkar:
//   - ErrAuth: credential geçersiz ve yenilenemedi → UI login'e yönlendirmeli
//   - ErrNetwork: geçici ağ hatası → credential'a dokunulmaz, caller isterse tekrar dener
//
// Diğerleri (ErrSocketAuth, ErrMalformedCredential) katman içinde state geçişine
// veya "credential yok" davranışına dönüştürülür.
//
//	if errors.Is(err, pkg.ErrAuth) { ... }
package pkg

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth, terminal yetkilendirme hatası. Credential temizlenmiştir.
	ErrAuth = errors.New("authentication required")

	// ErrNetwork, geçici ağ hatası. Otomatik retry döngüsü yoktur.
	ErrNetwork = errors.New("network error")

	// ErrSocketAuth, realtime handshake credential yüzünden reddedildi.
	// Otomatik reconnect durur; HTTP oturumu etkilenmez.
	ErrSocketAuth = errors.New("realtime handshake rejected")

	// ErrMalformedCredential, saklanan payload parse edilemedi.
	// Store bunu "credential yok" olarak ele alır, caller'a asla çıkmaz.
	ErrMalformedCredential = errors.New("malformed credential")

	ErrNotFound     = errors.New("not found")
	ErrNotConnected = errors.New("realtime connection not established")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")
)

// HTTPError, 401 dışındaki başarısız REST yanıtları.
// Auth/Network taksonomisinin dışında kalır; CRUD ekranları kendi mesajını gösterir.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}
