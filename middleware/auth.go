// Package middleware, yerel API'nin request pipeline'ına eklenen ara katmanları barındırır.
//
// Go'da middleware bir fonksiyondur:
//
//	func(next http.Handler) http.Handler
//
// Zincir: RequestLog → LocalToken → Handler
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// LocalTokenMiddleware, yerel API için paylaşılan bearer token kontrolü.
// Loopback'te dinleyen API, aynı makinedeki başka process'lerin credential
// yazmasını engellemek için opsiyonel bir token ister.
type LocalTokenMiddleware struct {
	token string
}

// NewLocalTokenMiddleware, constructor. token boşsa Require hiçbir şey yapmaz.
func NewLocalTokenMiddleware(token string) *LocalTokenMiddleware {
	return &LocalTokenMiddleware{token: token}
}

// Require, Authorization: Bearer <token> başlığını zorunlu kılar.
// Eşleşmezse 401 döner, next çağrılmaz.
func (m *LocalTokenMiddleware) Require(next http.Handler) http.Handler {
	if m.token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid local api token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
