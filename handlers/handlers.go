// Package handlers, yerel UI'a snapshot sunan loopback HTTP API'nin handler'larını barındırır.
//
// Thin handler pattern: handler'lar sadece request parse + response yazımı yapar.
// State projeksiyonlarda, iş mantığı services ve ws katmanlarında durur.
// Her handler ihtiyaç duyduğu kısmı küçük bir interface olarak alır.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// maxBodyBytes, yerel API'ye gelen JSON gövdelerinin üst sınırı.
const maxBodyBytes = 64 << 10

// decodeBody, request gövdesini dst'ye çözer. Hata ErrBadRequest ile sarılır.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", pkg.ErrBadRequest, err)
	}
	return nil
}
