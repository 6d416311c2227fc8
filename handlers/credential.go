package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/services"
)

// CredentialManager, CredentialStore'un yerel API'nin kullandığı kısmı.
type CredentialManager interface {
	Put(ctx context.Context, cred *models.Credential) error
	Clear(ctx context.Context, kind models.ActorKind, tenantID string) error
	List(ctx context.Context) ([]services.CredentialSummary, error)
}

// CredentialHandler, login sonrası token çiftinin daemon'a verilmesi ve logout.
type CredentialHandler struct {
	store CredentialManager
}

// NewCredentialHandler, constructor.
func NewCredentialHandler(store CredentialManager) *CredentialHandler {
	return &CredentialHandler{store: store}
}

type putCredentialRequest struct {
	ActorKind    models.ActorKind `json:"actorKind"`
	TenantID     string           `json:"tenantId"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

func (req *putCredentialRequest) validate() error {
	if !req.ActorKind.Valid() {
		return fmt.Errorf("%w: unknown actorKind %q", pkg.ErrBadRequest, req.ActorKind)
	}
	if req.ActorKind.TenantScoped() && req.TenantID == "" {
		return fmt.Errorf("%w: tenantId required for %s", pkg.ErrBadRequest, req.ActorKind)
	}
	if req.AccessToken == "" {
		return fmt.Errorf("%w: accessToken required", pkg.ErrBadRequest)
	}
	if req.ActorKind.HasRefreshFlow() && req.RefreshToken == "" {
		return fmt.Errorf("%w: refreshToken required for %s", pkg.ErrBadRequest, req.ActorKind)
	}
	return nil
}

// Put godoc
// PUT /api/credentials
// Bir aktörün credential'ını atomik olarak değiştirir. İlgili bağlantı
// Watch sinyaliyle yeni token'a geçer.
func (h *CredentialHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req putCredentialRequest
	if err := decodeBody(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}
	if err := req.validate(); err != nil {
		pkg.Error(w, err)
		return
	}

	cred := &models.Credential{
		ActorKind:    req.ActorKind,
		TenantID:     req.TenantID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}
	if !req.ActorKind.TenantScoped() {
		cred.TenantID = ""
	}
	if err := h.store.Put(r.Context(), cred); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, cred)
}

// List godoc
// GET /api/credentials
// Saklanan credential'ların özetleri. Token döndürülmez.
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, summaries)
}

// Clear godoc
// DELETE /api/credentials/{kind}?tenant=<id>
// Logout. Olmayan credential için de 200 döner.
func (h *CredentialHandler) Clear(w http.ResponseWriter, r *http.Request) {
	kind := models.ActorKind(r.PathValue("kind"))
	tenantID := r.URL.Query().Get("tenant")

	if !kind.Valid() {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "unknown actor kind")
		return
	}
	if kind.TenantScoped() && tenantID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "tenant query parameter required")
		return
	}

	if err := h.store.Clear(r.Context(), kind, tenantID); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "credential cleared"})
}
