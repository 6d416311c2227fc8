package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// Refresh endpoint'leri.
const (
	StaffRefreshPath    = "/auth/refresh-token"
	CustomerRefreshPath = "/customer/auth/refresh-token"
)

// RefreshClient, refresh endpoint'lerine giden ham istemci.
// Gateway üzerinden gitmez: refresh çağrısının kendisi yenileme tetiklememeli.
type RefreshClient struct {
	baseURL string
	client  *http.Client
}

// NewRefreshClient, constructor. client nil ise 15 saniyelik timeout kullanılır.
func NewRefreshClient(baseURL string, client *http.Client) *RefreshClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RefreshClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshData, yanıt iki şekilde gelebilir: token'lar düz veya "tokens" altında.
type refreshData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Tokens       *struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"tokens"`
}

// Refresh, services.RefreshClient'ı karşılar.
// 400/401/403 → pkg.ErrAuth (refresh token reddedildi). Diğer hatalar → pkg.ErrNetwork.
func (c *RefreshClient) Refresh(ctx context.Context, kind models.ActorKind, tenantID, refreshToken string) (*models.CredentialPayload, error) {
	var path string
	switch kind {
	case models.ActorStaff, models.ActorSuperAdmin:
		path = StaffRefreshPath
	case models.ActorCustomer:
		path = CustomerRefreshPath
	default:
		return nil, fmt.Errorf("%w: %s has no refresh flow", pkg.ErrAuth, kind)
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if kind == models.ActorCustomer && tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read refresh response: %v", pkg.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: refresh rejected (%d): %s", pkg.ErrAuth, resp.StatusCode, errorMessage(raw))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: refresh failed (%d): %s", pkg.ErrNetwork, resp.StatusCode, errorMessage(raw))
	}

	var data refreshData
	if err := decodeData(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrNetwork, err)
	}
	if data.Tokens != nil {
		data.AccessToken, data.RefreshToken = data.Tokens.AccessToken, data.Tokens.RefreshToken
	}
	if data.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response without access token", pkg.ErrNetwork)
	}
	return &models.CredentialPayload{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}, nil
}
