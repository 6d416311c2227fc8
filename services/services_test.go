package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
	"github.com/HusseinTALL/menuqr-sync/repository"
)

// mintToken, exp'i now+ttl olan imzalı bir JWT üretir. İmza hiçbir yerde doğrulanmaz.
func mintToken(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		ID:        subject + "-" + time.Now().Format(time.RFC3339Nano),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return tok
}

func newTestStore(t *testing.T) (CredentialStore, repository.CredentialRepository) {
	t.Helper()
	repo := repository.NewMemoryCredentialRepo()
	return NewCredentialStore(repo, logger.Discard()), repo
}

// fakeRefreshClient, çağrıları sayar; gate kapalıyken çağrıyı bekletir.
type fakeRefreshClient struct {
	t     *testing.T
	calls atomic.Int32
	gate  chan struct{}
	err   error
	ttl   time.Duration

	mu       sync.Mutex
	received []string
	issued   []string
}

func newFakeRefreshClient(t *testing.T) *fakeRefreshClient {
	return &fakeRefreshClient{t: t, ttl: time.Hour}
}

func (f *fakeRefreshClient) Refresh(ctx context.Context, kind models.ActorKind, tenantID, refreshToken string) (*models.CredentialPayload, error) {
	n := f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	access := mintToken(f.t, string(kind)+"-refreshed", f.ttl)
	f.mu.Lock()
	f.received = append(f.received, refreshToken)
	f.issued = append(f.issued, access)
	f.mu.Unlock()

	return &models.CredentialPayload{
		AccessToken:  access,
		RefreshToken: refreshToken + "-r" + string(rune('0'+n)),
	}, nil
}

func (f *fakeRefreshClient) lastIssued() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.issued) == 0 {
		return ""
	}
	return f.issued[len(f.issued)-1]
}
