package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
)

func TestCredentialStorePutGetClear(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, ok := store.Get(ctx, models.ActorStaff, "")
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, &models.Credential{ActorKind: models.ActorStaff, AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, store.Put(ctx, &models.Credential{ActorKind: models.ActorStaff, AccessToken: "a2", RefreshToken: "r2"}))

	cred, ok := store.Get(ctx, models.ActorStaff, "")
	require.True(t, ok)
	assert.Equal(t, "a2", cred.AccessToken)
	assert.Equal(t, "r2", cred.RefreshToken)

	require.NoError(t, store.Clear(ctx, models.ActorStaff, ""))
	_, ok = store.Get(ctx, models.ActorStaff, "")
	assert.False(t, ok)
}

func TestCredentialStoreCustomerTenantsAreSeparate(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &models.Credential{ActorKind: models.ActorCustomer, TenantID: "r1", AccessToken: "c1"}))
	require.NoError(t, store.Put(ctx, &models.Credential{ActorKind: models.ActorCustomer, TenantID: "r2", AccessToken: "c2"}))

	c1, ok := store.Get(ctx, models.ActorCustomer, "r1")
	require.True(t, ok)
	c2, ok := store.Get(ctx, models.ActorCustomer, "r2")
	require.True(t, ok)
	assert.Equal(t, "c1", c1.AccessToken)
	assert.Equal(t, "c2", c2.AccessToken)
	assert.Equal(t, "r2", c2.TenantID)

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"auth.customer.r1", "auth.customer.r2"}, keys)

	err = store.Put(ctx, &models.Credential{ActorKind: models.ActorCustomer, AccessToken: "x"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestCredentialStoreDriverDropsRefreshToken(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &models.Credential{ActorKind: models.ActorDriver, AccessToken: "d1", RefreshToken: "ignored"}))

	raw, err := repo.Get(ctx, "auth.driver")
	require.NoError(t, err)
	assert.JSONEq(t, `{"accessToken":"d1"}`, string(raw))
}

func TestCredentialStoreMalformedPayloadIsAbsent(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	for _, raw := range []string{`not json`, `{"refreshToken":"r"}`, `[]`} {
		require.NoError(t, repo.Put(ctx, "auth.superAdmin", []byte(raw)))
		cred, ok := store.Get(ctx, models.ActorSuperAdmin, "")
		assert.False(t, ok, raw)
		assert.Nil(t, cred)
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Malformed)
}

func TestCredentialStoreList(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &models.Credential{ActorKind: models.ActorStaff, AccessToken: mintToken(t, "s", time.Hour), RefreshToken: "r"}))
	require.NoError(t, store.Put(ctx, &models.Credential{ActorKind: models.ActorCustomer, TenantID: "t1", AccessToken: "opaque"}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, models.ActorCustomer, list[0].ActorKind)
	assert.Equal(t, "t1", list[0].TenantID)
	assert.Nil(t, list[0].ExpiresAt)

	assert.Equal(t, models.ActorStaff, list[1].ActorKind)
	require.NotNil(t, list[1].ExpiresAt)
	assert.Greater(t, *list[1].ExpiresAt, time.Now().Unix())
}

func TestCredentialStoreWatchCoalescesSignals(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	staff, cancelStaff := store.Watch(models.ActorStaff, "")
	driver, cancelDriver := store.Watch(models.ActorDriver, "")
	defer cancelDriver()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(ctx, &models.Credential{ActorKind: models.ActorStaff, AccessToken: "a", RefreshToken: "r"}))
	}

	select {
	case <-staff:
	default:
		t.Fatal("expected a pending staff signal")
	}
	select {
	case <-staff:
		t.Fatal("signals should coalesce into one")
	default:
	}
	select {
	case <-driver:
		t.Fatal("driver watcher must not see staff writes")
	default:
	}

	cancelStaff()
	cancelStaff()
	require.NoError(t, store.Clear(ctx, models.ActorStaff, ""))
	select {
	case <-staff:
		t.Fatal("cancelled watcher received a signal")
	default:
	}
}

func TestCredentialStoreRunWithoutNotifierBlocksUntilDone(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- store.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
