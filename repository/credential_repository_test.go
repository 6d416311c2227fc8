package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HusseinTALL/menuqr-sync/database"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/crypto"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
)

func setupSQLiteRepo(t *testing.T) (CredentialRepository, *database.DB) {
	t.Helper()
	db, err := database.New(":memory:", database.Migrations(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteCredentialRepo(db.Conn), db
}

func setupRedisRepo(t *testing.T) (*RedisCredentialRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisCredentialRepo(rdb, "test:"), mr
}

// exerciseRepo, tüm backend'lerin paylaştığı sözleşmeyi sınar.
func exerciseRepo(t *testing.T, repo CredentialRepository) {
	ctx := context.Background()

	_, err := repo.Get(ctx, "auth.staff")
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	require.NoError(t, repo.Put(ctx, "auth.staff", []byte(`{"accessToken":"a1"}`)))
	require.NoError(t, repo.Put(ctx, "auth.customer.r1", []byte(`{"accessToken":"c1"}`)))
	require.NoError(t, repo.Put(ctx, "auth.staff", []byte(`{"accessToken":"a2"}`)))

	got, err := repo.Get(ctx, "auth.staff")
	require.NoError(t, err)
	assert.JSONEq(t, `{"accessToken":"a2"}`, string(got))

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"auth.staff", "auth.customer.r1"}, keys)

	require.NoError(t, repo.Delete(ctx, "auth.staff"))
	require.NoError(t, repo.Delete(ctx, "auth.staff"), "deleting a missing key is a no-op")

	_, err = repo.Get(ctx, "auth.staff")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestSQLiteCredentialRepo(t *testing.T) {
	repo, db := setupSQLiteRepo(t)
	exerciseRepo(t, repo)

	var puts, deletes int
	require.NoError(t, db.Conn.QueryRow(`SELECT COUNT(*) FROM credential_audit WHERE action = 'put'`).Scan(&puts))
	require.NoError(t, db.Conn.QueryRow(`SELECT COUNT(*) FROM credential_audit WHERE action = 'delete'`).Scan(&deletes))
	assert.Equal(t, 3, puts)
	assert.Equal(t, 1, deletes)
}

func TestRedisCredentialRepo(t *testing.T) {
	repo, mr := setupRedisRepo(t)
	exerciseRepo(t, repo)

	assert.True(t, mr.Exists("test:auth.customer.r1"))
	assert.False(t, mr.Exists("auth.customer.r1"))
}

func TestRedisCredentialRepoPublishesChanges(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := repo.SubscribeChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Put(ctx, "auth.driver", []byte("x")))

	select {
	case key := <-changes:
		assert.Equal(t, "auth.driver", key)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-changes
		return !open
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryCredentialRepo(t *testing.T) {
	exerciseRepo(t, NewMemoryCredentialRepo())
}

func TestEncryptedCredentialRepo(t *testing.T) {
	key, err := crypto.DeriveKeyFromSecret("kiosk")
	require.NoError(t, err)

	inner := NewMemoryCredentialRepo()
	repo, err := NewEncryptedCredentialRepo(inner, key)
	require.NoError(t, err)
	exerciseRepo(t, repo)

	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, "auth.staff", []byte(`{"accessToken":"secret"}`)))

	raw, err := inner.Get(ctx, "auth.staff")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	require.NoError(t, inner.Put(ctx, "auth.driver", []byte(`{"accessToken":"plain"}`)))
	_, err = repo.Get(ctx, "auth.driver")
	assert.ErrorIs(t, err, pkg.ErrMalformedCredential)

	_, err = NewEncryptedCredentialRepo(inner, []byte("short"))
	assert.Error(t, err)
}

func TestEncryptedCredentialRepoKeepsChangeNotifier(t *testing.T) {
	key, err := crypto.DeriveKeyFromSecret("kiosk")
	require.NoError(t, err)

	redisRepo, _ := setupRedisRepo(t)
	repo, err := NewEncryptedCredentialRepo(redisRepo, key)
	require.NoError(t, err)
	_, ok := repo.(ChangeNotifier)
	assert.True(t, ok)

	plain, err := NewEncryptedCredentialRepo(NewMemoryCredentialRepo(), key)
	require.NoError(t, err)
	_, ok = plain.(ChangeNotifier)
	assert.False(t, ok)
}
