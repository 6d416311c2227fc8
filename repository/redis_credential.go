package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// changesChannel, prefix altında yayınlanan değişiklik kanalının son eki.
const changesChannel = "credential_events"

// RedisCredentialRepo, CredentialRepository'nin Redis implementasyonu.
// Key'ler "<prefix>auth.staff" gibi saklanır. Her yazma/silme sonrası
// değişen key "<prefix>credential_events" kanalına publish edilir.
type RedisCredentialRepo struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCredentialRepo, constructor. rdb'nin yaşam döngüsü caller'a aittir.
func NewRedisCredentialRepo(rdb *redis.Client, prefix string) *RedisCredentialRepo {
	return &RedisCredentialRepo{rdb: rdb, prefix: prefix}
}

func (r *RedisCredentialRepo) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential from Redis: %w", err)
	}
	return payload, nil
}

func (r *RedisCredentialRepo) Put(ctx context.Context, key string, payload []byte) error {
	if err := r.rdb.Set(ctx, r.prefix+key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write credential to Redis: %w", err)
	}
	return r.publish(ctx, key)
}

func (r *RedisCredentialRepo) Delete(ctx context.Context, key string) error {
	n, err := r.rdb.Del(ctx, r.prefix+key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete credential from Redis: %w", err)
	}
	if n == 0 {
		return nil
	}
	return r.publish(ctx, key)
}

func (r *RedisCredentialRepo) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"auth.*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan credential keys: %w", err)
	}
	return keys, nil
}

// SubscribeChanges, diğer process'lerin yazdığı key'leri dinler.
// Kendi yazdıklarımız da gelir; store bunları zaten bildirdiği için
// ikinci sinyal coalesce edilir, zararsızdır.
func (r *RedisCredentialRepo) SubscribeChanges(ctx context.Context) (<-chan string, error) {
	sub := r.rdb.Subscribe(ctx, r.prefix+changesChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to credential events: %w", err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisCredentialRepo) publish(ctx context.Context, key string) error {
	if err := r.rdb.Publish(ctx, r.prefix+changesChannel, key).Err(); err != nil {
		return fmt.Errorf("failed to publish credential event: %w", err)
	}
	return nil
}
