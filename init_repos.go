// Package main: Repository katmanı başlatma.
//
// initRepositories, seçilen credential backend'ini kurar:
//   - sqlite: tek cihaz, varsayılan (migration'lar embed edilmiştir)
//   - redis: aynı restorandaki birden fazla ekran tek credential paylaşır
//   - memory: test ve geçici kurulumlar
//
// CREDENTIAL_SECRET verilmişse seçilen backend AES-GCM katmanıyla sarılır.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/config"
	"github.com/HusseinTALL/menuqr-sync/database"
	"github.com/HusseinTALL/menuqr-sync/pkg/crypto"
	"github.com/HusseinTALL/menuqr-sync/repository"
)

// Repositories, repository instance'larını ve kapatılması gereken kaynakları tutar.
type Repositories struct {
	Credentials repository.CredentialRepository

	db  *database.DB
	rdb *redis.Client
}

// Close, açık bağlantıları kapatır.
func (r *Repositories) Close() {
	if r.db != nil {
		r.db.Close()
	}
	if r.rdb != nil {
		r.rdb.Close()
	}
}

func initRepositories(cfg *config.Config, log logrus.FieldLogger) (*Repositories, error) {
	repos := &Repositories{}

	switch cfg.Auth.CredentialBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		repos.rdb = rdb
		repos.Credentials = repository.NewRedisCredentialRepo(rdb, cfg.Redis.KeyPrefix)

	case config.BackendMemory:
		log.Warn("credential backend is in-memory, credentials will not survive a restart")
		repos.Credentials = repository.NewMemoryCredentialRepo()

	default:
		db, err := database.New(cfg.Database.Path, database.Migrations(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		repos.db = db
		repos.Credentials = repository.NewSQLiteCredentialRepo(db.Conn)
	}

	if cfg.Auth.CredentialSecret != "" {
		key, err := crypto.DeriveKeyFromSecret(cfg.Auth.CredentialSecret)
		if err != nil {
			repos.Close()
			return nil, fmt.Errorf("derive credential key: %w", err)
		}
		wrapped, err := repository.NewEncryptedCredentialRepo(repos.Credentials, key)
		if err != nil {
			repos.Close()
			return nil, err
		}
		repos.Credentials = wrapped
	}

	log.WithFields(logrus.Fields{
		"backend":   cfg.Auth.CredentialBackend,
		"encrypted": cfg.Auth.CredentialSecret != "",
	}).Info("credential backend ready")
	return repos, nil
}
