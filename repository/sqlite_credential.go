package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HusseinTALL/menuqr-sync/database"
	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// sqliteCredentialRepo, CredentialRepository interface'inin SQLite implementasyonu.
// Her yazma/silme credential_audit'e aynı transaction'da bir satır ekler.
type sqliteCredentialRepo struct {
	db *sql.DB
}

// NewSQLiteCredentialRepo, constructor.
func NewSQLiteCredentialRepo(db *sql.DB) CredentialRepository {
	return &sqliteCredentialRepo{db: db}
}

func (r *sqliteCredentialRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM credentials WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return payload, nil
}

func (r *sqliteCredentialRepo) Put(ctx context.Context, key string, payload []byte) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO credentials (key, payload, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

		if _, err := tx.ExecContext(ctx, query, key, payload); err != nil {
			return fmt.Errorf("failed to upsert credential: %w", err)
		}
		return recordAudit(ctx, tx, key, "put")
	})
}

func (r *sqliteCredentialRepo) Delete(ctx context.Context, key string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("failed to delete credential: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return recordAudit(ctx, tx, key, "delete")
	})
}

func (r *sqliteCredentialRepo) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM credentials ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan credential key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func recordAudit(ctx context.Context, q database.TxQuerier, key, action string) error {
	if _, err := q.ExecContext(ctx, `INSERT INTO credential_audit (key, action) VALUES (?, ?)`, key, action); err != nil {
		return fmt.Errorf("failed to record credential audit: %w", err)
	}
	return nil
}
