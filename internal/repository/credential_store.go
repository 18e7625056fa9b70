package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/credentials"
)

// CredentialStore implements credentials.Store on the credentials table.
// Expired rows read as absent and are deleted on the read that finds them.
type CredentialStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ credentials.Store = (*CredentialStore)(nil)

func newCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db, now: time.Now}
}

func (s *CredentialStore) Save(ctx context.Context, key, value string, ttl time.Duration) error {
	query := `
		INSERT INTO credentials (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`
	expiresAt := s.now().Add(ttl).UnixMilli()
	if _, err := s.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to save credential %s: %w", key, err)
	}
	return nil
}

func (s *CredentialStore) Read(ctx context.Context, key string) (string, error) {
	var (
		value     string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM credentials WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", credentials.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential %s: %w", key, err)
	}

	if s.now().UnixMilli() >= expiresAt {
		if err := s.Delete(ctx, key); err != nil {
			return "", err
		}
		return "", credentials.ErrNotFound
	}
	return value, nil
}

func (s *CredentialStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete credential %s: %w", key, err)
	}
	return nil
}
