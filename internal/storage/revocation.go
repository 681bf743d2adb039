package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// RevokeToken blacklists a token identifier. Revoking an already-revoked
// identifier is a no-op.
func (r *SQLiteRepository) RevokeToken(ctx context.Context, jti string) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO revoked_tokens (jti) VALUES (?)", jti); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	slog.InfoContext(ctx, "Token revoked", "token_id", jti)
	return nil
}

func (r *SQLiteRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE jti = ?", jti).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}

// RevocationStore exposes the revoked-token table under the interface the
// token gate expects. Sharing the database means every server process sees
// the same blacklist.
type RevocationStore struct {
	repo *SQLiteRepository
}

func (r *SQLiteRepository) Revocations() *RevocationStore {
	return &RevocationStore{repo: r}
}

func (s *RevocationStore) Revoke(ctx context.Context, jti string) error {
	return s.repo.RevokeToken(ctx, jti)
}

func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.repo.IsTokenRevoked(ctx, jti)
}
