package auth

import (
	"context"
	"sync"
)

// RevocationStore tracks revoked token identifiers so otherwise-valid signed
// tokens are rejected. Implementations must make Revoke idempotent and give
// read-your-writes consistency within a process; a store shared by several
// server processes (the SQLite repository) extends that view across them.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationStore is a process-local revocation set. Suitable for
// single-process deployments and tests; multi-process setups need the
// shared SQLite-backed store.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]struct{})}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = struct{}{}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[jti]
	return ok, nil
}
