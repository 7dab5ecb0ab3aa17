package handouts

import (
	"context"
	"sync"
)

// Store memoizes the reference bundle so the load happens exactly once
// per process, no matter how many callers ask for it.
type Store struct {
	handoutsDir  string
	protocolsDir string

	once   sync.Once
	bundle *Bundle
	err    error
}

// NewStore creates a store over the two reference directories.
// Nothing is read until the first Bundle call.
func NewStore(handoutsDir, protocolsDir string) *Store {
	return &Store{
		handoutsDir:  handoutsDir,
		protocolsDir: protocolsDir,
	}
}

// Bundle returns the loaded reference bundle, loading it on first use.
// Concurrent callers share a single load; every caller sees the same
// bundle. The first caller's context governs the load.
func (s *Store) Bundle(ctx context.Context) (*Bundle, error) {
	s.once.Do(func() {
		s.bundle, s.err = Load(ctx, s.handoutsDir, s.protocolsDir)
	})
	return s.bundle, s.err
}
