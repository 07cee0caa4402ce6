// Package inmem is a key-value backend held in memory. Nothing survives the process.
package inmem

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-portal/core"
)

type Store struct {
	mutex sync.RWMutex
	table map[string][]byte
}

var _ core.KVStore = (*Store)(nil) // interface compliance check

func New() *Store {
	return &Store{table: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, ok := s.table[key]
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	return copyBytes(value), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.table[key] = copyBytes(value)
	return nil
}

// Delete removes key. Used to reset state between tests.
func (s *Store) Delete(_ context.Context, key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.table, key)
}

func (s *Store) Close() error { return nil }

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
