package kv

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/avoron/tinychat/internal/common"
)

// MemoryStore is the in-memory twin of BoltStore, used in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[bucket]
	if !ok {
		return nil, common.ErrorNotFound
	}
	v, ok := b[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return bytes.Clone(v), nil
}

func (s *MemoryStore) Put(ctx context.Context, bucket, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[bucket] = b
	}
	b[key] = bytes.Clone(value)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[bucket]; ok {
		delete(b, key)
	}
	return nil
}

func (s *MemoryStore) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[bucket]; ok {
		for k := range b {
			if strings.HasPrefix(k, prefix) {
				delete(b, k)
			}
		}
	}
	return nil
}

func (s *MemoryStore) ForEachPrefix(ctx context.Context, bucket, prefix string, fn func(key string, value []byte) error) error {
	s.mu.RLock()
	snapshot := make(map[string][]byte)
	if b, ok := s.buckets[bucket]; ok {
		for k, v := range b {
			if strings.HasPrefix(k, prefix) {
				snapshot[k] = bytes.Clone(v)
			}
		}
	}
	s.mu.RUnlock()

	for k, v := range snapshot {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
