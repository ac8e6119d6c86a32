package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryStore mints fake URLs and tracks which keys were handed out. It backs
// local development and tests when no object store is configured.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]string)}
}

func (s *MemoryStore) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	s.mu.Lock()
	s.objects[key] = contentType
	s.mu.Unlock()
	return memoryURL("PUT", key, ttl), nil
}

func (s *MemoryStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	return memoryURL("GET", key, ttl), nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Has reports whether key was presigned for upload and not removed since.
func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func memoryURL(method, key string, ttl time.Duration) string {
	q := url.Values{}
	q.Set("method", method)
	q.Set("expires", fmt.Sprintf("%d", int(ttl.Seconds())))
	return "memory://blobs/" + url.PathEscape(key) + "?" + q.Encode()
}
