package blobstore

import (
	"context"
	"errors"
	"time"
)

// Store holds the bytes of grid files. Clients upload and download through
// presigned URLs; the service itself only mints URLs and removes objects.
type Store interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

var ErrInvalidKey = errors.New("invalid_object_key")
