package blobstore

import (
	"context"

	"github.com/smallbiznis/tilegrid/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("blobstore",
	fx.Provide(NewStore),
)

func NewStore(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Store, error) {
	if cfg.Blob.Endpoint == "" {
		log.Warn("blob endpoint not configured, using in-memory store")
		return NewMemoryStore(), nil
	}

	store, err := NewMinioStore(MinioConfig{
		Endpoint:  cfg.Blob.Endpoint,
		AccessKey: cfg.Blob.AccessKey,
		SecretKey: cfg.Blob.SecretKey,
		Bucket:    cfg.Blob.Bucket,
		UseSSL:    cfg.Blob.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return store.EnsureBucket(ctx)
		},
	})
	return store, nil
}
