package storage

import (
	"context"
	"fmt"

	"studynotes/config"
)

// Backend is a blob store that can also enumerate its objects.
type Backend interface {
	BlobStore
	BlobLister
}

// Open builds the backend selected by cfg.Backend. The returned close
// function releases client resources.
func Open(ctx context.Context, cfg config.ObjectStoreConfig) (Backend, func() error, error) {
	switch cfg.Backend {
	case "", "s3":
		client, err := NewClient(ctx, S3Config{
			Region:       cfg.Region,
			Bucket:       cfg.Bucket,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
			Endpoint:     cfg.Endpoint,
			PublicBase:   cfg.PublicBase,
			PublicPrefix: cfg.PublicPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	case "gcs":
		client, err := NewGCSClient(ctx, GCSConfig{
			Bucket:       cfg.Bucket,
			EmulatorHost: cfg.EmulatorHost,
			PublicBase:   cfg.PublicBase,
			PublicPrefix: cfg.PublicPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown object store backend %q", cfg.Backend)
	}
}
