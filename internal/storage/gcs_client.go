package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	Bucket       string
	EmulatorHost string
	PublicBase   string
	PublicPrefix string
}

type GCSClient struct {
	cfg    GCSConfig
	client *storage.Client
}

func NewGCSClient(ctx context.Context, cfg GCSConfig) (*GCSClient, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.EmulatorHost != "" {
		opts = append(opts, option.WithEndpoint(cfg.EmulatorHost+"/storage/v1/"), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSClient{cfg: cfg, client: client}, nil
}

// Put writes with a DoesNotExist precondition; GCS answers 412 when the
// object is already there.
func (g *GCSClient) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) error {
	// Closing a writer commits whatever it has buffered, so a failed copy
	// cancels the writer's context first to abort the upload.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	obj := g.client.Bucket(g.cfg.Bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(wctx)
	w.ContentType = contentType
	w.CacheControl = "max-age=3600"
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && gErr.Code == http.StatusPreconditionFailed {
			return conflictError(key, err)
		}
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (g *GCSClient) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.cfg.Bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, g.cfg.Bucket, err)
	}
	return nil
}

func (g *GCSClient) List(ctx context.Context, prefix string, fn func(Object) error) error {
	it := g.client.Bucket(g.cfg.Bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list GCS objects: %w", err)
		}
		if err := fn(Object{Key: attrs.Name, Size: attrs.Size, LastModified: attrs.Updated}); err != nil {
			return err
		}
	}
}

func (g *GCSClient) PublicURL(key string) string {
	return PublicURL(g.cfg.PublicBase, g.cfg.PublicPrefix, key)
}

func (g *GCSClient) Close() error {
	return g.client.Close()
}
