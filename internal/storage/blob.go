package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	notes_errors "studynotes/pkg/errors"
)

// BlobStore is the object store used by the upload saga. Put never
// overwrites: an existing object at path yields an error matching
// notes_errors.ErrConflict.
type BlobStore interface {
	Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
}

// Object is one listed blob.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BlobLister enumerates stored blobs under a prefix, in key order.
type BlobLister interface {
	List(ctx context.Context, prefix string, fn func(Object) error) error
}

func conflictError(path string, cause error) error {
	return notes_errors.Wrap(notes_errors.ErrConflict, fmt.Sprintf("object %s already exists", path), cause)
}

// PublicURL joins base, prefix and path as {base}/{prefix}/{path}. An empty
// base yields "" so callers can omit the field.
func PublicURL(base, prefix, path string) string {
	if base == "" || path == "" {
		return ""
	}
	parts := []string{strings.TrimRight(base, "/")}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, strings.TrimLeft(path, "/"))
	return strings.Join(parts, "/")
}
