package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"studynotes/config"
	notes_errors "studynotes/pkg/errors"
)

func TestPublicURL(t *testing.T) {
	cases := []struct {
		base, prefix, path string
		want               string
	}{
		{"https://cdn.example.com", "notes", "u1/i1.pdf", "https://cdn.example.com/notes/u1/i1.pdf"},
		{"https://cdn.example.com/", "/notes/", "/u1/i1.pdf", "https://cdn.example.com/notes/u1/i1.pdf"},
		{"https://cdn.example.com", "", "u1/i1.pdf", "https://cdn.example.com/u1/i1.pdf"},
		{"", "notes", "u1/i1.pdf", ""},
		{"https://cdn.example.com", "notes", "", ""},
	}
	for _, tc := range cases {
		if got := PublicURL(tc.base, tc.prefix, tc.path); got != tc.want {
			t.Fatalf("PublicURL(%q,%q,%q): want=%q got=%q", tc.base, tc.prefix, tc.path, tc.want, got)
		}
	}
}

func TestConflictErrorMatchesKind(t *testing.T) {
	cause := errors.New("412 precondition failed")
	err := conflictError("u1/i1.pdf", cause)
	if !errors.Is(err, notes_errors.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, _, err := Open(context.Background(), config.ObjectStoreConfig{Backend: "ftp"}); err == nil {
		t.Fatalf("unknown backend should fail")
	}
	if _, _, err := Open(context.Background(), config.ObjectStoreConfig{Backend: "s3"}); err == nil {
		t.Fatalf("s3 without region and bucket should fail")
	}
}

// brokenBody yields some bytes and then fails, like a client that
// disconnects mid-upload.
type brokenBody struct{ sent bool }

func (b *brokenBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, "%PDF-1.7 partial"), nil
	}
	return 0, errors.New("client went away")
}

func TestGCSPutAbortsOnBodyError(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"bucket":"notes","name":"u1/i1.pdf","size":"16"}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewGCSClient(ctx, GCSConfig{Bucket: "notes", EmulatorHost: srv.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer client.Close()

	if err := client.Put(ctx, "u1/i1.pdf", &brokenBody{}, 1024, "application/pdf"); err == nil {
		t.Fatalf("put with a failing body should fail")
	}
	if n := requests.Load(); n != 0 {
		t.Fatalf("partial object sent to the bucket: requests=%d", n)
	}
}
