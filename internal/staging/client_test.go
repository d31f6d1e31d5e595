package staging_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vidgate/internal/services"
	"vidgate/internal/staging"
)

// objectStore is an in-memory bucket/key store speaking the staging HTTP API.
type objectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newObjectStore() *objectStore {
	return &objectStore{objects: make(map[string][]byte)}
}

func (s *objectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.objects[key] = body
		w.WriteHeader(http.StatusCreated)
	case http.MethodHead:
		if _, ok := s.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := s.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	case http.MethodDelete:
		if _, ok := s.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(s.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestClientRoundTrip(t *testing.T) {
	store := newObjectStore()
	server := httptest.NewServer(store)
	defer server.Close()

	client := staging.NewClient(server.URL, 5*time.Second)
	ctx := context.Background()

	dir := t.TempDir()
	src := filepath.Join(dir, "normalized.mp4")
	if err := os.WriteFile(src, []byte("normalized clip bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	key := staging.KeyFor("abc-123", "normalized.mp4")
	uri, err := client.Put(ctx, "uploads", key, src)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if uri != "staging://uploads/items/abc-123/normalized.mp4" {
		t.Fatalf("uri = %s", uri)
	}

	exists, err := client.ExistsURI(ctx, uri)
	if err != nil {
		t.Fatalf("ExistsURI: %v", err)
	}
	if !exists {
		t.Fatal("object should exist after Put")
	}

	dst := filepath.Join(dir, "fetched.mp4")
	if err := client.Fetch(ctx, "uploads", key, dst); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	fetched, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read fetched: %v", err)
	}
	if string(fetched) != "normalized clip bytes" {
		t.Fatalf("fetched contents = %q", fetched)
	}

	if err := client.RemoveURI(ctx, uri); err != nil {
		t.Fatalf("RemoveURI: %v", err)
	}
	exists, err = client.ExistsURI(ctx, uri)
	if err != nil {
		t.Fatalf("ExistsURI after delete: %v", err)
	}
	if exists {
		t.Fatal("object should be gone after delete")
	}

	// Deleting again must stay quiet so cleanup can run unconditionally.
	if err := client.RemoveURI(ctx, uri); err != nil {
		t.Fatalf("RemoveURI on missing object: %v", err)
	}
}

func TestClientFetchMissingObject(t *testing.T) {
	server := httptest.NewServer(newObjectStore())
	defer server.Close()

	client := staging.NewClient(server.URL, 5*time.Second)
	err := client.Fetch(context.Background(), "uploads", "items/gone/clip.mp4", filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestClientServerErrorIsInfrastructure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := staging.NewClient(server.URL, 5*time.Second)
	exists, err := client.Exists(context.Background(), "uploads", "items/x/clip.mp4")
	if exists {
		t.Fatal("exists should be false on server error")
	}
	if !services.IsInfrastructure(err) {
		t.Fatalf("server error should classify as infrastructure, got %v", err)
	}
}

func TestClientTransportErrorIsInfrastructure(t *testing.T) {
	server := httptest.NewServer(newObjectStore())
	server.Close() // connection refused from here on

	client := staging.NewClient(server.URL, time.Second)
	_, err := client.Exists(context.Background(), "uploads", "items/x/clip.mp4")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if !services.IsInfrastructure(err) {
		t.Fatalf("transport error should classify as infrastructure, got %v", err)
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		bucket     string
		key        string
		wantErr    bool
		name       string
	}{
		{name: "valid", uri: "staging://uploads/items/k/clip.mp4", bucket: "uploads", key: "items/k/clip.mp4"},
		{name: "wrong scheme", uri: "s3://uploads/k", wantErr: true},
		{name: "missing key", uri: "staging://uploads", wantErr: true},
		{name: "empty bucket", uri: "staging:///k", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bucket, key, err := staging.ParseURI(tc.uri)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURI: %v", err)
			}
			if bucket != tc.bucket || key != tc.key {
				t.Fatalf("got %s/%s, want %s/%s", bucket, key, tc.bucket, tc.key)
			}
		})
	}
}
