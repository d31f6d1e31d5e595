package testsupport

import (
	"testing"

	"vidgate/internal/config"
	"vidgate/internal/queue"
)

// MustOpenStore opens a queue store for tests and closes it on cleanup.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close queue store: %v", err)
		}
	})
	return store
}
