package testsupport

import (
	"context"
	"testing"

	"tapedeck/internal/config"
	"tapedeck/internal/logging"
	"tapedeck/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedJob adds a pending job for tests using the provided store.
func SeedJob(t testing.TB, store *queue.Store, refs ...string) *queue.Job {
	t.Helper()

	if len(refs) == 0 {
		refs = []string{"capture_001.avi"}
	}
	job, err := store.Add(context.Background(), queue.NewJobInput{SourceRefs: refs})
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return job
}
