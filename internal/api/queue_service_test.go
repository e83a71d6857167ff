package api_test

import (
	"context"
	"testing"

	"tapedeck/internal/api"
	"tapedeck/internal/queue"
	"tapedeck/internal/testsupport"
)

func newService(t *testing.T) (*api.QueueService, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return api.NewQueueService(store), store
}

func TestAddAndDescribe(t *testing.T) {
	svc, _ := newService(t)

	created, err := svc.Add(context.Background(), api.IntakeRequest{
		SourceRefs: []string{"captures/tape_01.avi"},
		Format:     "vhs",
		Enhance:    true,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if created.Status != "pending" || created.Format != "vhs" || !created.Enhance {
		t.Fatalf("unexpected created view: %+v", created)
	}
	if created.CreatedAt == "" {
		t.Fatal("createdAt missing from view")
	}

	got, err := svc.Describe(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("Describe returned %+v", got)
	}

	missing, err := svc.Describe(context.Background(), "no-such-id")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown id, got (%+v, %v)", missing, err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	a := testsupport.SeedJob(t, store, "a.avi")
	testsupport.SeedJob(t, store, "b.avi")
	if _, err := store.Transition(ctx, a.ID, queue.StatusProcessing, queue.Transition{}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	pending, err := svc.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending job, got %d", len(pending))
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two jobs, got %d", len(all))
	}
}

func TestRetryAndRemove(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	job := testsupport.SeedJob(t, store, "a.avi")
	if _, err := store.Transition(ctx, job.ID, queue.StatusProcessing, queue.Transition{}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := store.Transition(ctx, job.ID, queue.StatusFailed, queue.Transition{Error: "boom"}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	updated, err := svc.Retry(ctx, job.ID)
	if err != nil || updated != 1 {
		t.Fatalf("Retry = (%d, %v), want (1, nil)", updated, err)
	}

	removed, err := svc.Remove(ctx, job.ID)
	if err != nil || !removed {
		t.Fatalf("Remove = (%v, %v)", removed, err)
	}
	removed, err = svc.Remove(ctx, job.ID)
	if err != nil || removed {
		t.Fatalf("second Remove should be a no-op, got (%v, %v)", removed, err)
	}
}
