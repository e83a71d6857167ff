package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tapedeck/internal/logging"
	"tapedeck/internal/queue"
	"tapedeck/internal/testsupport"
)

func TestAddAssignsDefaultsAndPersists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.Add(ctx, queue.NewJobInput{SourceRefs: []string{"capture_001.avi"}})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}
	if job.Priority != queue.DefaultPriority {
		t.Fatalf("expected default priority, got %d", job.Priority)
	}
	if job.FormatHint != queue.FormatAuto {
		t.Fatalf("expected auto format hint, got %q", job.FormatHint)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil || fetched.SourceRefs[0] != "capture_001.avi" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
}

func TestAddValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Add(ctx, queue.NewJobInput{}); !errors.Is(err, queue.ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob for empty refs, got %v", err)
	}
	if _, err := store.Add(ctx, queue.NewJobInput{SourceRefs: []string{"   "}}); !errors.Is(err, queue.ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob for blank refs, got %v", err)
	}
	if _, err := store.Add(ctx, queue.NewJobInput{Manual: true}); !errors.Is(err, queue.ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob for manual job without link, got %v", err)
	}
	if _, err := store.Add(ctx, queue.NewJobInput{Manual: true, SourceLink: "https://drive.example/folder"}); err != nil {
		t.Fatalf("manual job with link should be accepted: %v", err)
	}
}

func TestNextPendingOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	priorities := []int{5, 1, 5, 3}
	ids := make([]string, 0, len(priorities))
	for i, p := range priorities {
		p := p
		job, err := store.Add(ctx, queue.NewJobInput{
			SourceRefs: []string{fmt.Sprintf("capture_%02d.avi", i)},
			Priority:   &p,
		})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	pending, err := store.NextPending(ctx, 0)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	want := []string{ids[1], ids[3], ids[0], ids[2]}
	if len(pending) != len(want) {
		t.Fatalf("expected %d pending jobs, got %d", len(want), len(pending))
	}
	for i, job := range pending {
		if job.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], job.ID)
		}
	}

	limited, err := store.NextPending(ctx, 2)
	if err != nil {
		t.Fatalf("NextPending with limit failed: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != ids[1] || limited[1].ID != ids[3] {
		t.Fatalf("unexpected limited slice: %#v", limited)
	}
}

func TestTransitionLifecycleTimestamps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.SeedJob(t, store)

	processing, err := store.Transition(ctx, job.ID, queue.StatusProcessing, queue.Transition{})
	if err != nil {
		t.Fatalf("transition to processing failed: %v", err)
	}
	if processing.StartedAt == nil {
		t.Fatal("expected started_at to be stamped")
	}
	started := *processing.StartedAt

	failed, err := store.Transition(ctx, job.ID, queue.StatusFailed, queue.Transition{Error: "editor crashed"})
	if err != nil {
		t.Fatalf("transition to failed failed: %v", err)
	}
	if failed.FailedAt == nil {
		t.Fatal("expected failed_at to be stamped")
	}
	if failed.Error != "editor crashed" {
		t.Fatalf("expected error message, got %q", failed.Error)
	}

	if _, err := store.RetryFailed(ctx, job.ID); err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	again, err := store.Transition(ctx, job.ID, queue.StatusProcessing, queue.Transition{})
	if err != nil {
		t.Fatalf("second transition to processing failed: %v", err)
	}
	if !again.StartedAt.Equal(started) {
		t.Fatalf("started_at rewritten: %v vs %v", again.StartedAt, started)
	}
	if again.FailedAt == nil {
		t.Fatal("failed_at should survive retry")
	}
	if again.Metadata["last_error"] != "editor crashed" {
		t.Fatalf("expected previous error recorded in metadata, got %#v", again.Metadata)
	}
}

func TestTransitionUnknownJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Transition(context.Background(), "no-such-job", queue.StatusProcessing, queue.Transition{})
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompletionRequiresOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.SeedJob(t, store)
	if _, err := store.Transition(ctx, job.ID, queue.StatusProcessing, queue.Transition{}); err != nil {
		t.Fatalf("transition to processing failed: %v", err)
	}

	if _, err := store.Transition(ctx, job.ID, queue.StatusCompleted, queue.Transition{}); !errors.Is(err, queue.ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob completing without outputs, got %v", err)
	}

	done, err := store.Transition(ctx, job.ID, queue.StatusCompleted, queue.Transition{
		Outputs:    []string{"testremote:Converted/capture_001.mp4"},
		FormatHint: "VHS",
	})
	if err != nil {
		t.Fatalf("completion with outputs failed: %v", err)
	}
	if done.CompletedAt == nil || len(done.Outputs) != 1 || done.FormatHint != "VHS" {
		t.Fatalf("unexpected completed job: %#v", done)
	}
}

func TestListByStatusOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.SeedJob(t, store, "a.avi")
	second := testsupport.SeedJob(t, store, "b.avi")

	// Touch the first job so it becomes the most recently updated.
	if _, err := store.Transition(ctx, first.ID, queue.StatusPending, queue.Transition{Metadata: map[string]string{"note": "touched"}}); err != nil {
		t.Fatalf("touch transition failed: %v", err)
	}

	jobs, err := store.ListByStatus(ctx, queue.StatusPending, 0)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected two pending jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID || jobs[1].ID != second.ID {
		t.Fatalf("expected most recently updated first, got %s then %s", jobs[0].ID, jobs[1].ID)
	}
}

func TestGetReturnsDeepCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.SeedJob(t, store)

	copy1, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	copy1.SourceRefs[0] = "mutated"
	if copy1.Metadata == nil {
		copy1.Metadata = map[string]string{}
	}
	copy1.Metadata["rogue"] = "yes"

	copy2, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if copy2.SourceRefs[0] == "mutated" {
		t.Fatal("store state mutated through returned copy")
	}
	if _, ok := copy2.Metadata["rogue"]; ok {
		t.Fatal("metadata mutated through returned copy")
	}
}

func TestCorruptPrimaryRecoversFromBackup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	keeper := testsupport.SeedJob(t, store, "keeper.avi")
	// A second save pushes the document containing keeper into the backup.
	testsupport.SeedJob(t, store, "latest.avi")

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt primary: %v", err)
	}

	reopened, err := queue.OpenPath(store.Path(), logging.NewNop())
	if err != nil {
		t.Fatalf("OpenPath after corruption failed: %v", err)
	}
	jobs, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != keeper.ID {
		t.Fatalf("expected backup contents (keeper only), got %d jobs", len(jobs))
	}
}

func TestRecoveryPreservesBackupAndCorruptDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	keeper := testsupport.SeedJob(t, store, "keeper.avi")
	testsupport.SeedJob(t, store, "latest.avi")

	corruptBytes := []byte("{not json")
	if err := os.WriteFile(store.Path(), corruptBytes, 0o644); err != nil {
		t.Fatalf("corrupt primary: %v", err)
	}

	reopened, err := queue.OpenPath(store.Path(), logging.NewNop())
	if err != nil {
		t.Fatalf("OpenPath after corruption failed: %v", err)
	}

	// The backup must remain last-known-good after recovery: restoring from
	// it must never first overwrite it with the unreadable primary.
	backup := filepath.Join(filepath.Dir(store.Path()), "queue_backup.json")
	backupData, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !json.Valid(backupData) {
		t.Fatal("backup no longer decodes after recovery")
	}

	setAside, err := os.ReadFile(store.Path() + ".corrupt")
	if err != nil {
		t.Fatalf("read set-aside document: %v", err)
	}
	if string(setAside) != string(corruptBytes) {
		t.Fatalf("set-aside document does not hold the corrupt bytes: %q", setAside)
	}

	jobs, err := reopened.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != keeper.ID {
		t.Fatalf("expected backup contents (keeper only), got %d jobs", len(jobs))
	}
}

func TestCorruptPrimaryAndBackupResetsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.SeedJob(t, store)
	testsupport.SeedJob(t, store)

	backup := filepath.Join(filepath.Dir(store.Path()), "queue_backup.json")
	if err := os.WriteFile(store.Path(), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("corrupt primary: %v", err)
	}
	if err := os.WriteFile(backup, []byte("[1,2,3]"), 0o644); err != nil {
		t.Fatalf("corrupt backup: %v", err)
	}

	reopened, err := queue.OpenPath(store.Path(), logging.NewNop())
	if err != nil {
		t.Fatalf("OpenPath after double corruption failed: %v", err)
	}
	jobs, err := reopened.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty queue after reset, got %d jobs", len(jobs))
	}
}

func TestStrayTempFileDoesNotShadowPrimary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	seeded := testsupport.SeedJob(t, store, "survivor.avi")

	// A crash between writing the temp file and the rename leaves a partial
	// .tmp behind. It must never be read in place of the primary.
	tmp := store.Path() + ".tmp"
	if err := os.WriteFile(tmp, []byte(`{"jobs": tru`), 0o644); err != nil {
		t.Fatalf("plant stray temp file: %v", err)
	}

	reopened, err := queue.OpenPath(store.Path(), logging.NewNop())
	if err != nil {
		t.Fatalf("OpenPath with stray temp file failed: %v", err)
	}
	jobs, err := reopened.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != seeded.ID {
		t.Fatalf("expected the previously saved document, got %d jobs", len(jobs))
	}

	// The next save reclaims the stray file through the normal write path.
	testsupport.SeedJob(t, reopened, "next.avi")
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatalf("stray temp file should be gone after a save, stat err = %v", err)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.SeedJob(t, store)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.SeedJob(t, store, "stale.avi")
	fresh := testsupport.SeedJob(t, store, "fresh.avi")
	for _, id := range []string{stale.ID, fresh.ID} {
		if _, err := store.Transition(ctx, id, queue.StatusProcessing, queue.Transition{}); err != nil {
			t.Fatalf("transition failed: %v", err)
		}
	}

	// Only jobs updated before the cutoff are reclaimed.
	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing reclaimed with old cutoff, got %d", count)
	}

	count, err = store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected both jobs reclaimed, got %d", count)
	}

	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected two pending jobs after reclaim, got %d", len(pending))
	}
}

func TestFailProcessingOnShutdown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.SeedJob(t, store)
	if _, err := store.Transition(ctx, job.ID, queue.StatusProcessing, queue.Transition{}); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	count, err := store.FailProcessing(ctx, "")
	if err != nil {
		t.Fatalf("FailProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one job failed, got %d", count)
	}
	updated, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.Status != queue.StatusFailed || updated.Error != queue.DaemonStopReason {
		t.Fatalf("unexpected job after shutdown fail: %#v", updated)
	}
}

func TestStatsAggregation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	done := testsupport.SeedJob(t, store, "done.avi")
	if _, err := store.Transition(ctx, done.ID, queue.StatusProcessing, queue.Transition{}); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if _, err := store.Transition(ctx, done.ID, queue.StatusCompleted, queue.Transition{Outputs: []string{"out.mp4"}}); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	bad := testsupport.SeedJob(t, store, "bad.avi")
	if _, err := store.Transition(ctx, bad.ID, queue.StatusFailed, queue.Transition{Error: "boom"}); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	testsupport.SeedJob(t, store, "waiting.avi")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 1 || stats.Completed != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if stats.MinProcessingSeconds > stats.MaxProcessingSeconds {
		t.Fatalf("min/max inverted: %#v", stats)
	}
}

func TestRemoveAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.SeedJob(t, store, "a.avi")
	b := testsupport.SeedJob(t, store, "b.avi")
	if _, err := store.Transition(ctx, b.ID, queue.StatusFailed, queue.Transition{Error: "boom"}); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	removed, err := store.Remove(ctx, a.ID)
	if err != nil || !removed {
		t.Fatalf("Remove failed: removed=%v err=%v", removed, err)
	}
	removed, err = store.Remove(ctx, a.ID)
	if err != nil || removed {
		t.Fatalf("expected second remove to be a no-op: removed=%v err=%v", removed, err)
	}

	cleared, err := store.Clear(ctx, queue.StatusFailed)
	if err != nil || cleared != 1 {
		t.Fatalf("Clear failed: cleared=%d err=%v", cleared, err)
	}
	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty queue, got %d jobs", len(jobs))
	}
}

func TestRemoveOlderThan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	old := testsupport.SeedJob(t, store, "old.avi")
	if _, err := store.Transition(ctx, old.ID, queue.StatusFailed, queue.Transition{Error: "boom"}); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	testsupport.SeedJob(t, store, "active.avi")

	// Terminal jobs older than the cutoff go; pending jobs stay regardless.
	removed, err := store.RemoveOlderThan(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("RemoveOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != queue.StatusPending {
		t.Fatalf("unexpected survivors: %#v", jobs)
	}
}
