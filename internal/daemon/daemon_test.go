package daemon_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tapedeck/internal/api"
	"tapedeck/internal/daemon"
	"tapedeck/internal/detect"
	"tapedeck/internal/logging"
	"tapedeck/internal/pipeline"
	"tapedeck/internal/queue"
	"tapedeck/internal/testsupport"
)

type fakeTransfer struct{ t *testing.T }

func (f *fakeTransfer) Acquire(ctx context.Context, refs []string, destDir, jobID string) ([]string, error) {
	acquired := make([]string, 0, len(refs))
	for _, ref := range refs {
		path := filepath.Join(destDir, filepath.Base(ref))
		testsupport.WriteFile(f.t, path, []byte("capture"))
		acquired = append(acquired, path)
	}
	return acquired, nil
}

func (f *fakeTransfer) Publish(ctx context.Context, paths []string, destFolder, jobID string) ([]string, error) {
	refs := make([]string, 0, len(paths))
	for _, path := range paths {
		refs = append(refs, "testremote:"+destFolder+"/"+filepath.Base(path))
	}
	return refs, nil
}

type fakeTransform struct{ t *testing.T }

func (f *fakeTransform) Process(ctx context.Context, files []string, format, outDir, jobID string) ([]string, error) {
	outputs := make([]string, 0, len(files))
	for _, file := range files {
		base := filepath.Base(file)
		path := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+"_processed.mp4")
		testsupport.WriteFile(f.t, path, []byte("processed"))
		outputs = append(outputs, path)
	}
	return outputs, nil
}

type fakeEnhancer struct{}

func (fakeEnhancer) Enabled() bool { return false }

func (fakeEnhancer) Enhance(ctx context.Context, files []string, outDir, jobID string) ([]string, error) {
	return nil, nil
}

type fakeClassifier struct{}

func (fakeClassifier) Classify(ctx context.Context, paths []string) (detect.Result, error) {
	return detect.Result{Format: detect.FormatVHS, Confidence: 1.5, FilesAnalyzed: len(paths)}, nil
}

func newDaemon(t *testing.T) (*daemon.Daemon, *queue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	// Jobs in these tests arrive after the loop's first pass, so poll fast
	// enough that the next pass lands well inside the wait deadline.
	cfg.Workflow.QueuePollInterval = 1
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	manager := pipeline.NewManager(cfg, pipeline.Deps{
		Store:      store,
		Transfer:   &fakeTransfer{t: t},
		Primary:    &fakeTransform{t: t},
		Fallback:   &fakeTransform{t: t},
		Enhancer:   fakeEnhancer{},
		Classifier: fakeClassifier{},
	}, logging.NewNop())

	d, err := daemon.New(cfg, store, manager, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store
}

func TestDaemonServesQueueOverHTTP(t *testing.T) {
	d, _ := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	client := api.NewClient(d.APIAddr())

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || !status.Pipeline.Running {
		t.Fatalf("daemon should report running: %+v", status)
	}
	if len(status.Tools) == 0 {
		t.Fatal("status should include tool availability")
	}

	created, err := client.Add(ctx, api.IntakeRequest{SourceRefs: []string{"captures/tape.avi"}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	var final *api.JobView
	for time.Now().Before(deadline) {
		final, err = client.Describe(ctx, created.ID)
		if err != nil {
			t.Fatalf("Describe: %v", err)
		}
		if final != nil && (final.Status == "completed" || final.Status == "failed") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if final == nil || final.Status != "completed" {
		t.Fatalf("job did not complete over HTTP: %+v", final)
	}
	if len(final.Outputs) == 0 {
		t.Fatalf("completed job missing outputs: %+v", final)
	}

	jobs, err := client.List(ctx, "completed")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one completed job, got %d", len(jobs))
	}
}

func TestDaemonProcessingToggle(t *testing.T) {
	d, _ := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	client := api.NewClient(d.APIAddr())

	if err := client.StopProcessing(ctx); err != nil {
		t.Fatalf("StopProcessing: %v", err)
	}
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Pipeline.Running {
		t.Fatal("pipeline should be paused")
	}

	if err := client.StartProcessing(ctx); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	status, err = client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Pipeline.Running {
		t.Fatal("pipeline should be running again")
	}
}

func TestDaemonRejectsUnknownJobActions(t *testing.T) {
	d, _ := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	client := api.NewClient(d.APIAddr())

	job, err := client.Describe(ctx, "no-such-id")
	if err != nil || job != nil {
		t.Fatalf("Describe unknown = (%+v, %v), want (nil, nil)", job, err)
	}
	removed, err := client.Remove(ctx, "no-such-id")
	if err != nil || removed {
		t.Fatalf("Remove unknown = (%v, %v)", removed, err)
	}
	if _, err := client.Retry(ctx, "no-such-id"); err == nil {
		t.Fatal("retry of unknown job should error")
	}
}

func TestDaemonSecondStartBlocked(t *testing.T) {
	d, _ := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon should fail")
	}
}
