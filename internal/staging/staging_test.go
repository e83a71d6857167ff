package staging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tapedeck/internal/logging"
	"tapedeck/internal/staging"
)

func TestWorkspaceLayout(t *testing.T) {
	workDir := t.TempDir()

	ws, err := staging.NewWorkspace(workDir, "abc123")
	if err != nil {
		t.Fatalf("NewWorkspace failed: %v", err)
	}
	if filepath.Base(ws.Root) != "job-abc123" {
		t.Fatalf("unexpected workspace root: %s", ws.Root)
	}
	for _, dir := range []string{ws.InputDir, ws.OutputDir, ws.EnhancedDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}

	if err := ws.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(ws.Root); !os.IsNotExist(err) {
		t.Fatalf("workspace should be gone, stat err: %v", err)
	}
}

func TestCleanStaleRemovesOldJobDirs(t *testing.T) {
	workDir := t.TempDir()

	stale := filepath.Join(workDir, "job-old")
	fresh := filepath.Join(workDir, "job-new")
	unrelated := filepath.Join(workDir, "not-a-job")
	for _, dir := range []string{stale, fresh, unrelated} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(unrelated, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := staging.CleanStale(workDir, 24*time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected cleanup errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("expected only the stale job dir removed, got %v", result.Removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh workspace should survive: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("unrelated directory should survive: %v", err)
	}
}

func TestListWorkspaces(t *testing.T) {
	workDir := t.TempDir()
	ws, err := staging.NewWorkspace(workDir, "xyz")
	if err != nil {
		t.Fatalf("NewWorkspace failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.InputDir, "tape.avi"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	dirs, err := staging.ListWorkspaces(workDir)
	if err != nil {
		t.Fatalf("ListWorkspaces failed: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "job-xyz" {
		t.Fatalf("unexpected workspaces: %v", dirs)
	}
	if dirs[0].Size == 0 {
		t.Fatal("expected nonzero workspace size")
	}
}
