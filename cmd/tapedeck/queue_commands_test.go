package main

import (
	"encoding/json"
	"strings"
	"testing"

	"tapedeck/internal/api"
)

func TestAddAndListRoundTrip(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "add", "captures/family_reunion_1992.avi", "--format", "vhs", "--priority", "3")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Queued job ")
	requireContains(t, out, "Daemon is not running")

	out, _, err = runCLI(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Family Reunion 1992")
	requireContains(t, out, "vhs")
	requireContains(t, out, "pending")
}

func TestAddEmitsJSON(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "add", "captures/tape.avi", "--json")
	if err != nil {
		t.Fatalf("add --json: %v", err)
	}
	var resp api.JobResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if resp.Job.ID == "" || resp.Job.Status != "pending" {
		t.Fatalf("unexpected job: %+v", resp.Job)
	}
}

func TestQueueShowPrintsDetail(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "add", "captures/tape.avi", "--json", "--enhance", "--output", "Archive/1990s")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	var resp api.JobResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v", err)
	}

	out, _, err = runCLI(t, configPath, "queue", "show", resp.Job.ID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "ID:         "+resp.Job.ID)
	requireContains(t, out, "Enhance:    yes")
	requireContains(t, out, "Output:     Archive/1990s")
	requireContains(t, out, "captures/tape.avi")
}

func TestQueueShowUnknownJobFails(t *testing.T) {
	configPath := writeTestConfig(t)

	_, _, err := runCLI(t, configPath, "queue", "show", "no-such-id")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestQueueRemove(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "add", "captures/tape.avi", "--json")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	var resp api.JobResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v", err)
	}

	out, _, err = runCLI(t, configPath, "queue", "remove", resp.Job.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	requireContains(t, out, "Removed job "+resp.Job.ID)

	out, _, err = runCLI(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueRetryWithoutFailedJobs(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "queue", "retry")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	requireContains(t, out, "Retried 0 failed job(s)")
}

func TestQueueClear(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, _, err := runCLI(t, configPath, "add", "captures/one.avi"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := runCLI(t, configPath, "add", "captures/two.avi"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, _, err := runCLI(t, configPath, "queue", "clear")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	requireContains(t, out, "Cleared 2 job(s)")
}

func TestQueueClearRejectsConflictingFlags(t *testing.T) {
	configPath := writeTestConfig(t)

	_, _, err := runCLI(t, configPath, "queue", "clear", "--completed", "--failed")
	if err == nil {
		t.Fatal("expected flag conflict error")
	}
}

func TestQueuePruneKeepsRecentJobs(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, _, err := runCLI(t, configPath, "add", "captures/tape.avi"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, _, err := runCLI(t, configPath, "queue", "prune", "--days", "30")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Pruned 0 job(s)")
}

func TestQueueStatsEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "queue", "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueListFiltersByStatus(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, _, err := runCLI(t, configPath, "add", "captures/tape.avi"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, _, err := runCLI(t, configPath, "queue", "list", "--status", "failed")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}
