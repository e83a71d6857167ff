package queue_test

import (
	"testing"

	"tapedeck/internal/queue"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  queue.Status
		ok    bool
	}{
		{"pending", queue.StatusPending, true},
		{" Processing ", queue.StatusProcessing, true},
		{"COMPLETED", queue.StatusCompleted, true},
		{"failed", queue.StatusFailed, true},
		{"", "", false},
		{"archived", "", false},
	}
	for _, tc := range cases {
		got, ok := queue.ParseStatus(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseStatus(%q): ok=%v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestNeedsDetection(t *testing.T) {
	cases := []struct {
		hint string
		want bool
	}{
		{"", true},
		{"auto", true},
		{" AUTO ", true},
		{"VHS", false},
		{"MiniDV", false},
	}
	for _, tc := range cases {
		job := &queue.Job{FormatHint: tc.hint}
		if got := job.NeedsDetection(); got != tc.want {
			t.Fatalf("NeedsDetection with hint %q = %v, want %v", tc.hint, got, tc.want)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if queue.StatusPending.IsTerminal() || queue.StatusProcessing.IsTerminal() {
		t.Fatal("pending/processing must not be terminal")
	}
	if !queue.StatusCompleted.IsTerminal() || !queue.StatusFailed.IsTerminal() {
		t.Fatal("completed/failed must be terminal")
	}
}

func TestJobCloneIsIndependent(t *testing.T) {
	job := &queue.Job{
		ID:         "job-1",
		SourceRefs: []string{"a.avi"},
		Outputs:    []string{"out.mp4"},
		Metadata:   map[string]string{"k": "v"},
		Options:    queue.Options{Custom: map[string]any{"x": 1}},
	}
	clone := job.Clone()
	clone.SourceRefs[0] = "mutated"
	clone.Outputs[0] = "mutated"
	clone.Metadata["k"] = "mutated"
	clone.Options.Custom["x"] = 2

	if job.SourceRefs[0] != "a.avi" || job.Outputs[0] != "out.mp4" {
		t.Fatal("clone shares slices with original")
	}
	if job.Metadata["k"] != "v" {
		t.Fatal("clone shares metadata map with original")
	}
	if job.Options.Custom["x"] != 1 {
		t.Fatal("clone shares options map with original")
	}
}
