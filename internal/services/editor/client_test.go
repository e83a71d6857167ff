package editor_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"tapedeck/internal/logging"
	"tapedeck/internal/services"
	"tapedeck/internal/services/editor"
	"tapedeck/internal/testsupport"
)

type fakeExecutor struct {
	t       *testing.T
	calls   [][]string
	err     error
	noWrite bool
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	f.calls = append(f.calls, append([]string{binary}, args...))
	if f.err != nil {
		return f.err
	}
	if !f.noWrite {
		for i, arg := range args {
			if arg == "--output" && i+1 < len(args) {
				testsupport.WriteFile(f.t, args[i+1], []byte("rendered"))
			}
		}
	}
	return nil
}

func newClient(t *testing.T, exec *fakeExecutor) *editor.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithEditorBinary("resolve-render"))
	return editor.New(cfg, logging.NewNop(), editor.WithExecutor(exec))
}

func TestProcessBuildsProfileArgs(t *testing.T) {
	dir := t.TempDir()
	input := testsupport.TouchMedia(t, dir, "family_vhs.avi")
	outDir := filepath.Join(t.TempDir(), "output")

	exec := &fakeExecutor{t: t}
	client := newClient(t, exec)

	outputs, err := client.Process(context.Background(), []string{input}, "vhs", outDir, "job-1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected one output, got %v", outputs)
	}
	if filepath.Base(outputs[0]) != "family_vhs_processed.mp4" {
		t.Fatalf("unexpected output name: %s", outputs[0])
	}

	call := exec.calls[0]
	if call[0] != "resolve-render" || call[1] != "render" {
		t.Fatalf("unexpected command: %v", call)
	}
	joined := strings.Join(call, " ")
	for _, want := range []string{"--preset VHS_Cleanup", "--deinterlace", "--denoise high", "--stabilize", "--audio-enhance"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, call)
		}
	}
}

func TestProcessFailsWhenToolErrors(t *testing.T) {
	dir := t.TempDir()
	input := testsupport.TouchMedia(t, dir, "tape.avi")

	exec := &fakeExecutor{t: t, err: errors.New("render crashed")}
	client := newClient(t, exec)

	_, err := client.Process(context.Background(), []string{input}, "minidv", filepath.Join(t.TempDir(), "out"), "job-2")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestProcessFailsWhenOutputMissing(t *testing.T) {
	dir := t.TempDir()
	input := testsupport.TouchMedia(t, dir, "tape.avi")

	exec := &fakeExecutor{t: t, noWrite: true}
	client := newClient(t, exec)

	_, err := client.Process(context.Background(), []string{input}, "hi8", filepath.Join(t.TempDir(), "out"), "job-3")
	if err == nil {
		t.Fatal("expected error when render produces nothing")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestProcessRequiresBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := editor.New(cfg, logging.NewNop(), editor.WithExecutor(&fakeExecutor{t: t}))
	if client.Configured() {
		t.Fatal("client should not report configured without a binary")
	}

	_, err := client.Process(context.Background(), []string{"a.avi"}, "vhs", t.TempDir(), "job-4")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
