package transcode_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"tapedeck/internal/logging"
	"tapedeck/internal/services"
	"tapedeck/internal/services/transcode"
	"tapedeck/internal/testsupport"
)

type fakeExecutor struct {
	t     *testing.T
	calls [][]string
	err   error
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	f.calls = append(f.calls, append([]string{binary}, args...))
	if f.err != nil {
		return f.err
	}
	// Output path is the final argument.
	testsupport.WriteFile(f.t, args[len(args)-1], []byte("transcoded"))
	return nil
}

func newClient(t *testing.T, exec *fakeExecutor) *transcode.Client {
	t.Helper()
	return transcode.New(testsupport.NewConfig(t), logging.NewNop(), transcode.WithExecutor(exec))
}

func TestProcessBuildsVHSFilterChain(t *testing.T) {
	dir := t.TempDir()
	input := testsupport.TouchMedia(t, dir, "family_vhs.avi")

	exec := &fakeExecutor{t: t}
	client := newClient(t, exec)

	outputs, err := client.Process(context.Background(), []string{input}, "vhs",
		filepath.Join(t.TempDir(), "out"), "job-1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(outputs) != 1 || filepath.Base(outputs[0]) != "family_vhs_processed.mp4" {
		t.Fatalf("unexpected outputs: %v", outputs)
	}

	joined := strings.Join(exec.calls[0], " ")
	if !strings.Contains(joined, "-vf yadif=1,hqdn3d=8:6:12:9,unsharp=5:5:0.8:3:3:0.4") {
		t.Fatalf("unexpected filter chain: %s", joined)
	}
	for _, want := range []string{"-c:v libx264", "-crf 18", "-preset slow", "-c:a aac"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
}

func TestProcessSuper8SkipsDeinterlace(t *testing.T) {
	dir := t.TempDir()
	input := testsupport.TouchMedia(t, dir, "reel.avi")

	exec := &fakeExecutor{t: t}
	client := newClient(t, exec)

	if _, err := client.Process(context.Background(), []string{input}, "super8",
		filepath.Join(t.TempDir(), "out"), "job-2"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	joined := strings.Join(exec.calls[0], " ")
	if strings.Contains(joined, "yadif") {
		t.Fatalf("progressive film should not be deinterlaced: %s", joined)
	}
	if !strings.Contains(joined, "hqdn3d=4:3:6:4.5") {
		t.Fatalf("expected medium denoise for super8: %s", joined)
	}
}

func TestProcessFailsWhenFFmpegErrors(t *testing.T) {
	dir := t.TempDir()
	input := testsupport.TouchMedia(t, dir, "tape.avi")

	exec := &fakeExecutor{t: t, err: errors.New("ffmpeg exit 1")}
	client := newClient(t, exec)

	_, err := client.Process(context.Background(), []string{input}, "vhs",
		filepath.Join(t.TempDir(), "out"), "job-3")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
