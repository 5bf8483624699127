package tools

import (
	"context"
	"math"
	"testing"
)

type fakeRunner struct {
	command string
	args    []string
	stdout  string
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, _ RunOptions) (RunResult, error) {
	f.command = command
	f.args = args
	return RunResult{Stdout: []byte(f.stdout)}, nil
}

func TestProbeDurationUsesInjectedPath(t *testing.T) {
	runner := &fakeRunner{stdout: "12.480000\n"}
	dur, err := ProbeDuration(context.Background(), runner, "/opt/ffprobe", "/media/narration.mp3")
	if err != nil {
		t.Fatalf("ProbeDuration: %v", err)
	}
	if math.Abs(dur-12.48) > 1e-9 {
		t.Fatalf("duration = %v, want 12.48", dur)
	}
	if runner.command != "/opt/ffprobe" {
		t.Fatalf("ran %q, want the injected ffprobe path", runner.command)
	}
	if runner.args[len(runner.args)-1] != "/media/narration.mp3" {
		t.Fatalf("last arg = %q, want the media path", runner.args[len(runner.args)-1])
	}
}

func TestProbeDurationRequiresFFprobe(t *testing.T) {
	runner := &fakeRunner{}
	if _, err := ProbeDuration(context.Background(), runner, "", "/media/a.mp3"); err == nil {
		t.Fatalf("expected error when ffprobe is unresolved")
	}
	if runner.command != "" {
		t.Fatalf("no subprocess should run without ffprobe")
	}
}
