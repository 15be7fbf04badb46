package ffmpeg

// Real processes (sh, cat, sleep) stand in for ffmpeg so no binary is required.

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"
)

// requireSh skips tests that script a fake ffmpeg in sh.
func requireSh(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
}

func TestRunOutput(t *testing.T) {
	t.Parallel()
	requireSh(t)

	tests := []struct {
		name    string
		script  string
		want    string
		wantErr bool
	}{
		{name: "stderr captured", script: "echo '[AVFoundation] devices' >&2", want: "[AVFoundation] devices"},
		{name: "stdout ignored", script: "echo banner", want: ""},
		{name: "output kept on failure", script: "echo 'Input/output error' >&2; exit 1", want: "Input/output error", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := RunOutput(context.Background(), "sh", []string{"-c", tt.script})
			if (err != nil) != tt.wantErr {
				t.Fatalf("RunOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if strings.TrimSpace(got) != tt.want {
				t.Errorf("RunOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunOutput_MissingBinary(t *testing.T) {
	t.Parallel()

	out, err := RunOutput(context.Background(), "/nonexistent/ffmpeg", nil)
	if err == nil || out != "" {
		t.Errorf("RunOutput() = %q, %v; want empty output and an error", out, err)
	}
}

func TestRunStdout(t *testing.T) {
	t.Parallel()
	requireSh(t)

	out, err := RunStdout(context.Background(), "sh", []string{"-c", "printf pcm; echo noise >&2"})
	if err != nil {
		t.Fatalf("RunStdout() error = %v", err)
	}
	if string(out) != "pcm" {
		t.Errorf("RunStdout() = %q, want %q", out, "pcm")
	}

	_, err = RunStdout(context.Background(), "sh", []string{"-c", "echo 'Invalid data found' >&2; exit 1"})
	if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("RunStdout() error = %v, want it to carry stderr", err)
	}
}

func TestTail(t *testing.T) {
	t.Parallel()

	if got := tail("  short  "); got != "short" {
		t.Errorf("tail(short) = %q", got)
	}
	got := tail(strings.Repeat("x", maxStderrInError) + "END")
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "END") || len(got) != maxStderrInError+3 {
		t.Errorf("tail(long) has length %d, prefix %q", len(got), got[:5])
	}
}

// ---------------------------------------------------------------------------
// RunGraceful
// ---------------------------------------------------------------------------

func TestRunGraceful_Exit(t *testing.T) {
	t.Parallel()
	requireSh(t)

	if err := RunGraceful(context.Background(), "sh", []string{"-c", "exit 0"}, time.Second); err != nil {
		t.Errorf("RunGraceful(exit 0) error = %v", err)
	}

	err := RunGraceful(context.Background(), "sh", []string{"-c", "echo 'Device busy' >&2; exit 1"}, time.Second)
	if err == nil || !strings.Contains(err.Error(), "Device busy") {
		t.Errorf("RunGraceful(exit 1) error = %v, want it to carry stderr", err)
	}

	if err := RunGraceful(context.Background(), "/nonexistent/ffmpeg", nil, time.Second); err == nil {
		t.Error("RunGraceful(missing binary) error = nil")
	}
}

func TestRunGraceful_QuitOnCancel(t *testing.T) {
	t.Parallel()
	requireSh(t)

	// Exits non-zero once stdin closes, like ffmpeg stopped mid-stream.
	script := `cat >/dev/null; exit 255`

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunGraceful(ctx, "sh", []string{"-c", script}, 5*time.Second) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunGraceful() error = %v, want nil after quit", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("RunGraceful() did not return after cancellation")
	}
}

func TestRunGraceful_KillAfterTimeout(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("requires sleep")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not found in PATH")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunGraceful(ctx, "sleep", []string{"10"}, 100*time.Millisecond) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("RunGraceful() error = %v, want ErrTimeout", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("RunGraceful() did not kill the process")
	}
}
