// Package ffmpeg locates the FFmpeg binary and runs it for compressed audio
// capture, device discovery and decoding back to PCM.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// maxStderrInError bounds how much FFmpeg diagnostic output is embedded in errors.
const maxStderrInError = 2048

// RunGraceful runs FFmpeg until it exits or ctx is canceled. On cancellation
// it sends 'q' on stdin so FFmpeg finalizes the container, then kills the
// process if it is still running after timeout. Exiting after 'q' is success
// whatever the exit status.
func RunGraceful(ctx context.Context, ffmpegPath string, args []string, timeout time.Duration) error {
	cmd := exec.Command(ffmpegPath, args...) // #nosec G204 -- args are built internally
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		return failure(err, &stderr)
	case <-ctx.Done():
	}

	_, _ = io.WriteString(stdin, "q")
	_ = stdin.Close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-exited:
		return nil
	case <-timer.C:
		_ = cmd.Process.Kill()
		<-exited
		return fmt.Errorf("%w: killed after %v", ErrTimeout, timeout)
	}
}

// RunOutput runs FFmpeg and returns its stderr, where it prints device lists
// and version banners. The output is returned even when FFmpeg exits non-zero,
// as it does for -list_devices.
func RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...) // #nosec G204 -- args are built internally
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// RunStdout runs FFmpeg and returns what it wrote to stdout ("pipe:1").
func RunStdout(ctx context.Context, ffmpegPath string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...) // #nosec G204 -- args are built internally
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := failure(cmd.Run(), &stderr); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// failure folds the tail of FFmpeg's stderr into a run error.
func failure(err error, stderr *bytes.Buffer) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ffmpeg: %w\nOutput: %s", err, tail(stderr.String()))
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxStderrInError {
		return s
	}
	return "..." + s[len(s)-maxStderrInError:]
}
