package capture

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/alnah/go-medbot/internal/ffmpeg"
)

// ffmpegRunner runs FFmpeg commands.
type ffmpegRunner interface {
	RunGraceful(ctx context.Context, ffmpegPath string, args []string, gracefulTimeout time.Duration) error
	RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error)
	RunStdout(ctx context.Context, ffmpegPath string, args []string) ([]byte, error)
}

// pactlRunner lists PulseAudio sources.
type pactlRunner interface {
	ListSources(ctx context.Context) (string, error)
}

// scratchFS manages the temporary directory holding a compressed recording.
type scratchFS interface {
	MkdirTemp(dir, pattern string) (string, error)
	RemoveAll(path string) error
}

// Compile-time interface verification.
var (
	_ ffmpegRunner = defaultFFmpegRunner{}
	_ pactlRunner  = defaultPactlRunner{}
	_ scratchFS    = osScratchFS{}
)

// defaultFFmpegRunner implements ffmpegRunner using the ffmpeg package.
type defaultFFmpegRunner struct{}

func (defaultFFmpegRunner) RunGraceful(ctx context.Context, ffmpegPath string, args []string, gracefulTimeout time.Duration) error {
	return ffmpeg.RunGraceful(ctx, ffmpegPath, args, gracefulTimeout)
}

func (defaultFFmpegRunner) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return ffmpeg.RunOutput(ctx, ffmpegPath, args)
}

func (defaultFFmpegRunner) RunStdout(ctx context.Context, ffmpegPath string, args []string) ([]byte, error) {
	return ffmpeg.RunStdout(ctx, ffmpegPath, args)
}

// defaultPactlRunner implements pactlRunner using exec.CommandContext.
type defaultPactlRunner struct{}

func (defaultPactlRunner) ListSources(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sources", "short").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// osScratchFS implements scratchFS using the os package.
type osScratchFS struct{}

func (osScratchFS) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

func (osScratchFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
