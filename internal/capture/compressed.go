package capture

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-medbot/internal/wav"
)

// gracefulShutdownTimeout is how long FFmpeg gets to finalize the OGG container.
const gracefulShutdownTimeout = 5 * time.Second

// recordingFileName is the compressed scratch file inside the session directory.
const recordingFileName = "capture.ogg"

// Compile-time interface implementation check.
var _ Session = (*FFmpegSession)(nil)

// FFmpegSession records compressed audio through FFmpeg and decodes it to float
// samples when the session ends. It delivers no incremental chunks; all samples are
// returned by End.
type FFmpegSession struct {
	ffmpegPath string
	device     string
	goos       string
	logger     *zap.Logger

	runner ffmpegRunner
	pactl  pactlRunner
	fs     scratchFS

	constraints Constraints
	dir         string
	format      string
	input       string

	chunks   chan []float32
	cancel   context.CancelFunc
	recorded chan struct{} // closed when the FFmpeg recording process exits
	recErr   error

	endOnce sync.Once
	tail    []float32
	endErr  error
}

// FFmpegOption configures an FFmpegSession.
type FFmpegOption func(*FFmpegSession)

// WithFFmpegRunner sets the FFmpeg command runner.
func WithFFmpegRunner(r ffmpegRunner) FFmpegOption {
	return func(s *FFmpegSession) { s.runner = r }
}

// WithPactlRunner sets the pactl command runner.
func WithPactlRunner(r pactlRunner) FFmpegOption {
	return func(s *FFmpegSession) { s.pactl = r }
}

// WithScratchFS sets the scratch directory implementation.
func WithScratchFS(fs scratchFS) FFmpegOption {
	return func(s *FFmpegSession) { s.fs = fs }
}

// WithGOOS overrides the target OS used for device formats (for testing).
func WithGOOS(goos string) FFmpegOption {
	return func(s *FFmpegSession) { s.goos = goos }
}

// WithFFmpegLogger sets the session logger.
func WithFFmpegLogger(l *zap.Logger) FFmpegOption {
	return func(s *FFmpegSession) { s.logger = l }
}

// NewFFmpegSession creates a compressed capture session.
// device may be empty to auto-detect the default input:
//   - macOS: ":0" or ":DeviceName"
//   - Linux: "default", "hw:0" or a PulseAudio source name
//   - Windows: "Microphone (Realtek High Definition Audio)"
func NewFFmpegSession(ffmpegPath, device string, opts ...FFmpegOption) *FFmpegSession {
	s := &FFmpegSession{
		ffmpegPath: ffmpegPath,
		device:     device,
		goos:       runtime.GOOS,
		logger:     zap.NewNop(),
		runner:     defaultFFmpegRunner{},
		pactl:      defaultPactlRunner{},
		fs:         osScratchFS{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire resolves the input device and prepares the scratch directory.
func (s *FFmpegSession) Acquire(ctx context.Context, c Constraints) error {
	if s.ffmpegPath == "" {
		return fmt.Errorf("ffmpeg path is empty: %w", ErrUnsupportedEnvironment)
	}

	finder := ffmpegDeviceFinder{ffmpegPath: s.ffmpegPath, goos: s.goos, runner: s.runner, pactl: s.pactl}
	format, input, err := finder.input(ctx, s.device)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := s.fs.MkdirTemp("", "medbot-capture-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	s.constraints = c
	s.dir = dir
	s.format = format
	s.input = input
	if c.EchoCancellation {
		s.logger.Debug("echo cancellation not available for compressed capture")
	}
	s.logger.Debug("compressed capture acquired",
		zap.String("format", format), zap.String("input", input), zap.String("dir", dir))
	return nil
}

// Begin starts the FFmpeg recording process in the background.
// The returned channel carries no chunks; it closes when the recording process exits.
func (s *FFmpegSession) Begin(ctx context.Context) (<-chan []float32, error) {
	if s.dir == "" {
		return nil, ErrNotAcquired
	}

	recCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.chunks = make(chan []float32)
	s.recorded = make(chan struct{})

	args := buildRecordArgs(s.format, s.input, s.constraints, s.recordingPath())
	go func() {
		err := s.runner.RunGraceful(recCtx, s.ffmpegPath, args, gracefulShutdownTimeout)
		if err != nil {
			s.recErr = err
		}
		close(s.recorded)
		close(s.chunks)
	}()

	return s.chunks, nil
}

// End stops the recording, decodes it and removes the scratch directory.
func (s *FFmpegSession) End(ctx context.Context) ([]float32, error) {
	s.endOnce.Do(func() {
		s.tail, s.endErr = s.end(ctx)
	})
	return s.tail, s.endErr
}

func (s *FFmpegSession) end(ctx context.Context) ([]float32, error) {
	if s.dir == "" {
		return nil, nil
	}

	var samples []float32
	var err error
	if s.recorded != nil {
		s.cancel()
		<-s.recorded
		if s.recErr != nil {
			err = fmt.Errorf("recording: %w", s.recErr)
		} else {
			samples, err = s.decode(ctx)
		}
	}

	if rmErr := s.fs.RemoveAll(s.dir); rmErr != nil {
		err = errors.Join(err, fmt.Errorf("%w: %v", ErrDeviceRelease, rmErr))
	}
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// decode converts the compressed recording to float32 samples.
func (s *FFmpegSession) decode(ctx context.Context) ([]float32, error) {
	raw, err := s.runner.RunStdout(ctx, s.ffmpegPath, buildDecodeArgs(s.recordingPath(), s.constraints))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	samples := wav.DecodeFloat32LE(raw)
	s.logger.Debug("compressed capture decoded", zap.Int("samples", len(samples)))
	return samples, nil
}

func (s *FFmpegSession) recordingPath() string {
	return filepath.Join(s.dir, recordingFileName)
}

// buildRecordArgs constructs FFmpeg arguments for recording OGG Opus at the
// requested rate and channel count.
func buildRecordArgs(format, input string, c Constraints, output string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-f", format,
		"-i", input,
	}
	if c.MaxDuration > 0 {
		args = append(args, "-t", strconv.Itoa(int(c.MaxDuration.Seconds())))
	}
	if c.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}
	args = append(args,
		"-c:a", "libopus",
		"-ar", strconv.Itoa(c.SampleRate),
		"-ac", strconv.Itoa(c.Channels),
		"-b:a", "48k",
		output,
	)
	return args
}

// buildDecodeArgs constructs FFmpeg arguments that decode input to raw
// little-endian float32 on stdout.
func buildDecodeArgs(input string, c Constraints) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(c.SampleRate),
		"-ac", strconv.Itoa(c.Channels),
		"pipe:1",
	}
}
