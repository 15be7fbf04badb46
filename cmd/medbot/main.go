package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-medbot/internal/apierr"
	"github.com/alnah/go-medbot/internal/capture"
	"github.com/alnah/go-medbot/internal/cli"
	"github.com/alnah/go-medbot/internal/config"
	"github.com/alnah/go-medbot/internal/ffmpeg"
	"github.com/alnah/go-medbot/internal/interrupt"
	"github.com/alnah/go-medbot/internal/logging"
	"github.com/alnah/go-medbot/internal/recording"
	"github.com/alnah/go-medbot/internal/transcribe"
	"github.com/alnah/go-medbot/internal/upload"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitUpload     = 5
	ExitRecording  = 6
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// SIGINT is left to the commands: record stops on the first Ctrl+C and
	// discards on the second.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	env := cli.NewEnv(cli.WithLogger(logger))

	rootCmd := &cobra.Command{
		Use:   "medbot",
		Short: "Ask the medical chatbot by voice or text",
		Long: `Record a spoken question from the microphone, save it as 16 kHz mono WAV
and send it to the medical chat service. Text questions, existing audio
files and medical images can be sent too.

Answers are informational only and never replace a medical professional.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.RecordCmd(env))
	rootCmd.AddCommand(cli.SendCmd(env))
	rootCmd.AddCommand(cli.AskCmd(env))
	rootCmd.AddCommand(cli.HealthCmd(env))
	rootCmd.AddCommand(cli.DevicesCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints err unless the command already did, and returns its exit code.
func reportError(w io.Writer, err error) int {
	if !cli.Reported(err) {
		fmt.Fprintln(w, err)
	}
	return exitCode(err)
}

// newLogger builds the diagnostic logger from the configured level.
// A broken config or level falls back to warnings only.
func newLogger() *zap.Logger {
	cfg, _ := config.Load()
	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		logger, _ = logging.New(logging.DefaultLevel, os.Stderr)
		logger.Warn("ignoring log level", zap.Error(err))
	}
	return logger
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Cobra doesn't expose typed errors, so we check for known message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	switch {
	case errors.Is(err, ffmpeg.ErrNotFound), errors.Is(err, capture.ErrUnsupportedEnvironment),
		errors.Is(err, capture.ErrDeviceUnavailable), errors.Is(err, transcribe.ErrAPIKeyMissing):
		return ExitSetup

	case errors.Is(err, cli.ErrInvalidCapture), errors.Is(err, cli.ErrFileNotFound),
		errors.Is(err, cli.ErrOutputExists), errors.Is(err, config.ErrInvalidValue),
		errors.Is(err, config.ErrUnknownKey), errors.Is(err, upload.ErrUnsupportedFileType),
		errors.Is(err, upload.ErrFileTooLarge), errors.Is(err, upload.ErrEmptyMessage),
		errors.Is(err, transcribe.ErrInvalidLanguage):
		return ExitValidation

	case errors.Is(err, upload.ErrServiceUnavailable), errors.Is(err, upload.ErrRejected),
		errors.Is(err, apierr.ErrRateLimit), errors.Is(err, apierr.ErrQuotaExceeded),
		errors.Is(err, apierr.ErrTimeout), errors.Is(err, apierr.ErrAuthFailed),
		errors.Is(err, apierr.ErrBadRequest), errors.Is(err, apierr.ErrUnavailable):
		return ExitUpload

	case errors.Is(err, recording.ErrEncodingFailure), errors.Is(err, recording.ErrAcquisitionAbandoned),
		errors.Is(err, recording.ErrTimeoutExceeded), errors.Is(err, capture.ErrDeviceRelease),
		errors.Is(err, capture.ErrDecode):
		return ExitRecording
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
