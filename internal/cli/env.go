package cli

import (
	"context"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/alnah/go-medbot/internal/capture"
	"github.com/alnah/go-medbot/internal/config"
	"github.com/alnah/go-medbot/internal/interrupt"
	"github.com/alnah/go-medbot/internal/transcribe"
	"github.com/alnah/go-medbot/internal/upload"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time
	Logger *zap.Logger

	// Factories for domain objects
	ConfigLoader       ConfigLoader
	CaptureDetector    CaptureDetector
	ChatClientFactory  ChatClientFactory
	TranscriberFactory TranscriberFactory
	InterruptHandler   func(ctx context.Context) (*interrupt.Handler, context.Context)
}

// ConfigLoader loads the effective configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// CaptureDetector picks a capture strategy and lists its devices.
type CaptureDetector interface {
	Detect(ctx context.Context, opts capture.DetectOptions) (capture.Factory, error)
	ListDevices(ctx context.Context, opts capture.DetectOptions) (capture.Strategy, []string, error)
}

// ChatClient talks to the medical chat service.
type ChatClient interface {
	SendAudio(ctx context.Context, a upload.Audio, message string) (*upload.Reply, error)
	SendFile(ctx context.Context, path, message string) (*upload.Reply, error)
	SendText(ctx context.Context, message string) (*upload.Reply, error)
	Health(ctx context.Context) (*upload.Health, error)
}

// ChatClientFactory creates chat clients for a service URL.
type ChatClientFactory interface {
	NewChatClient(baseURL string, logger *zap.Logger) ChatClient
}

// TranscriberFactory creates transcribers for the local preview.
type TranscriberFactory interface {
	NewTranscriber(apiKey string) transcribe.Transcriber
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdin sets the stdin reader.
func WithStdin(r io.Reader) EnvOption {
	return func(e *Env) {
		e.Stdin = r
	}
}

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = l
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithCaptureDetector sets the capture detector.
func WithCaptureDetector(d CaptureDetector) EnvOption {
	return func(e *Env) {
		e.CaptureDetector = d
	}
}

// WithChatClientFactory sets the chat client factory.
func WithChatClientFactory(f ChatClientFactory) EnvOption {
	return func(e *Env) {
		e.ChatClientFactory = f
	}
}

// WithTranscriberFactory sets the transcriber factory.
func WithTranscriberFactory(f TranscriberFactory) EnvOption {
	return func(e *Env) {
		e.TranscriberFactory = f
	}
}

// WithInterruptHandler sets the interrupt handler constructor.
func WithInterruptHandler(fn func(ctx context.Context) (*interrupt.Handler, context.Context)) EnvOption {
	return func(e *Env) {
		e.InterruptHandler = fn
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdin:              os.Stdin,
		Stdout:             os.Stdout,
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		Now:                time.Now,
		Logger:             zap.NewNop(),
		ConfigLoader:       &defaultConfigLoader{},
		CaptureDetector:    &defaultCaptureDetector{},
		ChatClientFactory:  &defaultChatClientFactory{},
		TranscriberFactory: &defaultTranscriberFactory{},
		InterruptHandler:   interrupt.NewHandler,
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultCaptureDetector implements CaptureDetector using the capture package.
type defaultCaptureDetector struct{}

func (defaultCaptureDetector) Detect(ctx context.Context, opts capture.DetectOptions) (capture.Factory, error) {
	return capture.Detect(ctx, opts)
}

func (defaultCaptureDetector) ListDevices(ctx context.Context, opts capture.DetectOptions) (capture.Strategy, []string, error) {
	return capture.ListDevices(ctx, opts)
}

// defaultChatClientFactory implements ChatClientFactory using resty.
type defaultChatClientFactory struct{}

func (defaultChatClientFactory) NewChatClient(baseURL string, logger *zap.Logger) ChatClient {
	return upload.NewClient(baseURL, upload.WithLogger(logger))
}

// defaultTranscriberFactory implements TranscriberFactory using OpenAI.
type defaultTranscriberFactory struct{}

func (defaultTranscriberFactory) NewTranscriber(apiKey string) transcribe.Transcriber {
	client := openai.NewClient(apiKey)
	return transcribe.NewOpenAITranscriber(client)
}

// Compile-time interface verification.
var (
	_ ConfigLoader       = (*defaultConfigLoader)(nil)
	_ CaptureDetector    = (*defaultCaptureDetector)(nil)
	_ ChatClientFactory  = (*defaultChatClientFactory)(nil)
	_ TranscriberFactory = (*defaultTranscriberFactory)(nil)
	_ ChatClient         = (*upload.Client)(nil)
)
