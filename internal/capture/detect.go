package capture

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/alnah/go-medbot/internal/ffmpeg"
)

// DetectOptions configures capability detection.
type DetectOptions struct {
	Strategy Strategy
	Device   string
	Logger   *zap.Logger

	// ResolveFFmpeg locates the FFmpeg binary. Defaults to ffmpeg.Resolve.
	ResolveFFmpeg func(ctx context.Context) (string, error)
	// FFmpegVersion reports the binary's major version. Defaults to ffmpeg.MajorVersion.
	FFmpegVersion func(ctx context.Context, ffmpegPath string) (int, bool)
	// DirectSupported checks for a miniaudio backend. Defaults to DirectSupported.
	DirectSupported func() bool
	// FFmpegOptions are passed to every FFmpegSession.
	FFmpegOptions []FFmpegOption
}

func (o DetectOptions) withDefaults() DetectOptions {
	if o.Strategy == "" {
		o.Strategy = StrategyAuto
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ResolveFFmpeg == nil {
		o.ResolveFFmpeg = ffmpeg.Resolve
	}
	if o.FFmpegVersion == nil {
		o.FFmpegVersion = ffmpeg.MajorVersion
	}
	if o.DirectSupported == nil {
		o.DirectSupported = DirectSupported
	}
	return o
}

// Detect selects a capture strategy by runtime capability.
// Auto prefers the direct tap and falls back to compressed capture through FFmpeg.
// Returns ErrUnsupportedEnvironment when the requested strategy cannot run.
func Detect(ctx context.Context, opts DetectOptions) (Factory, error) {
	opts = opts.withDefaults()

	switch opts.Strategy {
	case StrategyDirect:
		if !opts.DirectSupported() {
			return nil, fmt.Errorf("%w: no audio backend for direct capture", ErrUnsupportedEnvironment)
		}
		return directFactory(opts), nil

	case StrategyCompressed:
		return compressedFactory(ctx, opts)

	case StrategyAuto:
		if opts.DirectSupported() {
			opts.Logger.Debug("capture strategy selected", zap.String("strategy", string(StrategyDirect)))
			return directFactory(opts), nil
		}
		f, err := compressedFactory(ctx, opts)
		if err != nil {
			return nil, err
		}
		opts.Logger.Debug("capture strategy selected", zap.String("strategy", string(StrategyCompressed)))
		return f, nil

	default:
		return nil, fmt.Errorf("unknown capture strategy %q", opts.Strategy)
	}
}

func directFactory(opts DetectOptions) Factory {
	return NewFactory(StrategyDirect, func() Session {
		return NewDirectSession(opts.Device, opts.Logger)
	})
}

func compressedFactory(ctx context.Context, opts DetectOptions) (Factory, error) {
	path, err := opts.ResolveFFmpeg(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedEnvironment, err)
	}
	if major, ok := opts.FFmpegVersion(ctx, path); ok && major < ffmpeg.MinMajorVersion {
		opts.Logger.Warn("ffmpeg is older than supported, opus encoding may fail",
			zap.Int("version", major), zap.Int("minimum", ffmpeg.MinMajorVersion))
	}
	sessionOpts := append([]FFmpegOption{WithFFmpegLogger(opts.Logger)}, opts.FFmpegOptions...)
	return NewFactory(StrategyCompressed, func() Session {
		return NewFFmpegSession(path, opts.Device, sessionOpts...)
	}), nil
}

// ListDevices returns the capture devices visible to the strategy Detect picks.
// Names are usable as the device option.
func ListDevices(ctx context.Context, opts DetectOptions) (Strategy, []string, error) {
	opts = opts.withDefaults()
	f, err := Detect(ctx, opts)
	if err != nil {
		return "", nil, err
	}

	if f.Strategy() == StrategyDirect {
		names, err := ListDirectDevices()
		return StrategyDirect, names, err
	}

	path, err := opts.ResolveFFmpeg(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnsupportedEnvironment, err)
	}
	finder := ffmpegDeviceFinder{
		ffmpegPath: path,
		goos:       runtime.GOOS,
		runner:     defaultFFmpegRunner{},
		pactl:      defaultPactlRunner{},
	}
	devices, err := finder.list(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.label
	}
	return StrategyCompressed, names, nil
}
