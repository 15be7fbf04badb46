package ffmpeg

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// envFFmpegPath names the environment variable holding an explicit ffmpeg path.
const envFFmpegPath = "FFMPEG_PATH"

// wellKnownPaths lists install locations checked when ffmpeg is not on PATH.
// GUI launchers on macOS often start processes without Homebrew in PATH.
var wellKnownPaths = map[string][]string{
	"darwin":  {"/opt/homebrew/bin/ffmpeg", "/usr/local/bin/ffmpeg"},
	"linux":   {"/usr/bin/ffmpeg", "/usr/local/bin/ffmpeg", "/snap/bin/ffmpeg"},
	"windows": {`C:\ffmpeg\bin\ffmpeg.exe`},
}

// Resolver finds the FFmpeg binary.
type Resolver struct {
	stat fileStatter
	env  envProvider
	goos string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.stat = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithPlatform overrides the target OS (for testing).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stat: osFileStatter{},
		env:  osEnvProvider{},
		goos: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. System PATH
//  3. Well-known install locations for the current OS
func (r *Resolver) Resolve(_ context.Context) (string, error) {
	if envPath := r.env.Getenv(envFFmpegPath); envPath != "" {
		if _, err := r.stat.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found", ErrNotFound, envFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if path, err := r.env.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	for _, p := range wellKnownPaths[r.goos] {
		if _, err := r.stat.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w\n\n%s", ErrNotFound, r.manualInstallInstructions())
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions() string {
	switch r.goos {
	case "darwin":
		return "Install FFmpeg with: brew install ffmpeg\nOr set FFMPEG_PATH to your ffmpeg binary."
	case "linux":
		return "Install FFmpeg with your package manager (apt install ffmpeg, dnf install ffmpeg, pacman -S ffmpeg).\nOr set FFMPEG_PATH to your ffmpeg binary."
	case "windows":
		return "Install FFmpeg with: winget install ffmpeg\nOr set FFMPEG_PATH to your ffmpeg.exe."
	default:
		return "Download FFmpeg from https://ffmpeg.org/download.html\nOr set FFMPEG_PATH to your ffmpeg binary."
	}
}

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

// Resolve finds ffmpeg using the default resolver.
func Resolve(ctx context.Context) (string, error) {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewResolver()
	})
	return defaultResolver.Resolve(ctx)
}
