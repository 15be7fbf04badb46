// Package capture owns the microphone for one recording attempt.
//
// Two strategies implement Session: DirectSession taps raw float samples from the
// audio backend (miniaudio), and FFmpegSession records compressed Opus through FFmpeg
// and decodes it back to samples when capture ends. Detect picks one at runtime.
package capture

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Fixed capture format.
const (
	SampleRate     = 16000
	Channels       = 1
	SampleSizeBits = 16
)

// chunkBuffer is the capacity of a session's chunk channel.
// At 16 kHz a miniaudio period is ~10 ms, so this holds well over a second of audio.
const chunkBuffer = 128

// Constraints describes the requested capture format.
type Constraints struct {
	SampleRate       int
	Channels         int
	SampleSizeBits   int
	EchoCancellation bool
	NoiseSuppression bool

	// MaxDuration, when positive, is a hard backstop enforced by the capture
	// backend itself in case the caller never ends the session.
	MaxDuration time.Duration
}

// DefaultConstraints returns mono 16 kHz 16-bit capture with echo cancellation and
// noise suppression requested.
func DefaultConstraints() Constraints {
	return Constraints{
		SampleRate:       SampleRate,
		Channels:         Channels,
		SampleSizeBits:   SampleSizeBits,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}

// Session captures audio from one input device.
//
// A Session is single-use: Acquire, then Begin, then End. End may be called at any
// point after Acquire (including instead of Begin) and releases the device exactly once.
type Session interface {
	// Acquire opens the input device.
	// Returns ErrDeviceUnavailable or ErrUnsupportedEnvironment on failure; nothing
	// needs releasing after a failed Acquire.
	Acquire(ctx context.Context, c Constraints) error

	// Begin starts streaming. Chunks arrive on the returned channel in capture order,
	// each exactly once. The channel is closed after the last chunk, either by End or
	// because capture terminated on its own.
	Begin(ctx context.Context) (<-chan []float32, error)

	// End stops streaming, releases the device and returns samples that only become
	// available at the end (the decoded recording for compressed capture).
	// The chunk channel is closed before End returns. Subsequent calls return the
	// first call's result without side effects.
	End(ctx context.Context) ([]float32, error)
}

// Strategy selects how audio is captured.
type Strategy string

// Capture strategies.
const (
	StrategyAuto       Strategy = "auto"
	StrategyDirect     Strategy = "direct"
	StrategyCompressed Strategy = "compressed"
)

// ParseStrategy parses a strategy name. Empty means StrategyAuto.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyAuto, nil
	case StrategyAuto, StrategyDirect, StrategyCompressed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown capture strategy %q (use auto, direct or compressed)", s)
	}
}

// Factory creates a fresh Session for each recording attempt.
type Factory interface {
	NewSession() Session
	Strategy() Strategy
}

// factory is the Factory returned by Detect.
type factory struct {
	strategy Strategy
	newFn    func() Session
}

func (f factory) NewSession() Session { return f.newFn() }

func (f factory) Strategy() Strategy { return f.strategy }

// NewFactory wraps a constructor as a Factory.
func NewFactory(strategy Strategy, newFn func() Session) Factory {
	return factory{strategy: strategy, newFn: newFn}
}
