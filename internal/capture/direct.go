//go:build cgo

package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/alnah/go-medbot/internal/wav"
)

// bytesPerFloat is the size of one FormatF32 sample.
const bytesPerFloat = 4

// Compile-time interface implementation check.
var _ Session = (*DirectSession)(nil)

// DirectSession taps raw float32 samples from the default (or named) capture
// device through miniaudio. Each device period is delivered as one chunk.
type DirectSession struct {
	device string
	logger *zap.Logger

	mctx     *malgo.AllocatedContext
	dev      *malgo.Device
	channels int
	chunks   chan []float32

	endOnce sync.Once
	endErr  error
}

// NewDirectSession creates a direct capture session. device selects an input by
// name substring; empty means the system default.
func NewDirectSession(device string, logger *zap.Logger) *DirectSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectSession{device: device, logger: logger}
}

// DirectSupported reports whether a miniaudio backend can be initialized.
func DirectSupported() bool {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return false
	}
	_ = mctx.Uninit()
	mctx.Free()
	return true
}

// Acquire initializes the audio backend and opens the capture device.
func (s *DirectSession) Acquire(ctx context.Context, c Constraints) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		s.logger.Debug("miniaudio", zap.String("message", strings.TrimSpace(msg)))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedEnvironment, err)
	}

	release := func() {
		_ = mctx.Uninit()
		mctx.Free()
	}

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		release()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if len(infos) == 0 {
		release()
		return fmt.Errorf("%w: no capture devices found", ErrDeviceUnavailable)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(c.Channels)
	cfg.SampleRate = uint32(c.SampleRate)
	cfg.Alsa.NoMMap = 1

	if s.device != "" {
		info, ok := findDevice(infos, s.device)
		if !ok {
			release()
			return fmt.Errorf("%w: no capture device matches %q", ErrDeviceUnavailable, s.device)
		}
		cfg.Capture.DeviceID = info.ID.Pointer()
	}

	if err := ctx.Err(); err != nil {
		release()
		return err
	}

	s.channels = c.Channels
	s.chunks = make(chan []float32, chunkBuffer)
	dev, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: s.onData})
	if err != nil {
		release()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.mctx = mctx
	s.dev = dev
	if c.EchoCancellation || c.NoiseSuppression {
		s.logger.Debug("echo cancellation and noise suppression are left to the OS for direct capture")
	}
	return nil
}

// findDevice returns the first device whose name contains name (case-insensitive).
func findDevice(infos []malgo.DeviceInfo, name string) (malgo.DeviceInfo, bool) {
	want := strings.ToLower(name)
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), want) {
			return info, true
		}
	}
	return malgo.DeviceInfo{}, false
}

// Begin starts the device.
func (s *DirectSession) Begin(_ context.Context) (<-chan []float32, error) {
	if s.dev == nil {
		return nil, ErrNotAcquired
	}
	if err := s.dev.Start(); err != nil {
		return nil, fmt.Errorf("%w: start capture: %v", ErrDeviceUnavailable, err)
	}
	return s.chunks, nil
}

// onData runs on the audio thread. The input buffer is reused by miniaudio after
// return, so samples are copied out. The send blocks rather than drops: the
// consumer drains the channel until End closes it.
func (s *DirectSession) onData(_, input []byte, frameCount uint32) {
	n := int(frameCount) * s.channels * bytesPerFloat
	if n > len(input) {
		n = len(input)
	}
	if n == 0 {
		return
	}
	s.chunks <- wav.DecodeFloat32LE(input[:n])
}

// End uninitializes the device, which waits for any running callback, then closes
// the chunk channel and frees the backend.
func (s *DirectSession) End(_ context.Context) ([]float32, error) {
	s.endOnce.Do(func() {
		if s.mctx == nil {
			return
		}
		s.dev.Uninit()
		close(s.chunks)

		var errs []error
		if err := s.mctx.Uninit(); err != nil {
			errs = append(errs, err)
		}
		s.mctx.Free()
		if len(errs) > 0 {
			s.endErr = fmt.Errorf("%w: %v", ErrDeviceRelease, errors.Join(errs...))
		}
	})
	return nil, s.endErr
}

// ListDirectDevices returns the names of capture devices known to miniaudio.
func ListDirectDevices() ([]string, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedEnvironment, err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}
