package capture

import "errors"

// ErrUnsupportedEnvironment indicates no capture capability exists on this system
// (no audio backend and no FFmpeg). Callers should fall back to uploading a file.
var ErrUnsupportedEnvironment = errors.New("audio capture not supported in this environment")

// ErrDeviceUnavailable indicates no input device was found or access was denied.
var ErrDeviceUnavailable = errors.New("audio input device unavailable")

// ErrDeviceRelease indicates the device or its scratch resources could not be released cleanly.
var ErrDeviceRelease = errors.New("failed to release audio device")

// ErrDecode indicates compressed audio could not be decoded back to samples.
var ErrDecode = errors.New("failed to decode captured audio")

// ErrNotAcquired indicates Begin was called before a successful Acquire.
var ErrNotAcquired = errors.New("capture device not acquired")
