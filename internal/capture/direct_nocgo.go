//go:build !cgo

package capture

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Compile-time interface implementation check.
var _ Session = (*DirectSession)(nil)

// DirectSession is unavailable without cgo; every operation reports
// ErrUnsupportedEnvironment.
type DirectSession struct{}

// NewDirectSession returns a session that cannot acquire a device.
func NewDirectSession(string, *zap.Logger) *DirectSession { return &DirectSession{} }

// DirectSupported reports false: miniaudio requires cgo.
func DirectSupported() bool { return false }

func (*DirectSession) Acquire(context.Context, Constraints) error {
	return fmt.Errorf("%w: built without cgo", ErrUnsupportedEnvironment)
}

func (*DirectSession) Begin(context.Context) (<-chan []float32, error) {
	return nil, ErrNotAcquired
}

func (*DirectSession) End(context.Context) ([]float32, error) { return nil, nil }

// ListDirectDevices reports ErrUnsupportedEnvironment without cgo.
func ListDirectDevices() ([]string, error) {
	return nil, fmt.Errorf("%w: built without cgo", ErrUnsupportedEnvironment)
}
