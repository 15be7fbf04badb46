package recording

import "time"

// Export internal options for testing.

// WithShutdownTimeout bounds device release when Run exits.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Controller) { c.shutdownTimeout = d }
}
