//go:build cgo

package capture

// DirectCallback runs input through a DirectSession's data callback with the
// given channel count and returns the chunk it delivered, or nil when none was.
func DirectCallback(channels int, input []byte, frameCount uint32) []float32 {
	s := &DirectSession{channels: channels, chunks: make(chan []float32, 1)}
	s.onData(nil, input, frameCount)
	select {
	case chunk := <-s.chunks:
		return chunk
	default:
		return nil
	}
}
