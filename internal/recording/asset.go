package recording

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/alnah/go-medbot/internal/wav"
)

// DefaultFileName is the suggested upload file name of a recording.
const DefaultFileName = "recording.wav"

// WavAsset is a finished recording: immutable 16-bit PCM WAV bytes plus metadata.
type WavAsset struct {
	data       []byte
	sessionID  string
	fileName   string
	samples    int
	sampleRate int
	channels   int
}

// NewWavAsset encodes samples into a WAV asset owned by sessionID.
func NewWavAsset(sessionID string, samples []float32, channels, sampleRate int) (*WavAsset, error) {
	data, err := wav.Encode(samples, channels, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	return &WavAsset{
		data:       data,
		sessionID:  sessionID,
		fileName:   DefaultFileName,
		samples:    len(samples),
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// Bytes returns a copy of the WAV file contents.
func (a *WavAsset) Bytes() []byte {
	return bytes.Clone(a.data)
}

// Reader returns a reader over the WAV file contents.
func (a *WavAsset) Reader() io.Reader {
	return bytes.NewReader(a.data)
}

// WriteTo writes the WAV file contents to w.
func (a *WavAsset) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.data)
	return int64(n), err
}

// Size is the WAV file size in bytes.
func (a *WavAsset) Size() int { return len(a.data) }

// MIMEType is always "audio/wav".
func (a *WavAsset) MIMEType() string { return wav.MIMEType }

// FileName is the suggested file name for upload.
func (a *WavAsset) FileName() string { return a.fileName }

// SessionID identifies the session that produced the asset.
func (a *WavAsset) SessionID() string { return a.sessionID }

// Samples is the total sample count across channels.
func (a *WavAsset) Samples() int { return a.samples }

// SampleRate is the sample rate in Hz.
func (a *WavAsset) SampleRate() int { return a.sampleRate }

// Channels is the channel count.
func (a *WavAsset) Channels() int { return a.channels }

// Duration is the audio length.
func (a *WavAsset) Duration() time.Duration {
	frames := a.samples / a.channels
	return time.Duration(frames) * time.Second / time.Duration(a.sampleRate)
}
