// Package wav encodes float audio samples into canonical 16-bit PCM WAV files.
//
// The layout is the 44-byte RIFF/WAVE header followed by little-endian int16 samples.
// Output is byte-exact and deterministic for a given input.
package wav

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Header layout constants.
const (
	// HeaderSize is the size of the canonical RIFF/WAVE header in bytes.
	HeaderSize = 44

	// BitsPerSample is the only supported sample width.
	BitsPerSample = 16

	// BytesPerSample is BitsPerSample / 8.
	BytesPerSample = BitsPerSample / 8

	// MIMEType is the media type of encoded output.
	MIMEType = "audio/wav"

	fmtChunkSize  = 16
	formatPCM     = 1
	riffSizeExtra = 36 // header bytes counted by the RIFF size field, minus the data payload
)

// Scaling factors for float to int16 conversion.
// Negative samples use 32768 and non-negative ones 32767 so that +1.0 cannot overflow.
const (
	scaleNegative = 0x8000
	scalePositive = 0x7FFF
)

// Encode converts samples into a complete WAV file.
// samples is a mono sequence, or an interleaved one when channels > 1 (see Interleave).
// Values outside [-1, 1] are clamped. An empty input yields a valid header with an
// empty data chunk.
func Encode(samples []float32, channels, sampleRate int) ([]byte, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("channels=%d sampleRate=%d: %w", channels, sampleRate, ErrInvalidFormat)
	}

	dataSize := len(samples) * BytesPerSample
	buf := make([]byte, HeaderSize+dataSize)
	putHeader(buf, channels, sampleRate, dataSize)

	off := HeaderSize
	for _, s := range samples {
		binary.LittleEndian.PutUint16(buf[off:], uint16(SampleToInt16(s)))
		off += BytesPerSample
	}
	return buf, nil
}

// putHeader writes the 44-byte header into buf[:HeaderSize].
func putHeader(buf []byte, channels, sampleRate, dataSize int) {
	le := binary.LittleEndian

	copy(buf[0:4], "RIFF")
	le.PutUint32(buf[4:8], uint32(riffSizeExtra+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	le.PutUint32(buf[16:20], fmtChunkSize)
	le.PutUint16(buf[20:22], formatPCM)
	le.PutUint16(buf[22:24], uint16(channels))
	le.PutUint32(buf[24:28], uint32(sampleRate))
	le.PutUint32(buf[28:32], uint32(sampleRate*channels*BytesPerSample))
	le.PutUint16(buf[32:34], uint16(channels*BytesPerSample))
	le.PutUint16(buf[34:36], BitsPerSample)

	copy(buf[36:40], "data")
	le.PutUint32(buf[40:44], uint32(dataSize))
}

// SampleToInt16 clamps s to [-1, 1] and scales it to the int16 range.
// The fractional part is truncated toward zero. NaN maps to 0.
func SampleToInt16(s float32) int16 {
	if s != s {
		return 0
	}
	v := math.Max(-1, math.Min(1, float64(s)))
	if v < 0 {
		return int16(v * scaleNegative)
	}
	return int16(v * scalePositive)
}

// Size returns the encoded file size for sampleCount samples.
func Size(sampleCount int) int {
	return HeaderSize + sampleCount*BytesPerSample
}

// Interleave merges per-channel sample slices into one frame-ordered slice
// (L0 R0 L1 R1 ...). All channels must have the same length.
func Interleave(channels ...[]float32) ([]float32, error) {
	switch len(channels) {
	case 0:
		return nil, nil
	case 1:
		return channels[0], nil
	}

	frames := len(channels[0])
	for i, ch := range channels[1:] {
		if len(ch) != frames {
			return nil, fmt.Errorf("channel %d has %d samples, want %d: %w", i+1, len(ch), frames, ErrChannelMismatch)
		}
	}

	out := make([]float32, 0, frames*len(channels))
	for f := range frames {
		for _, ch := range channels {
			out = append(out, ch[f])
		}
	}
	return out, nil
}

// DecodeFloat32LE converts raw little-endian float32 PCM into samples.
// A trailing partial sample is ignored.
func DecodeFloat32LE(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := range n {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
