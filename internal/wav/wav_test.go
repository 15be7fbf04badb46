package wav_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	gowav "github.com/go-audio/wav"

	"github.com/alnah/go-medbot/internal/wav"
)

// ---------------------------------------------------------------------------
// Encode - Header layout
// ---------------------------------------------------------------------------

func TestEncode_HeaderLayout(t *testing.T) {
	t.Parallel()

	for _, channels := range []int{1, 2} {
		for _, rate := range []int{8000, 16000, 44100} {
			samples := make([]float32, 10*channels)
			got, err := wav.Encode(samples, channels, rate)
			if err != nil {
				t.Fatalf("Encode(ch=%d, rate=%d) unexpected error: %v", channels, rate, err)
			}

			le := binary.LittleEndian
			dataSize := len(samples) * 2
			checks := []struct {
				name string
				got  any
				want any
			}{
				{"riff id", string(got[0:4]), "RIFF"},
				{"chunk size", le.Uint32(got[4:8]), uint32(36 + dataSize)},
				{"wave id", string(got[8:12]), "WAVE"},
				{"fmt id", string(got[12:16]), "fmt "},
				{"fmt size", le.Uint32(got[16:20]), uint32(16)},
				{"audio format", le.Uint16(got[20:22]), uint16(1)},
				{"channels", le.Uint16(got[22:24]), uint16(channels)},
				{"sample rate", le.Uint32(got[24:28]), uint32(rate)},
				{"byte rate", le.Uint32(got[28:32]), uint32(rate * channels * 2)},
				{"block align", le.Uint16(got[32:34]), uint16(channels * 2)},
				{"bits per sample", le.Uint16(got[34:36]), uint16(16)},
				{"data id", string(got[36:40]), "data"},
				{"data size", le.Uint32(got[40:44]), uint32(dataSize)},
			}
			for _, c := range checks {
				if c.got != c.want {
					t.Errorf("ch=%d rate=%d %s = %v, want %v", channels, rate, c.name, c.got, c.want)
				}
			}
		}
	}
}

func TestEncode_Length(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 2, 4096, 16000} {
		got, err := wav.Encode(make([]float32, n), 1, 16000)
		if err != nil {
			t.Fatalf("Encode(%d samples) unexpected error: %v", n, err)
		}
		if len(got) != 44+n*2 {
			t.Errorf("len(Encode(%d samples)) = %d, want %d", n, len(got), 44+n*2)
		}
		if wav.Size(n) != len(got) {
			t.Errorf("Size(%d) = %d, want %d", n, wav.Size(n), len(got))
		}
	}
}

func TestEncode_InvalidFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		channels   int
		sampleRate int
	}{
		{"zero channels", 0, 16000},
		{"negative channels", -1, 16000},
		{"zero sample rate", 1, 0},
		{"negative sample rate", 1, -8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := wav.Encode([]float32{0.1}, tt.channels, tt.sampleRate)
			if !errors.Is(err, wav.ErrInvalidFormat) {
				t.Errorf("Encode() error = %v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	t.Parallel()

	samples := []float32{0, 0.5, -0.5, 0.999, -0.999, 0.123}
	a, _ := wav.Encode(samples, 1, 16000)
	b, _ := wav.Encode(samples, 1, 16000)
	if !bytes.Equal(a, b) {
		t.Error("Encode() produced different output for identical input")
	}
}

// ---------------------------------------------------------------------------
// SampleToInt16 - Scaling and clamping
// ---------------------------------------------------------------------------

func TestSampleToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"zero", 0, 0},
		{"positive full scale", 1, 32767},
		{"negative full scale", -1, -32768},
		{"positive half truncates", 0.5, 16383},
		{"negative half", -0.5, -16384},
		{"clamp above", 1.5, 32767},
		{"clamp below", -1.5, -32768},
		{"positive infinity", float32(math.Inf(1)), 32767},
		{"negative infinity", float32(math.Inf(-1)), -32768},
		{"nan", float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := wav.SampleToInt16(tt.in); got != tt.want {
				t.Errorf("SampleToInt16(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode_Clamping(t *testing.T) {
	t.Parallel()

	over, _ := wav.Encode([]float32{1.5, -1.5}, 1, 16000)
	edge, _ := wav.Encode([]float32{1.0, -1.0}, 1, 16000)
	if !bytes.Equal(over, edge) {
		t.Errorf("Encode(1.5, -1.5) data = %x, want %x", over[44:], edge[44:])
	}
}

// ---------------------------------------------------------------------------
// Round trip through a standard WAV reader
// ---------------------------------------------------------------------------

func TestEncode_RoundTripWithStandardReader(t *testing.T) {
	t.Parallel()

	samples := []float32{0, 0.25, -0.25, 0.5, -0.5, 0.3, -0.7, 0.123456, -0.987654, 1, -1}
	encoded, err := wav.Encode(samples, 1, 16000)
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}

	dec := gowav.NewDecoder(bytes.NewReader(encoded))
	if !dec.IsValidFile() {
		t.Fatal("standard reader rejected encoded file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer() unexpected error: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("decoded format = %d Hz/%d ch/%d bit, want 16000/1/16", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}

	const bound = 1.0 / 32768
	for i, v := range buf.Data {
		var back float64
		if v < 0 {
			back = float64(v) / 32768
		} else {
			back = float64(v) / 32767
		}
		if diff := math.Abs(back - float64(samples[i])); diff > bound {
			t.Errorf("sample %d: decoded %v, want %v (diff %g > %g)", i, back, samples[i], diff, bound)
		}
	}
}

// ---------------------------------------------------------------------------
// Interleave / DecodeFloat32LE
// ---------------------------------------------------------------------------

func TestInterleave(t *testing.T) {
	t.Parallel()

	got, err := wav.Interleave([]float32{1, 2, 3}, []float32{-1, -2, -3})
	if err != nil {
		t.Fatalf("Interleave() unexpected error: %v", err)
	}
	want := []float32{1, -1, 2, -2, 3, -3}
	if len(got) != len(want) {
		t.Fatalf("Interleave() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Interleave()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := wav.Interleave([]float32{1, 2}, []float32{1}); !errors.Is(err, wav.ErrChannelMismatch) {
		t.Errorf("Interleave(mismatched) error = %v, want ErrChannelMismatch", err)
	}
}

func TestDecodeFloat32LE(t *testing.T) {
	t.Parallel()

	want := []float32{0, 0.5, -1, 0.25}
	raw := make([]byte, len(want)*4+3) // trailing partial sample
	for i, v := range want {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	got := wav.DecodeFloat32LE(raw)
	if len(got) != len(want) {
		t.Fatalf("DecodeFloat32LE() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DecodeFloat32LE()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
