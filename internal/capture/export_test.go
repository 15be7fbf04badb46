package capture

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// InputFormat exports inputFormat for testing.
var InputFormat = inputFormat

// FormatInputArg exports formatInputArg for testing.
var FormatInputArg = formatInputArg

// ListDevicesArgs exports listDevicesArgs for testing.
var ListDevicesArgs = listDevicesArgs

// IsVirtualAudioDevice exports isVirtualAudioDevice for testing.
var IsVirtualAudioDevice = isVirtualAudioDevice

// IsMicrophoneDevice exports isMicrophoneDevice for testing.
var IsMicrophoneDevice = isMicrophoneDevice

// BuildRecordArgs exports buildRecordArgs for testing.
var BuildRecordArgs = buildRecordArgs

// BuildDecodeArgs exports buildDecodeArgs for testing.
var BuildDecodeArgs = buildDecodeArgs

// DeviceTest is a test-visible version of device.
type DeviceTest struct {
	ID    string
	Label string
}

func toDeviceTest(devices []device) []DeviceTest {
	out := make([]DeviceTest, len(devices))
	for i, d := range devices {
		out[i] = DeviceTest{ID: d.id, Label: d.label}
	}
	return out
}

// ParseAVFoundationDevices exports parseAVFoundationDevices for testing.
func ParseAVFoundationDevices(stderr string) []DeviceTest {
	return toDeviceTest(parseAVFoundationDevices(stderr))
}

// ParseDShowDevices exports parseDShowDevices for testing.
func ParseDShowDevices(stderr string) []DeviceTest {
	return toDeviceTest(parseDShowDevices(stderr))
}

// ParsePulseDevices exports parsePulseDevices for testing.
func ParsePulseDevices(output string) []DeviceTest {
	return toDeviceTest(parsePulseDevices(output))
}

// --- Dependency injection exports ---

// FFmpegRunner exports ffmpegRunner interface for testing.
type FFmpegRunner = ffmpegRunner

// PactlRunner exports pactlRunner interface for testing.
type PactlRunner = pactlRunner

// ScratchFS exports scratchFS interface for testing.
type ScratchFS = scratchFS
