package capture

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// FFmpeg input formats per OS.
const (
	formatAVFoundation = "avfoundation"
	formatDShow        = "dshow"
	formatALSA         = "alsa"
	formatPulse        = "pulse"
)

// inputFormat returns the FFmpeg input format for goos.
func inputFormat(goos string) string {
	switch goos {
	case "darwin":
		return formatAVFoundation
	case "windows":
		return formatDShow
	default:
		return formatALSA
	}
}

// formatInputArg formats a device name for FFmpeg's -i argument.
func formatInputArg(format, device string) string {
	switch format {
	case formatAVFoundation:
		// Audio-only input: ":index" or ":name".
		if strings.HasPrefix(device, ":") {
			return device
		}
		return ":" + device
	case formatDShow:
		if strings.HasPrefix(device, "audio=") {
			return device
		}
		return "audio=" + device
	default:
		return device
	}
}

// listDevicesArgs returns FFmpeg arguments that print the device list to stderr.
// ALSA has no listing mode; nil means "use defaults".
func listDevicesArgs(format string) []string {
	switch format {
	case formatAVFoundation:
		return []string{"-hide_banner", "-f", formatAVFoundation, "-list_devices", "true", "-i", ""}
	case formatDShow:
		return []string{"-hide_banner", "-f", formatDShow, "-list_devices", "true", "-i", "dummy"}
	default:
		return nil
	}
}

// alsaDefaults are tried when neither PulseAudio nor a listing is available.
var alsaDefaults = []string{"default", "hw:0", "plughw:0"}

// virtualAudioDevices lists loopback/virtual device names ranked below real microphones.
var virtualAudioDevices = []string{
	// macOS
	"AirBeamTV", "ZoomAudioDevice", "Microsoft Teams Audio", "BlackHole", "Soundflower", "Loopback Audio",
	// Windows
	"Stereo Mix", "Wave Out Mix", "What U Hear", "CABLE Output", "VB-Audio Virtual Cable", "virtual-audio-capturer", "VoiceMeeter",
	// PulseAudio/PipeWire
	".monitor",
}

func isVirtualAudioDevice(name string) bool {
	lower := strings.ToLower(name)
	for _, v := range virtualAudioDevices {
		if strings.Contains(lower, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func isMicrophoneDevice(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range []string{"micro", "input", "headset", "webcam", "usb audio", "capture"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return strings.Contains(lower, "analog-stereo") && !strings.Contains(lower, ".monitor")
}

// device is one discovered input. id is what FFmpeg expects, label is for display.
type device struct {
	id    string
	label string
}

// rankDevices orders devices: microphones, then unknown, then virtual.
func rankDevices(devices []device) []device {
	var mics, unknown, virtual []device
	for _, d := range devices {
		switch {
		case isVirtualAudioDevice(d.label):
			virtual = append(virtual, d)
		case isMicrophoneDevice(d.label):
			mics = append(mics, d)
		default:
			unknown = append(unknown, d)
		}
	}
	out := make([]device, 0, len(devices))
	out = append(out, mics...)
	out = append(out, unknown...)
	return append(out, virtual...)
}

var (
	avfDevicePattern   = regexp.MustCompile(`\[(\d+)\]\s+(.+)$`)
	quotedNamePattern  = regexp.MustCompile(`"([^"]+)"`)
	dshowSuffixPattern = regexp.MustCompile(`"([^"]+)"\s+\(audio\)`)
)

// Section markers in FFmpeg device listings.
const (
	avfAudioSection     = "AVFoundation audio devices:"
	avfVideoSection     = "AVFoundation video devices:"
	dshowAudioSection   = "DirectShow audio devices"
	dshowVideoSection   = "DirectShow video devices"
	dshowAlternativeTag = "Alternative name"
)

// parseAVFoundationDevices parses the audio section of an avfoundation listing:
//
//	[AVFoundation indev @ 0x...] AVFoundation audio devices:
//	[AVFoundation indev @ 0x...] [0] AirBeamTV Audio
//	[AVFoundation indev @ 0x...] [1] MacBook Pro Microphone
func parseAVFoundationDevices(stderr string) []device {
	var devices []device
	inAudio := false
	for _, line := range strings.Split(stderr, "\n") {
		switch {
		case strings.Contains(line, avfAudioSection):
			inAudio = true
			continue
		case strings.Contains(line, avfVideoSection):
			inAudio = false
			continue
		}
		if !inAudio {
			continue
		}
		if m := avfDevicePattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			devices = append(devices, device{id: ":" + m[1], label: m[2]})
		}
	}
	return rankDevices(devices)
}

// parseDShowDevices parses a dshow listing in either the section-header layout of
// older builds or the `"Name" (audio)` suffix layout of gyan.dev builds.
func parseDShowDevices(stderr string) []device {
	var names []string
	if strings.Contains(stderr, dshowAudioSection) {
		inAudio := false
		for _, line := range strings.Split(stderr, "\n") {
			switch {
			case strings.Contains(line, dshowAudioSection):
				inAudio = true
				continue
			case strings.Contains(line, dshowVideoSection):
				inAudio = false
				continue
			}
			if !inAudio || strings.Contains(line, dshowAlternativeTag) {
				continue
			}
			if m := quotedNamePattern.FindStringSubmatch(line); m != nil {
				names = append(names, m[1])
			}
		}
	} else {
		for _, line := range strings.Split(stderr, "\n") {
			if strings.Contains(line, dshowAlternativeTag) {
				continue
			}
			if m := dshowSuffixPattern.FindStringSubmatch(line); m != nil {
				names = append(names, m[1])
			}
		}
	}

	devices := make([]device, len(names))
	for i, n := range names {
		devices[i] = device{id: n, label: n}
	}
	return rankDevices(devices)
}

// parsePulseDevices parses `pactl list sources short`:
//
//	0	alsa_output.pci-0000_00_1f.3.analog-stereo.monitor	module-alsa-card.c	s16le 2ch 44100Hz	IDLE
//	1	alsa_input.pci-0000_00_1f.3.analog-stereo	module-alsa-card.c	s16le 2ch 44100Hz	IDLE
func parsePulseDevices(output string) []device {
	var devices []device
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			devices = append(devices, device{id: fields[1], label: fields[1]})
		}
	}
	return rankDevices(devices)
}

// ffmpegDeviceFinder discovers FFmpeg input devices for one OS.
type ffmpegDeviceFinder struct {
	ffmpegPath string
	goos       string
	runner     ffmpegRunner
	pactl      pactlRunner
}

// input returns the FFmpeg format and -i argument for device, detecting the
// default device when device is empty.
func (f ffmpegDeviceFinder) input(ctx context.Context, device string) (format, arg string, err error) {
	format = inputFormat(f.goos)
	if device != "" {
		return format, formatInputArg(format, device), nil
	}

	devices, err := f.list(ctx)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if len(devices) == 0 {
		return "", "", fmt.Errorf("%w: no audio input devices detected, check that a microphone is connected and enabled", ErrDeviceUnavailable)
	}

	// PulseAudio source names are only valid with the pulse input format.
	if f.goos == "linux" && f.fromPulse(devices[0]) {
		return formatPulse, devices[0].id, nil
	}
	return format, formatInputArg(format, devices[0].id), nil
}

// fromPulse reports whether d came from pactl rather than the ALSA defaults.
func (f ffmpegDeviceFinder) fromPulse(d device) bool {
	for _, a := range alsaDefaults {
		if d.id == a {
			return false
		}
	}
	return true
}

// list returns ranked devices. On Linux, PulseAudio sources are preferred.
func (f ffmpegDeviceFinder) list(ctx context.Context) ([]device, error) {
	format := inputFormat(f.goos)

	if f.goos == "linux" {
		if out, err := f.pactl.ListSources(ctx); err == nil {
			if devices := parsePulseDevices(out); len(devices) > 0 {
				return devices, nil
			}
		}
	}

	args := listDevicesArgs(format)
	if args == nil {
		defaults := make([]device, len(alsaDefaults))
		for i, d := range alsaDefaults {
			defaults[i] = device{id: d, label: d}
		}
		return defaults, nil
	}

	// -list_devices always exits non-zero; only an empty stderr is a real failure.
	stderr, err := f.runner.RunOutput(ctx, f.ffmpegPath, args)
	if err != nil && stderr == "" {
		return nil, err
	}
	if format == formatAVFoundation {
		return parseAVFoundationDevices(stderr), nil
	}
	return parseDShowDevices(stderr), nil
}
