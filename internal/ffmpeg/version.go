package ffmpeg

import (
	"context"
	"fmt"
	"strings"
)

// MinMajorVersion is the oldest FFmpeg release known to ship libopus in
// common distributions.
const MinMajorVersion = 4

// MajorVersion runs `ffmpeg -version` and parses the major version.
// ok is false when the version cannot be determined.
func MajorVersion(ctx context.Context, ffmpegPath string) (major int, ok bool) {
	out, err := RunStdout(ctx, ffmpegPath, []string{"-version"})
	if err != nil {
		return 0, false
	}
	return ParseMajorVersion(string(out))
}

// ParseMajorVersion reads the major version from the banner's first line.
// Accepts "ffmpeg version 6.1.1" and "ffmpeg version n6.1.1".
func ParseMajorVersion(banner string) (int, bool) {
	first, _, _ := strings.Cut(strings.TrimSpace(banner), "\n")
	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err == nil {
		return major, true
	}
	if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err == nil {
		return major, true
	}
	return 0, false
}
