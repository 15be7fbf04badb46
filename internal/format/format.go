// Package format renders durations and sizes for terminal display.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Duration formats a duration as HH:MM:SS or MM:SS.
func Duration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Progress formats elapsed time against a limit, e.g. "00:45 / 02:00".
func Progress(elapsed, limit time.Duration) string {
	if elapsed > limit {
		elapsed = limit
	}
	return Duration(elapsed) + " / " + Duration(limit)
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// Size formats a size in bytes with up to two decimals, e.g. "1.5 KB".
func Size(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
