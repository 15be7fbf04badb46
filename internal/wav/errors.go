package wav

import "errors"

// ErrInvalidFormat indicates a non-positive channel count or sample rate.
var ErrInvalidFormat = errors.New("invalid wav format")

// ErrChannelMismatch indicates channels of unequal length were passed to Interleave.
var ErrChannelMismatch = errors.New("channel lengths differ")
