package recording

import "errors"

// ErrSessionAlreadyActive indicates Start was called while a session is acquiring,
// recording or stopping. The active session is left untouched.
var ErrSessionAlreadyActive = errors.New("a recording session is already active")

// ErrEncodingFailure indicates captured audio could not be decoded or packed into WAV.
var ErrEncodingFailure = errors.New("failed to encode recording")

// ErrTimeoutExceeded is informational: it rides on the LimitReached notice when the
// duration limit stops a session. It never marks a session as failed.
var ErrTimeoutExceeded = errors.New("recording duration limit reached")

// ErrAcquisitionAbandoned indicates Stop was requested before the device was acquired.
var ErrAcquisitionAbandoned = errors.New("recording stopped before the microphone was ready")

// ErrNotRunning indicates a command was sent to a controller whose Run loop has exited.
var ErrNotRunning = errors.New("recording controller is not running")
