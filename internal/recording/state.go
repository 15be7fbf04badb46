package recording

import (
	"fmt"
	"time"
)

// State is the lifecycle stage of the current audio session.
type State int

// Session states.
const (
	Idle State = iota
	Acquiring
	Recording
	Stopping
	Completed
	Failed
)

var stateNames = [...]string{"idle", "acquiring", "recording", "stopping", "completed", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// active reports whether the state holds (or is obtaining) the device.
func (s State) active() bool {
	return s == Acquiring || s == Recording || s == Stopping
}

// NoticeKind identifies a lifecycle notice.
type NoticeKind int

// Notice kinds, in the order a successful session emits them.
const (
	NoticeStarted NoticeKind = iota
	NoticeTick
	NoticeLimitReached
	NoticeCompleted
	NoticeFailed
	NoticeDeviceUnsupported
)

var noticeNames = [...]string{"started", "tick", "limit_reached", "completed", "failed", "device_unsupported"}

func (k NoticeKind) String() string {
	if k < 0 || int(k) >= len(noticeNames) {
		return fmt.Sprintf("NoticeKind(%d)", int(k))
	}
	return noticeNames[k]
}

// Notice is a discrete lifecycle event delivered to a Sink.
type Notice struct {
	Kind      NoticeKind
	SessionID string

	// Elapsed is the whole-second recording time for Tick and LimitReached.
	Elapsed time.Duration

	// Asset is set on Completed.
	Asset *WavAsset

	// Err is set on Failed and DeviceUnsupported, and is ErrTimeoutExceeded on LimitReached.
	Err error

	// Message is human-readable text for display.
	Message string
}

// Sink receives notices in order from the controller goroutine.
// Notify must not call back into the Controller.
type Sink interface {
	Notify(n Notice)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notice)

// Notify calls f(n).
func (f SinkFunc) Notify(n Notice) { f(n) }

// Stager receives finished assets for a later, user-confirmed upload.
type Stager interface {
	Stage(asset *WavAsset)
	// Discard drops the staged asset only if it belongs to sessionID.
	Discard(sessionID string)
}

// Ticker delivers the once-per-second timer ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// timeTicker adapts time.Ticker to Ticker.
type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }

func (t timeTicker) Stop() { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }

// Notice texts.
const (
	unsupportedMessage = "Audio recording is not supported here. Please upload an audio file instead."
	startedMessage     = "Recording... press Enter to stop."
)

// limitMessage returns the limit notice text, e.g.
// "Recording stopped: maximum 2 minute limit reached."
func limitMessage(limit time.Duration) string {
	if limit%time.Minute == 0 {
		return fmt.Sprintf("Recording stopped: maximum %d minute limit reached.", int(limit/time.Minute))
	}
	return fmt.Sprintf("Recording stopped: maximum %d second limit reached.", int(limit/time.Second))
}
