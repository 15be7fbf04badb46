// Package interrupt turns Ctrl+C into a two-step decision: the first press
// asks the running recording to stop and keep what it has, a second press
// within a short window aborts and discards it.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Behavior defines what happens after the first Ctrl+C.
type Behavior int

const (
	// Continue keeps the partial recording.
	Continue Behavior = iota
	// Abort discards all work.
	Abort
)

// String returns the string representation of the Behavior.
func (b Behavior) String() string {
	switch b {
	case Continue:
		return "Continue"
	case Abort:
		return "Abort"
	default:
		return fmt.Sprintf("Behavior(%d)", b)
	}
}

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// interruptWindow is the time window for a second Ctrl+C to trigger abort.
const interruptWindow = 2 * time.Second

const (
	stopMessage  = "\nStopping... press Ctrl+C again to abort."
	abortMessage = "\nAborted."
)

// Handler manages interrupt handling with double Ctrl+C detection.
// The first Ctrl+C closes StopRequested. A second Ctrl+C within the window
// cancels the handler's context, which releases the microphone through the
// normal shutdown path instead of exiting the process outright.
type Handler struct {
	mu             sync.Mutex
	firstInterrupt time.Time
	interrupted    bool
	aborted        bool
	stopped        bool
	stopCh         chan struct{} // closed on first interrupt
	abortCh        chan struct{} // closed on abort
	cancelFunc     context.CancelFunc
	done           chan struct{} // signals listen goroutine to exit

	nowFunc func() time.Time
	stderr  io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh   <-chan os.Signal
	NowFunc func() time.Time
	// Stderr receives user-facing messages. Must be safe for concurrent writes.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// Returns the handler and a context that is canceled on abort.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return NewHandlerWithOptions(parent, Options{SigCh: sigCh})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	nowFunc := opts.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &Handler{
		stopCh:     make(chan struct{}),
		abortCh:    make(chan struct{}),
		cancelFunc: cancel,
		done:       make(chan struct{}),
		nowFunc:    nowFunc,
		stderr:     stderr,
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

// listen handles incoming signals.
func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if !h.handleSignal() {
				return
			}
		}
	}
}

// handleSignal processes one signal and reports whether to keep listening.
func (h *Handler) handleSignal() bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	now := h.nowFunc()

	if !h.interrupted {
		h.interrupted = true
		h.firstInterrupt = now
		close(h.stopCh)
		h.mu.Unlock()
		fmt.Fprintln(h.stderr, stopMessage)
		return true
	}

	// Second interrupt outside the window is ignored.
	if now.Sub(h.firstInterrupt) > interruptWindow {
		h.mu.Unlock()
		return true
	}

	h.aborted = true
	close(h.abortCh)
	h.mu.Unlock()
	fmt.Fprintln(h.stderr, abortMessage)
	h.cancelFunc()
	return false
}

// StopRequested is closed on the first interrupt.
func (h *Handler) StopRequested() <-chan struct{} {
	return h.stopCh
}

// WasInterrupted returns true if at least one interrupt was received.
func (h *Handler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// Aborted returns true if a second interrupt arrived within the window.
func (h *Handler) Aborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

// WaitForDecision waits out the rest of the interrupt window and returns the
// user's intent. It returns Continue at once if no interrupt was received.
// The message is displayed while waiting.
func (h *Handler) WaitForDecision(message string) Behavior {
	h.mu.Lock()
	if !h.interrupted {
		h.mu.Unlock()
		return Continue
	}
	if h.aborted {
		h.mu.Unlock()
		return Abort
	}
	firstInterrupt := h.firstInterrupt
	h.mu.Unlock()

	remaining := interruptWindow - h.nowFunc().Sub(firstInterrupt)
	if remaining <= 0 {
		return Continue
	}

	fmt.Fprintln(h.stderr, message)

	deadline := time.NewTimer(remaining)
	defer deadline.Stop()

	select {
	case <-deadline.C:
		return Continue
	case <-h.abortCh:
		return Abort
	}
}

// Stop cleans up the handler. Should be called when done.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
}
