package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-medbot/internal/interrupt"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	configLoader *mockConfigLoader
	detector     *mockCaptureDetector
	session      *mockCaptureSession
	chat         *mockChatClientFactory
	client       *mockChatClient
	transcriber  *mockTranscriberFactory
	stdout       *syncBuffer
	stderr       *syncBuffer
}

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stdin  io.Reader
	getenv func(string) string
	sigCh  <-chan os.Signal
	clock  func() time.Time
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withTestStdin(s string) testEnvOption {
	return func(o *testEnvOptions) { o.stdin = strings.NewReader(s) }
}

func withTestStdinReader(r io.Reader) testEnvOption {
	return func(o *testEnvOptions) { o.stdin = r }
}

func withTestGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

// withTestSignals feeds the interrupt handler from sigCh, with clock as its time source.
func withTestSignals(sigCh <-chan os.Signal, clock func() time.Time) testEnvOption {
	return func(o *testEnvOptions) {
		o.sigCh = sigCh
		o.clock = clock
	}
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(opts ...testEnvOption) (*Env, *testMocks) {
	options := &testEnvOptions{
		stdin:  strings.NewReader(""),
		getenv: staticEnv(nil),
	}
	for _, opt := range opts {
		opt(options)
	}

	session := &mockCaptureSession{}
	client := &mockChatClient{}
	mocks := &testMocks{
		configLoader: &mockConfigLoader{},
		detector:     &mockCaptureDetector{session: session},
		session:      session,
		chat:         &mockChatClientFactory{client: client},
		client:       client,
		transcriber:  &mockTranscriberFactory{},
		stdout:       &syncBuffer{},
		stderr:       &syncBuffer{},
	}

	sigCh, clock, stderr := options.sigCh, options.clock, mocks.stderr
	env := &Env{
		Stdin:              options.stdin,
		Stdout:             mocks.stdout,
		Stderr:             mocks.stderr,
		Getenv:             options.getenv,
		Now:                fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		Logger:             zap.NewNop(),
		ConfigLoader:       mocks.configLoader,
		CaptureDetector:    mocks.detector,
		ChatClientFactory:  mocks.chat,
		TranscriberFactory: mocks.transcriber,
		InterruptHandler: func(ctx context.Context) (*interrupt.Handler, context.Context) {
			return interrupt.NewHandlerWithOptions(ctx, interrupt.Options{
				SigCh:   sigCh,
				NowFunc: clock,
				Stderr:  stderr,
			})
		},
	}

	return env, mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// stepClock returns t0 on its first call and t0+step afterwards.
func stepClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	calls := 0
	t0 := time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return t0
		}
		return t0.Add(step)
	}
}

// secondOfAudio returns one second of 16 kHz mono samples.
func secondOfAudio() []float32 {
	s := make([]float32, 16000)
	for i := range s {
		s[i] = 0.25
	}
	return s
}

// waitClosed fails the test if ch is not closed within a second.
func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
