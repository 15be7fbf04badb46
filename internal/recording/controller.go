// Package recording drives one microphone recording at a time through
// Idle, Acquiring, Recording, Stopping and Completed or Failed, and turns the
// captured samples into a WAV asset.
//
// All session state is owned by the goroutine running Controller.Run. Commands,
// acquisition results, capture chunks, timer ticks and end-of-capture results
// reach it as channel messages, so notices are emitted in order and the device
// is released exactly once per session.
package recording

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alnah/go-medbot/internal/capture"
)

// DefaultLimit is the maximum recording duration.
const DefaultLimit = 120 * time.Second

// tickInterval is the timer display granularity.
const tickInterval = time.Second

// backstopMargin is added to the limit for the capture backend's own cutoff, so
// the controller's limit check always fires first.
const backstopMargin = 2 * time.Second

// defaultShutdownTimeout bounds device release when Run exits with a session active.
const defaultShutdownTimeout = 10 * time.Second

// Controller runs the recording state machine.
type Controller struct {
	factory     capture.Factory
	sink        Sink
	stager      Stager
	logger      *zap.Logger
	now         func() time.Time
	newTicker   func(time.Duration) Ticker
	newID       func() string
	limit       time.Duration
	constraints capture.Constraints

	// shutdownTimeout bounds device release when Run exits with a session active.
	shutdownTimeout time.Duration

	cmds     chan command
	acquired chan acquireResult
	ended    chan endResult
	done     chan struct{}

	// Owned by the Run goroutine.
	state State
	sess  *audioSession
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the notice sink.
func WithSink(s Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithStager sets where completed assets are staged.
func WithStager(s Stager) Option {
	return func(c *Controller) { c.stager = s }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithTicker sets the tick source constructor (for testing).
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(c *Controller) { c.newTicker = newTicker }
}

// WithLimit sets the maximum recording duration.
func WithLimit(d time.Duration) Option {
	return func(c *Controller) { c.limit = d }
}

// WithConstraints sets the capture constraints. MaxDuration is derived from the limit.
func WithConstraints(cs capture.Constraints) Option {
	return func(c *Controller) { c.constraints = cs }
}

// WithIDGenerator sets the session ID generator (for testing).
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// New creates a Controller that opens sessions from factory.
// A nil factory means capture is unsupported: Start then only emits a
// DeviceUnsupported notice.
func New(factory capture.Factory, opts ...Option) *Controller {
	c := &Controller{
		factory:         factory,
		sink:            SinkFunc(func(Notice) {}),
		stager:          nopStager{},
		logger:          zap.NewNop(),
		now:             time.Now,
		newTicker:       newTimeTicker,
		newID:           uuid.NewString,
		limit:           DefaultLimit,
		constraints:     capture.DefaultConstraints(),
		shutdownTimeout: defaultShutdownTimeout,
		cmds:            make(chan command),
		acquired:        make(chan acquireResult),
		ended:           make(chan endResult),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.constraints.MaxDuration = c.limit + backstopMargin
	return c
}

type nopStager struct{}

func (nopStager) Stage(*WavAsset) {}

func (nopStager) Discard(string) {}

// audioSession is one recording attempt.
type audioSession struct {
	id        string
	capture   capture.Session
	startedAt time.Time
	samples   []float32
	maxSample int

	cancelAcquire context.CancelFunc
	chunks        <-chan []float32
	ticker        Ticker

	// failErr is set when the session can no longer complete.
	failErr    error
	limitHit   bool
	ending     bool
	endDone    bool
	tail       []float32
	endErr     error
	acquireRun bool
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdReset
	cmdState
)

type command struct {
	kind  commandKind
	reply chan commandReply
}

type commandReply struct {
	state State
	id    string
	err   error
}

type acquireResult struct {
	id  string
	err error
}

type endResult struct {
	id   string
	tail []float32
	err  error
}

// Start begins a new session and returns its ID once acquisition is under way.
// It fails fast with ErrSessionAlreadyActive while a session is active, and with
// capture.ErrUnsupportedEnvironment (after a DeviceUnsupported notice) when
// capture is unavailable. A Completed or Failed session is reset first.
func (c *Controller) Start(ctx context.Context) (string, error) {
	r, err := c.send(ctx, cmdStart)
	if err != nil {
		return "", err
	}
	return r.id, r.err
}

// Stop ends the active session. It is a no-op without a notice when no session is
// active or one is already stopping.
func (c *Controller) Stop(ctx context.Context) error {
	r, err := c.send(ctx, cmdStop)
	if err != nil {
		return err
	}
	return r.err
}

// Reset returns a Completed or Failed session to Idle and discards its staged asset.
// Returns ErrSessionAlreadyActive while a session is active.
func (c *Controller) Reset(ctx context.Context) error {
	r, err := c.send(ctx, cmdReset)
	if err != nil {
		return err
	}
	return r.err
}

// State returns the current state.
func (c *Controller) State(ctx context.Context) (State, error) {
	r, err := c.send(ctx, cmdState)
	if err != nil {
		return Idle, err
	}
	return r.state, nil
}

func (c *Controller) send(ctx context.Context, kind commandKind) (commandReply, error) {
	cmd := command{kind: kind, reply: make(chan commandReply, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return commandReply{}, ErrNotRunning
	case <-ctx.Done():
		return commandReply{}, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r, nil
	case <-c.done:
		return commandReply{}, ErrNotRunning
	case <-ctx.Done():
		return commandReply{}, ctx.Err()
	}
}

// Run processes events until ctx is canceled. An active session is released
// before Run returns. Run must be called once.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	for {
		var chunks <-chan []float32
		var ticks <-chan time.Time
		if s := c.sess; s != nil {
			chunks = s.chunks
			if s.ticker != nil {
				ticks = s.ticker.C()
			}
		}

		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()

		case cmd := <-c.cmds:
			cmd.reply <- c.handleCommand(ctx, cmd.kind)

		case r := <-c.acquired:
			c.handleAcquired(ctx, r)

		case chunk, ok := <-chunks:
			if ok {
				c.handleChunk(ctx, chunk)
			} else {
				c.handleChunksClosed(ctx)
			}

		case <-ticks:
			c.handleTick(ctx)

		case r := <-c.ended:
			c.handleEnded(r)
		}
	}
}

func (c *Controller) handleCommand(ctx context.Context, kind commandKind) commandReply {
	switch kind {
	case cmdStart:
		id, err := c.start(ctx)
		return commandReply{state: c.state, id: id, err: err}
	case cmdStop:
		c.stop(ctx)
		return commandReply{state: c.state}
	case cmdReset:
		if c.state.active() {
			return commandReply{state: c.state, err: ErrSessionAlreadyActive}
		}
		c.reset()
		return commandReply{state: c.state}
	default:
		return commandReply{state: c.state}
	}
}

func (c *Controller) start(ctx context.Context) (string, error) {
	if c.state.active() {
		return "", ErrSessionAlreadyActive
	}
	if c.factory == nil {
		err := fmt.Errorf("%w: no capture strategy available", capture.ErrUnsupportedEnvironment)
		c.notify(Notice{Kind: NoticeDeviceUnsupported, Err: err, Message: unsupportedMessage})
		return "", err
	}
	c.reset()

	rate, channels := c.constraints.SampleRate, c.constraints.Channels
	s := &audioSession{
		id:        c.newID(),
		capture:   c.factory.NewSession(),
		maxSample: int(c.limit.Seconds()*float64(rate)) * channels,
	}
	acquireCtx, cancel := context.WithCancel(ctx)
	s.cancelAcquire = cancel
	s.acquireRun = true
	c.sess = s
	c.setState(Acquiring)

	go c.acquire(acquireCtx, s)
	return s.id, nil
}

// acquire runs outside the loop. If the loop has exited, whatever was acquired is
// released here.
func (c *Controller) acquire(ctx context.Context, s *audioSession) {
	err := s.capture.Acquire(ctx, c.constraints)
	select {
	case c.acquired <- acquireResult{id: s.id, err: err}:
	case <-c.done:
		if err == nil {
			releaseCtx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
			defer cancel()
			_, _ = s.capture.End(releaseCtx)
		}
	}
}

func (c *Controller) handleAcquired(ctx context.Context, r acquireResult) {
	s := c.sess
	if s == nil || s.id != r.id {
		return
	}
	s.acquireRun = false
	s.cancelAcquire()

	switch {
	case s.failErr != nil:
		// Abandoned while acquiring; release whatever was obtained.
		c.endSession(ctx)
		return
	case r.err != nil:
		s.failErr = r.err
		c.setState(Stopping)
		c.endSession(ctx)
		return
	}

	chunks, err := s.capture.Begin(ctx)
	if err != nil {
		s.failErr = err
		c.setState(Stopping)
		c.endSession(ctx)
		return
	}

	s.chunks = chunks
	s.startedAt = c.now()
	s.ticker = c.newTicker(tickInterval)
	c.setState(Recording)
	c.notify(Notice{Kind: NoticeStarted, SessionID: s.id, Message: startedMessage})
}

func (c *Controller) stop(ctx context.Context) {
	s := c.sess
	switch c.state {
	case Acquiring:
		s.failErr = ErrAcquisitionAbandoned
		s.cancelAcquire()
		c.setState(Stopping)
		c.logger.Debug("acquisition abandoned", zap.String("session", s.id))
	case Recording:
		// The limit check wins a race with a manual stop.
		c.beginStop(ctx, c.elapsed() >= c.limit)
	default:
		// Idle, Stopping or terminal: nothing to stop.
	}
}

func (c *Controller) handleChunk(ctx context.Context, chunk []float32) {
	s := c.sess
	room := s.maxSample - len(s.samples)
	if room <= 0 {
		return
	}
	if len(chunk) > room {
		chunk = chunk[:room]
	}
	s.samples = append(s.samples, chunk...)

	if c.state == Recording && len(s.samples) >= s.maxSample {
		c.beginStop(ctx, true)
	}
}

func (c *Controller) handleChunksClosed(ctx context.Context) {
	s := c.sess
	s.chunks = nil
	switch c.state {
	case Recording:
		// Capture ended on its own (backend cutoff or device loss).
		c.logger.Debug("capture stream closed while recording", zap.String("session", s.id))
		c.beginStop(ctx, c.elapsed() >= c.limit)
	case Stopping:
		c.maybeFinish()
	}
}

func (c *Controller) handleTick(ctx context.Context) {
	if c.state != Recording {
		return
	}
	elapsed := c.elapsed()
	if elapsed >= c.limit {
		c.beginStop(ctx, true)
		return
	}
	c.notify(Notice{Kind: NoticeTick, SessionID: c.sess.id, Elapsed: elapsed.Truncate(time.Second)})
}

// beginStop moves Recording to Stopping. limit selects the duration-triggered path.
func (c *Controller) beginStop(ctx context.Context, limit bool) {
	s := c.sess
	c.stopTicker()
	c.setState(Stopping)

	if limit && !s.limitHit {
		s.limitHit = true
		elapsed := c.elapsed()
		if elapsed > c.limit {
			elapsed = c.limit
		}
		c.notify(Notice{
			Kind:      NoticeLimitReached,
			SessionID: s.id,
			Elapsed:   elapsed.Truncate(time.Second),
			Err:       ErrTimeoutExceeded,
			Message:   limitMessage(c.limit),
		})
	}
	c.endSession(ctx)
}

// endSession ends the capture session in the background. Chunks keep draining
// in the loop while End flushes and releases the device.
func (c *Controller) endSession(ctx context.Context) {
	s := c.sess
	if s.ending {
		return
	}
	s.ending = true
	go func() {
		tail, err := s.capture.End(ctx)
		select {
		case c.ended <- endResult{id: s.id, tail: tail, err: err}:
		case <-c.done:
		}
	}()
}

func (c *Controller) handleEnded(r endResult) {
	s := c.sess
	if s == nil || s.id != r.id {
		return
	}
	s.endDone = true
	s.tail = r.tail
	s.endErr = r.err
	c.maybeFinish()
}

// maybeFinish completes the session once End has returned and every chunk has
// been drained.
func (c *Controller) maybeFinish() {
	s := c.sess
	if c.state != Stopping || !s.endDone || s.chunks != nil {
		return
	}

	if s.failErr != nil {
		if s.endErr != nil {
			c.logger.Warn("release after failure", zap.String("session", s.id), zap.Error(s.endErr))
		}
		c.fail(s.failErr)
		return
	}
	if s.endErr != nil {
		err := s.endErr
		if errors.Is(err, capture.ErrDecode) {
			err = fmt.Errorf("%w: %v", ErrEncodingFailure, err)
		}
		c.fail(err)
		return
	}

	samples := s.samples
	if room := s.maxSample - len(samples); room > 0 && len(s.tail) > 0 {
		tail := s.tail
		if len(tail) > room {
			tail = tail[:room]
		}
		samples = append(samples, tail...)
	}

	asset, err := NewWavAsset(s.id, samples, c.constraints.Channels, c.constraints.SampleRate)
	if err != nil {
		c.fail(err)
		return
	}
	s.samples = samples
	s.tail = nil
	c.stager.Stage(asset)
	c.setState(Completed)
	c.logger.Info("recording completed",
		zap.String("session", s.id),
		zap.Int("samples", asset.Samples()),
		zap.Duration("duration", asset.Duration()),
		zap.Int("bytes", asset.Size()))
	c.notify(Notice{Kind: NoticeCompleted, SessionID: s.id, Elapsed: asset.Duration(), Asset: asset})
}

func (c *Controller) fail(err error) {
	s := c.sess
	s.samples = nil
	s.tail = nil
	c.setState(Failed)
	c.logger.Warn("recording failed", zap.String("session", s.id), zap.Error(err))

	if errors.Is(err, capture.ErrUnsupportedEnvironment) {
		c.notify(Notice{Kind: NoticeDeviceUnsupported, SessionID: s.id, Err: err, Message: unsupportedMessage})
		return
	}
	c.notify(Notice{Kind: NoticeFailed, SessionID: s.id, Err: err, Message: failureMessage(err)})
}

// failureMessage returns display text for a failed session.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrAcquisitionAbandoned):
		return "Recording canceled before the microphone was ready."
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return "Could not access the microphone. Check that it is connected and allowed, then try again."
	case errors.Is(err, ErrEncodingFailure):
		return "Could not process the recording. Please try again."
	default:
		return "Recording failed: " + err.Error()
	}
}

// reset clears a terminal session and discards only its own staged asset.
func (c *Controller) reset() {
	s := c.sess
	if s == nil {
		return
	}
	if c.state == Completed {
		c.stager.Discard(s.id)
	}
	c.sess = nil
	c.setState(Idle)
}

// shutdown releases an active session when Run exits.
func (c *Controller) shutdown() {
	s := c.sess
	if s == nil || !c.state.active() {
		return
	}
	c.stopTicker()
	s.cancelAcquire()
	if s.acquireRun {
		// The acquire goroutine releases on its own once the loop is gone.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
	defer cancel()
	if s.ending {
		// End is already running; keep draining until it reports back.
		c.drainUntilEnded(ctx, s)
		return
	}
	released := make(chan struct{})
	go func() {
		defer close(released)
		if _, err := s.capture.End(ctx); err != nil {
			c.logger.Warn("release on shutdown", zap.String("session", s.id), zap.Error(err))
		}
	}()
	for {
		select {
		case _, ok := <-s.chunks:
			if !ok {
				s.chunks = nil
			}
		case <-released:
			return
		case <-ctx.Done():
			c.abandonChunks(s)
			return
		}
	}
}

func (c *Controller) drainUntilEnded(ctx context.Context, s *audioSession) {
	for {
		select {
		case _, ok := <-s.chunks:
			if !ok {
				s.chunks = nil
			}
		case r := <-c.ended:
			if r.id == s.id {
				return
			}
		case <-ctx.Done():
			c.abandonChunks(s)
			return
		}
	}
}

// abandonChunks drains the session's chunks in the background until the
// backend closes the channel. A capture callback blocked on a send would
// otherwise stall the device release for good.
func (c *Controller) abandonChunks(s *audioSession) {
	chunks := s.chunks
	s.chunks = nil
	if chunks == nil {
		return
	}
	c.logger.Warn("device release timed out; draining capture in the background",
		zap.String("session", s.id), zap.Duration("timeout", c.shutdownTimeout))
	go func() {
		for range chunks {
		}
	}()
}

func (c *Controller) stopTicker() {
	if s := c.sess; s != nil && s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (c *Controller) elapsed() time.Duration {
	return c.now().Sub(c.sess.startedAt)
}

func (c *Controller) setState(st State) {
	id := ""
	if c.sess != nil {
		id = c.sess.id
	}
	c.logger.Debug("state change",
		zap.String("session", id),
		zap.Stringer("from", c.state),
		zap.Stringer("to", st))
	c.state = st
}

func (c *Controller) notify(n Notice) {
	c.sink.Notify(n)
}
