package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-medbot/internal/capture"
	"github.com/alnah/go-medbot/internal/config"
	"github.com/alnah/go-medbot/internal/format"
	"github.com/alnah/go-medbot/internal/interrupt"
	"github.com/alnah/go-medbot/internal/recording"
	"github.com/alnah/go-medbot/internal/transcribe"
	"github.com/alnah/go-medbot/internal/upload"
)

// previewPrompt primes the transcription model for clinical vocabulary.
const previewPrompt = "A patient describing symptoms, medications and medical history."

// noticeBuffer is the capacity of the notice channel between the controller and
// the renderer.
const noticeBuffer = 16

// recordOptions holds the validated options for the record command.
type recordOptions struct {
	output   string
	device   string
	capture  string
	send     bool
	message  string
	preview  bool
	language string
}

// RecordCmd creates the record command.
// The env parameter provides injectable dependencies for testing.
func RecordCmd(env *Env) *cobra.Command {
	var opts recordOptions

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a spoken question and send it to medbot",
		Long: `Record from the microphone as 16 kHz mono WAV, for at most 2 minutes.

Press Enter (or Ctrl+C) to stop. A second Ctrl+C within 2 seconds discards
the recording. The file is saved, then sent after confirmation (or at once
with --send).`,
		Example: `  medbot record                              # Record, save, ask before sending
  medbot record --send -m "Since yesterday"  # Send with extra context
  medbot record --capture compressed -o visit.wav --preview`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path (default: recording_<timestamp>.wav)")
	cmd.Flags().StringVar(&opts.device, "device", "", "Audio input device (default: config device, then system default)")
	cmd.Flags().StringVar(&opts.capture, "capture", "", "Capture strategy: auto, direct or compressed (default: config capture)")
	cmd.Flags().BoolVar(&opts.send, "send", false, "Send without asking for confirmation")
	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Text sent along with the recording")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "Show a local transcript before sending (needs OPENAI_API_KEY)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Preview language, e.g. en or pt-BR (default: auto-detect)")

	return cmd
}

// runRecord records one session, saves it and optionally sends it.
func runRecord(parentCtx context.Context, env *Env, opts recordOptions) error {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	strategy, err := capture.ParseStrategy(firstNonEmpty(opts.capture, cfg.Capture))
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidCapture)
	}
	device := firstNonEmpty(opts.device, cfg.Device)

	output := config.ResolveOutputPath(opts.output, cfg.OutputDir, defaultRecordingFilename(env.Now))
	warnNonWAVExtension(env.Stderr, output)
	if _, err := os.Stat(output); err == nil {
		return fmt.Errorf("output file already exists: %s: %w", output, ErrOutputExists)
	}

	if err := transcribe.ValidateLanguage(opts.language); err != nil {
		return err
	}

	apiKey := ""
	if opts.preview {
		if apiKey = env.Getenv("OPENAI_API_KEY"); apiKey == "" {
			return transcribe.ErrAPIKeyMissing
		}
	}

	factory, err := env.CaptureDetector.Detect(parentCtx, capture.DetectOptions{
		Strategy: strategy,
		Device:   device,
		Logger:   env.Logger,
	})
	if err != nil {
		if !errors.Is(err, capture.ErrUnsupportedEnvironment) {
			return err
		}
		// The controller reports the unsupported environment to the user.
		env.Logger.Debug("no capture strategy", zap.Error(err))
		factory = nil
	}

	ih, ctx := env.InterruptHandler(parentCtx)
	defer ih.Stop()

	lines := readLines(env.Stdin)

	asset, err := captureRecording(ctx, env, ih, factory, lines)
	if err != nil {
		return err
	}

	if ih.WasInterrupted() {
		if ih.WaitForDecision("Keeping the recording... press Ctrl+C again to discard.") == interrupt.Abort {
			return fmt.Errorf("%w: %w", ErrRecordingDiscarded, context.Canceled)
		}
	}

	if err := writeFileExclusive(output, asset); err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Saved to %s\n", output)

	if opts.preview {
		previewTranscript(ctx, env, asset, apiKey, opts.language)
	}

	send := opts.send
	if !send {
		if send, err = confirm(ctx, env.Stderr, lines, "Send to medbot? [y/N] "); err != nil {
			return err
		}
	}
	if !send {
		fmt.Fprintf(env.Stderr, "Not sent. Upload it later with: medbot send %s\n", output)
		return nil
	}

	client := env.ChatClientFactory.NewChatClient(serviceURL(cfg), env.Logger)
	fmt.Fprintln(env.Stderr, "Sending...")
	reply, err := client.SendAudio(ctx, asset, opts.message)
	if err != nil {
		return err
	}
	printReply(env.Stdout, env.Stderr, reply)
	return nil
}

// captureRecording runs the controller for one session and returns the staged
// asset. The controller loop, the notice renderer and the stop driver run in
// one errgroup; stdin is read outside it since reads cannot be canceled.
func captureRecording(ctx context.Context, env *Env, ih *interrupt.Handler, factory capture.Factory, lines <-chan string) (*recording.WavAsset, error) {
	staging := &upload.Staging{}
	notices := make(chan recording.Notice, noticeBuffer)
	ctrl := recording.New(factory,
		recording.WithSink(recording.SinkFunc(func(n recording.Notice) { notices <- n })),
		recording.WithStager(staging),
		recording.WithLogger(env.Logger),
	)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	started := make(chan struct{})
	terminal := make(chan recording.Notice, 1)
	var final recording.Notice

	g.Go(func() error {
		defer close(notices)
		_ = ctrl.Run(gctx)
		return nil
	})

	g.Go(func() error {
		r := noticeRenderer{w: env.Stderr, limit: recording.DefaultLimit}
		startedCh := started
		for n := range notices {
			r.render(n)
			switch n.Kind {
			case recording.NoticeStarted:
				if startedCh != nil {
					close(startedCh)
					startedCh = nil
				}
			case recording.NoticeCompleted, recording.NoticeFailed, recording.NoticeDeviceUnsupported:
				select {
				case terminal <- n:
				default:
				}
			}
		}
		return nil
	})

	g.Go(func() error {
		defer cancelRun()
		n, err := driveSession(gctx, ctrl, ih.StopRequested(), started, terminal, lines)
		final = n
		return err
	})

	if err := g.Wait(); err != nil {
		if ih.Aborted() {
			return nil, fmt.Errorf("%w: %w", ErrRecordingDiscarded, context.Canceled)
		}
		return nil, err
	}

	if final.Kind != recording.NoticeCompleted {
		// The renderer already printed the failure notice.
		return nil, MarkReported(final.Err)
	}
	return staging.Take()
}

// driveSession starts a session, forwards the first Enter or Ctrl+C as a stop,
// and returns the session's terminal notice. Enter is only honored once
// recording has started.
func driveSession(ctx context.Context, ctrl *recording.Controller, interrupted, started <-chan struct{}, terminal <-chan recording.Notice, lines <-chan string) (recording.Notice, error) {
	if _, err := ctrl.Start(ctx); err != nil {
		if errors.Is(err, capture.ErrUnsupportedEnvironment) {
			// Start reports it with a DeviceUnsupported notice first.
			return recording.Notice{}, MarkReported(err)
		}
		return recording.Notice{}, err
	}

	var enter <-chan string
	stopped := false
	for {
		select {
		case n := <-terminal:
			return n, nil
		case <-started:
			started = nil
			if !stopped {
				enter = lines
			}
			continue
		case _, ok := <-enter:
			if !ok {
				// Stdin closed: wait for the limit or Ctrl+C.
				enter = nil
				continue
			}
		case <-interrupted:
		case <-ctx.Done():
			return recording.Notice{}, ctx.Err()
		}

		enter, interrupted, stopped = nil, nil, true
		if err := ctrl.Stop(ctx); err != nil {
			return recording.Notice{}, err
		}
	}
}

// noticeRenderer prints controller notices as terminal lines.
type noticeRenderer struct {
	w       io.Writer
	limit   time.Duration
	ticking bool
}

func (r *noticeRenderer) render(n recording.Notice) {
	switch n.Kind {
	case recording.NoticeStarted:
		fmt.Fprintln(r.w, n.Message)
	case recording.NoticeTick:
		fmt.Fprintf(r.w, "\r%s", format.Progress(n.Elapsed, r.limit))
		r.ticking = true
	case recording.NoticeCompleted:
		r.endLine()
		fmt.Fprintf(r.w, "Recording (%s, %s) - ready to send\n",
			format.Duration(n.Elapsed), format.Size(int64(n.Asset.Size())))
	default:
		r.endLine()
		fmt.Fprintln(r.w, n.Message)
	}
}

// endLine terminates the in-place timer line.
func (r *noticeRenderer) endLine() {
	if r.ticking {
		fmt.Fprintln(r.w)
		r.ticking = false
	}
}

// previewTranscript prints a local transcript of the recording. Failures are
// reported as warnings: the recording is already saved.
func previewTranscript(ctx context.Context, env *Env, asset transcribe.Audio, apiKey, language string) {
	fmt.Fprintln(env.Stderr, "Transcribing preview...")
	t := env.TranscriberFactory.NewTranscriber(apiKey)
	text, err := t.Transcribe(ctx, asset, transcribe.Options{Prompt: previewPrompt, Language: language})
	if err != nil {
		env.Logger.Debug("preview failed", zap.Error(err))
		fmt.Fprintf(env.Stderr, "Warning: preview failed: %v\n", err)
		return
	}
	fmt.Fprintf(env.Stderr, "Preview: %s\n", text)
}

// defaultRecordingFilename generates a default output filename with timestamp.
// Format: recording_20260125_143052.wav
func defaultRecordingFilename(now func() time.Time) string {
	return fmt.Sprintf("recording_%s.wav", now().Format("20060102_150405"))
}

// serviceURL returns the configured chat service URL.
func serviceURL(cfg config.Config) string {
	if cfg.APIURL == "" {
		return config.DefaultAPIURL
	}
	return cfg.APIURL
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
