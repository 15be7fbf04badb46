// Package transcribe previews what the chat service will hear: it sends a
// recording to OpenAI's transcription API and returns the text.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-medbot/internal/apierr"
)

// ModelGPT4oMiniTranscribe is the cost-effective transcription model.
const ModelGPT4oMiniTranscribe = "gpt-4o-mini-transcribe"

// Default retry configuration.
const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 15 * time.Second
)

// Audio is an in-memory audio file. *recording.WavAsset implements it.
type Audio interface {
	Reader() io.Reader
	FileName() string
}

// Options configures transcription behavior.
type Options struct {
	// Prompt provides context to improve accuracy, e.g. medication names.
	Prompt string

	// Language is an ISO 639-1 code or locale ("en", "pt-BR"). Empty means auto-detect.
	Language string
}

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, a Audio, opts Options) (string, error)
}

// audioTranscriber is an internal interface for OpenAI audio transcription.
// *openai.Client implements this implicitly.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Transcriber      = (*OpenAITranscriber)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAITranscriber transcribes audio using OpenAI's transcription API.
// Transient errors are retried with exponential backoff.
type OpenAITranscriber struct {
	client audioTranscriber
	retry  apierr.RetryConfig
}

// TranscriberOption configures an OpenAITranscriber.
type TranscriberOption func(*OpenAITranscriber)

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) TranscriberOption {
	return func(t *OpenAITranscriber) {
		if n >= 0 {
			t.retry.MaxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) TranscriberOption {
	return func(t *OpenAITranscriber) {
		if base > 0 {
			t.retry.BaseDelay = base
		}
		if max > 0 {
			t.retry.MaxDelay = max
		}
	}
}

// NewOpenAITranscriber creates a new OpenAITranscriber.
func NewOpenAITranscriber(client *openai.Client, opts ...TranscriberOption) *OpenAITranscriber {
	return newTranscriber(client, opts...)
}

func newTranscriber(client audioTranscriber, opts ...TranscriberOption) *OpenAITranscriber {
	t := &OpenAITranscriber{
		client: client,
		retry: apierr.RetryConfig{
			MaxRetries: defaultMaxRetries,
			BaseDelay:  defaultBaseDelay,
			MaxDelay:   defaultMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe returns the text spoken in a.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, a Audio, opts Options) (string, error) {
	return apierr.RetryWithBackoff(ctx, t.retry, func() (string, error) {
		// The reader is consumed by each attempt.
		req := openai.AudioRequest{
			Model:    ModelGPT4oMiniTranscribe,
			FilePath: a.FileName(),
			Reader:   a.Reader(),
			Format:   openai.AudioResponseFormatJSON,
			Prompt:   opts.Prompt,
			Language: baseCode(opts.Language),
		}
		resp, err := t.client.CreateTranscription(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		return strings.TrimSpace(resp.Text), nil
	}, isRetryableError)
}

// classifyError maps OpenAI API errors to sentinel errors.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		// Quota exhaustion needs user action; plain rate limits clear with time.
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests &&
			(strings.Contains(apiErr.Message, "quota") || strings.Contains(apiErr.Message, "billing")) {
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
		}
		return apierr.FromStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}

// isRetryableError determines if an error is transient and should be retried.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return apierr.Transient(err)
}
