// Package upload submits recordings, audio and image files and text questions
// to the medical chat service, and stages a finished recording until the user
// confirms sending it.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/alnah/go-medbot/internal/apierr"
)

// Service endpoints.
const (
	chatPath   = "/api/chat"
	healthPath = "/api/health"
)

// Default messages sent with a file when the user gives no context.
const (
	DefaultAudioMessage = "Can you help me with what I described?"
	DefaultImageMessage = "Can you help me understand this medical image?"
)

// MaxUploadSize is the service's request size limit.
const MaxUploadSize = 16 << 20

// Default client settings.
const (
	defaultTimeout    = 2 * time.Minute
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 10 * time.Second
)

// Kind is the input type the service reports for an uploaded file.
type Kind string

// File kinds.
const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

type fileType struct {
	kind     Kind
	mimeType string
}

// fileTypes maps accepted file extensions to their kind and content type.
var fileTypes = map[string]fileType{
	".wav":  {KindAudio, "audio/wav"},
	".mp3":  {KindAudio, "audio/mpeg"},
	".flac": {KindAudio, "audio/flac"},
	".m4a":  {KindAudio, "audio/mp4"},
	".png":  {KindImage, "image/png"},
	".jpg":  {KindImage, "image/jpeg"},
	".jpeg": {KindImage, "image/jpeg"},
	".gif":  {KindImage, "image/gif"},
	".bmp":  {KindImage, "image/bmp"},
}

// Audio is an in-memory file to upload. *recording.WavAsset and *File
// implement it.
type Audio interface {
	Reader() io.Reader
	FileName() string
	MIMEType() string
	Size() int
}

// Reply is the chat service's answer.
type Reply struct {
	Success          bool   `json:"success"`
	Response         string `json:"response"`
	InputType        string `json:"input_type"`
	ExtractedContext string `json:"extracted_context"`
	Disclaimer       string `json:"disclaimer"`
	Message          string `json:"message"`
	Error            string `json:"error"`
}

// Health is the service's health report.
type Health struct {
	Status           string   `json:"status"`
	Service          string   `json:"service"`
	TextModelReady   bool     `json:"text_model_ready"`
	VisionModelReady bool     `json:"vision_model_ready"`
	SupportedInputs  []string `json:"supported_inputs"`
}

// Healthy reports whether the service declared itself healthy.
func (h Health) Healthy() bool { return h.Status == "healthy" }

// Client talks to the chat service.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
	retry  apierr.RetryConfig
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.retry = apierr.RetryConfig{MaxRetries: maxRetries, BaseDelay: baseDelay, MaxDelay: maxDelay}
	}
}

// WithLogger sets the diagnostic logger; resty's own warnings go to it too.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
		c.http.SetLogger(l.Sugar())
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json"),
		logger: zap.NewNop(),
		retry: apierr.RetryConfig{
			MaxRetries: defaultMaxRetries,
			BaseDelay:  defaultBaseDelay,
			MaxDelay:   defaultMaxDelay,
		},
	}
	c.http.SetLogger(c.logger.Sugar())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendAudio uploads audio with an optional message.
// An empty message is replaced by DefaultAudioMessage.
func (c *Client) SendAudio(ctx context.Context, a Audio, message string) (*Reply, error) {
	return c.sendFile(ctx, a, message, DefaultAudioMessage)
}

// SendFile uploads an existing audio file (wav, mp3, flac, m4a) or medical
// image (png, jpg, jpeg, gif, bmp), up to 16 MB. An empty message is replaced
// by the default message for the file's kind.
func (c *Client) SendFile(ctx context.Context, path, message string) (*Reply, error) {
	f, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return c.sendFile(ctx, f, message, f.Kind().defaultMessage())
}

func (c *Client) sendFile(ctx context.Context, a Audio, message, defaultMessage string) (*Reply, error) {
	if a.Size() > MaxUploadSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", a.FileName(), a.Size(), ErrFileTooLarge)
	}
	if strings.TrimSpace(message) == "" {
		message = defaultMessage
	}

	c.logger.Debug("uploading file",
		zap.String("file", a.FileName()),
		zap.String("mime", a.MIMEType()),
		zap.Int("bytes", a.Size()))

	return c.withRetry(ctx, func() (*Reply, error) {
		req := c.http.R().
			SetContext(ctx).
			SetMultipartField("file", a.FileName(), a.MIMEType(), a.Reader()).
			SetMultipartFormData(map[string]string{"message": message})
		return c.chat(req)
	})
}

// SendText asks a text-only question.
func (c *Client) SendText(ctx context.Context, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	return c.withRetry(ctx, func() (*Reply, error) {
		req := c.http.R().
			SetContext(ctx).
			SetBody(map[string]string{"message": message})
		return c.chat(req)
	})
}

// Health queries the service health endpoint. It does not retry.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	resp, err := c.http.R().SetContext(ctx).SetResult(&h).Get(healthPath)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if resp.IsError() {
		return nil, classifyStatus(resp.StatusCode(), resp.String())
	}
	if !h.Healthy() {
		return &h, fmt.Errorf("status %q: %w", h.Status, ErrServiceUnavailable)
	}
	return &h, nil
}

func (c *Client) withRetry(ctx context.Context, fn func() (*Reply, error)) (*Reply, error) {
	cfg := c.retry
	cfg.OnRetry = func(attempt int, err error) {
		c.logger.Debug("retrying chat request", zap.Int("attempt", attempt), zap.Error(err))
	}
	return apierr.RetryWithBackoff(ctx, cfg, fn, isRetryableError)
}

// chat posts req to the chat endpoint and interprets the reply.
func (c *Client) chat(req *resty.Request) (*Reply, error) {
	var reply Reply
	resp, err := req.SetResult(&reply).SetError(&reply).Post(chatPath)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if resp.IsError() {
		msg := reply.Message
		if msg == "" {
			msg = resp.String()
		}
		return nil, classifyStatus(resp.StatusCode(), msg)
	}
	if !reply.Success {
		msg := reply.Message
		if msg == "" {
			msg = reply.Error
		}
		return &reply, fmt.Errorf("%s: %w", msg, ErrRejected)
	}
	return &reply, nil
}

// classifyStatus maps an HTTP error status to a sentinel error. Server-side
// failures also match ErrServiceUnavailable.
func classifyStatus(status int, msg string) error {
	err := apierr.FromStatus(status, msg)
	switch {
	case status == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %w", ErrFileTooLarge, err)
	case errors.Is(err, apierr.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return err
}

// classifyTransportError maps a failed round trip to a sentinel error.
func classifyTransportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	default:
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
}

// isRetryableError reports whether err is transient.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return apierr.Transient(err) || errors.Is(err, ErrServiceUnavailable)
}

func (k Kind) defaultMessage() string {
	if k == KindImage {
		return DefaultImageMessage
	}
	return DefaultAudioMessage
}

var _ Audio = (*File)(nil)

// File is an audio or image file read into memory for upload.
type File struct {
	data     []byte
	name     string
	mimeType string
	kind     Kind
}

func (f *File) Reader() io.Reader { return bytes.NewReader(f.data) }

func (f *File) FileName() string { return f.name }

func (f *File) MIMEType() string { return f.mimeType }

func (f *File) Size() int { return len(f.data) }

// Kind reports whether the file is audio or an image.
func (f *File) Kind() Kind { return f.kind }

// OpenFile validates and loads an audio or image file for upload.
func OpenFile(path string) (*File, error) {
	ft, ok := fileTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%q (use wav, mp3, flac, m4a, png, jpg, jpeg, gif or bmp): %w",
			filepath.Base(path), ErrUnsupportedFileType)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.Size() > MaxUploadSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", filepath.Base(path), info.Size(), ErrFileTooLarge)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is the user's own upload choice
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return &File{data: data, name: filepath.Base(path), mimeType: ft.mimeType, kind: ft.kind}, nil
}
