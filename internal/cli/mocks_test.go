package cli

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/alnah/go-medbot/internal/capture"
	"github.com/alnah/go-medbot/internal/config"
	"github.com/alnah/go-medbot/internal/transcribe"
	"github.com/alnah/go-medbot/internal/upload"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{APIURL: config.DefaultAPIURL, Capture: config.DefaultCapture}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock capture.Session
// ---------------------------------------------------------------------------

type mockCaptureSession struct {
	AcquireErr error
	Chunks     [][]float32
	Tail       []float32
	EndErr     error

	// begun is closed when Begin is called, if set.
	begun chan struct{}

	mu       sync.Mutex
	ch       chan []float32
	closed   bool
	endCalls int
}

func (m *mockCaptureSession) Acquire(ctx context.Context, c capture.Constraints) error {
	return m.AcquireErr
}

func (m *mockCaptureSession) Begin(ctx context.Context) (<-chan []float32, error) {
	m.mu.Lock()
	m.ch = make(chan []float32, len(m.Chunks))
	for _, c := range m.Chunks {
		m.ch <- c
	}
	m.mu.Unlock()

	if m.begun != nil {
		close(m.begun)
	}
	return m.ch, nil
}

func (m *mockCaptureSession) End(ctx context.Context) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endCalls++
	if m.ch != nil && !m.closed {
		close(m.ch)
		m.closed = true
	}
	return m.Tail, m.EndErr
}

func (m *mockCaptureSession) EndCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endCalls
}

// ---------------------------------------------------------------------------
// Mock CaptureDetector
// ---------------------------------------------------------------------------

type mockCaptureDetector struct {
	DetectFunc      func(ctx context.Context, opts capture.DetectOptions) (capture.Factory, error)
	ListDevicesFunc func(ctx context.Context, opts capture.DetectOptions) (capture.Strategy, []string, error)

	// session is returned by the default Detect factory.
	session *mockCaptureSession

	mu          sync.Mutex
	detectCalls []capture.DetectOptions
	listCalls   []capture.DetectOptions
}

func (m *mockCaptureDetector) Detect(ctx context.Context, opts capture.DetectOptions) (capture.Factory, error) {
	m.mu.Lock()
	m.detectCalls = append(m.detectCalls, opts)
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, opts)
	}
	sess := m.session
	if sess == nil {
		sess = &mockCaptureSession{}
	}
	return capture.NewFactory(capture.StrategyDirect, func() capture.Session { return sess }), nil
}

func (m *mockCaptureDetector) ListDevices(ctx context.Context, opts capture.DetectOptions) (capture.Strategy, []string, error) {
	m.mu.Lock()
	m.listCalls = append(m.listCalls, opts)
	m.mu.Unlock()

	if m.ListDevicesFunc != nil {
		return m.ListDevicesFunc(ctx, opts)
	}
	return capture.StrategyDirect, nil, nil
}

func (m *mockCaptureDetector) DetectCalls() []capture.DetectOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]capture.DetectOptions(nil), m.detectCalls...)
}

func (m *mockCaptureDetector) ListCalls() []capture.DetectOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]capture.DetectOptions(nil), m.listCalls...)
}

// ---------------------------------------------------------------------------
// Mock ChatClientFactory + ChatClient
// ---------------------------------------------------------------------------

type mockChatClientFactory struct {
	client *mockChatClient

	mu   sync.Mutex
	urls []string
}

func (m *mockChatClientFactory) NewChatClient(baseURL string, logger *zap.Logger) ChatClient {
	m.mu.Lock()
	m.urls = append(m.urls, baseURL)
	m.mu.Unlock()

	if m.client == nil {
		m.client = &mockChatClient{}
	}
	return m.client
}

func (m *mockChatClientFactory) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.urls...)
}

type sentAudio struct {
	FileName string
	MIMEType string
	Size     int
	Message  string
}

type mockChatClient struct {
	SendAudioFunc func(ctx context.Context, a upload.Audio, message string) (*upload.Reply, error)
	SendFileFunc  func(ctx context.Context, path, message string) (*upload.Reply, error)
	SendTextFunc  func(ctx context.Context, message string) (*upload.Reply, error)
	HealthFunc    func(ctx context.Context) (*upload.Health, error)

	mu        sync.Mutex
	audio     []sentAudio
	files     []string
	texts     []string
	healthHit int
}

func (m *mockChatClient) SendAudio(ctx context.Context, a upload.Audio, message string) (*upload.Reply, error) {
	m.mu.Lock()
	m.audio = append(m.audio, sentAudio{FileName: a.FileName(), MIMEType: a.MIMEType(), Size: a.Size(), Message: message})
	m.mu.Unlock()

	if m.SendAudioFunc != nil {
		return m.SendAudioFunc(ctx, a, message)
	}
	return &upload.Reply{Success: true, Response: "audio reply"}, nil
}

func (m *mockChatClient) SendFile(ctx context.Context, path, message string) (*upload.Reply, error) {
	m.mu.Lock()
	m.files = append(m.files, path)
	m.mu.Unlock()

	if m.SendFileFunc != nil {
		return m.SendFileFunc(ctx, path, message)
	}
	return &upload.Reply{Success: true, Response: "file reply"}, nil
}

func (m *mockChatClient) SendText(ctx context.Context, message string) (*upload.Reply, error) {
	m.mu.Lock()
	m.texts = append(m.texts, message)
	m.mu.Unlock()

	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, message)
	}
	return &upload.Reply{Success: true, Response: "text reply"}, nil
}

func (m *mockChatClient) Health(ctx context.Context) (*upload.Health, error) {
	m.mu.Lock()
	m.healthHit++
	m.mu.Unlock()

	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return &upload.Health{Status: "healthy", Service: "medbot", TextModelReady: true}, nil
}

func (m *mockChatClient) Audio() []sentAudio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentAudio(nil), m.audio...)
}

func (m *mockChatClient) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.files...)
}

func (m *mockChatClient) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// ---------------------------------------------------------------------------
// Mock TranscriberFactory + Transcriber
// ---------------------------------------------------------------------------

type mockTranscriberFactory struct {
	transcriber *mockTranscriber

	mu   sync.Mutex
	keys []string
}

func (m *mockTranscriberFactory) NewTranscriber(apiKey string) transcribe.Transcriber {
	m.mu.Lock()
	m.keys = append(m.keys, apiKey)
	m.mu.Unlock()

	if m.transcriber == nil {
		m.transcriber = &mockTranscriber{}
	}
	return m.transcriber
}

func (m *mockTranscriberFactory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

type mockTranscriber struct {
	TranscribeFunc func(ctx context.Context, a transcribe.Audio, opts transcribe.Options) (string, error)

	mu    sync.Mutex
	calls []transcribe.Options
}

func (m *mockTranscriber) Transcribe(ctx context.Context, a transcribe.Audio, opts transcribe.Options) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, opts)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, a, opts)
	}
	return "mock transcript", nil
}

func (m *mockTranscriber) Calls() []transcribe.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transcribe.Options(nil), m.calls...)
}

// Compile-time interface checks.
var (
	_ ConfigLoader           = (*mockConfigLoader)(nil)
	_ CaptureDetector        = (*mockCaptureDetector)(nil)
	_ ChatClientFactory      = (*mockChatClientFactory)(nil)
	_ ChatClient             = (*mockChatClient)(nil)
	_ TranscriberFactory     = (*mockTranscriberFactory)(nil)
	_ transcribe.Transcriber = (*mockTranscriber)(nil)
	_ capture.Session        = (*mockCaptureSession)(nil)
)
