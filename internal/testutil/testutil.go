package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/voxchunk/internal/config"
	"github.com/leonardotrapani/voxchunk/internal/recording"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Transcription.APIKey = "test-api-key"
	cfg.Notifications.Type = "log"
	return cfg
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// Ramp returns n samples counting up from start.
func Ramp(start, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(start + i)
	}
	return out
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// FakeSource is an in-memory audio source. Frames pushed with Send are
// delivered to whoever started it.
type FakeSource struct {
	Rate     int
	ProbeErr error
	StartErr error

	mu     sync.Mutex
	frames chan recording.AudioFrame
	errs   chan error
	stop   chan struct{}
	probes int
	starts int
	stops  int
}

func NewFakeSource() *FakeSource {
	return &FakeSource{Rate: 16000}
}

func (f *FakeSource) Probe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.ProbeErr
}

func (f *FakeSource) Start(ctx context.Context) (<-chan recording.AudioFrame, <-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return nil, nil, f.StartErr
	}
	f.starts++
	f.frames = make(chan recording.AudioFrame)
	f.errs = make(chan error, 1)
	f.stop = make(chan struct{})
	return f.frames, f.errs, nil
}

func (f *FakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop != nil {
		close(f.stop)
		f.stop = nil
		f.stops++
	}
	return nil
}

func (f *FakeSource) Wait() {}

func (f *FakeSource) SampleRate() int { return f.Rate }

// Send delivers one frame and reports whether the consumer took it.
func (f *FakeSource) Send(samples []int16) bool {
	f.mu.Lock()
	frames, stop := f.frames, f.stop
	f.mu.Unlock()
	if frames == nil || stop == nil {
		return false
	}

	select {
	case frames <- recording.AudioFrame{Samples: samples, Timestamp: time.Now()}:
		return true
	case <-stop:
		return false
	case <-time.After(5 * time.Second):
		return false
	}
}

// Fail reports err on the error channel.
func (f *FakeSource) Fail(err error) {
	f.mu.Lock()
	errs := f.errs
	f.mu.Unlock()
	if errs != nil {
		errs <- err
	}
}

// Close ends the stream the way a source whose process exited does: err, if
// non-nil, is queued first, then the error and frame channels are closed.
func (f *FakeSource) Close(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frames == nil {
		return
	}
	if err != nil {
		f.errs <- err
	}
	close(f.errs)
	close(f.frames)
	f.errs = nil
	f.frames = nil
}

func (f *FakeSource) Counts() (probes, starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes, f.starts, f.stops
}

// Entry is one transcript captured by MockSink.
type Entry struct {
	Seq  uint64
	Text string
}

// MockSink records appended transcripts.
type MockSink struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *MockSink) Append(seq uint64, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Seq: seq, Text: text})
}

func (m *MockSink) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// MockAdapter implements transcriber.Adapter for testing
type MockAdapter struct {
	TranscribeFunc func(ctx context.Context, container []byte, filename string) (string, error)

	mu        sync.Mutex
	Filenames []string
}

func (m *MockAdapter) Transcribe(ctx context.Context, container []byte, filename string) (string, error) {
	m.mu.Lock()
	m.Filenames = append(m.Filenames, filename)
	m.mu.Unlock()
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, container, filename)
	}
	return "mock transcription", nil
}
