package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/leonardotrapani/voxchunk/internal/server"
	"github.com/leonardotrapani/voxchunk/internal/testutil"
	"github.com/leonardotrapani/voxchunk/internal/transcriber"
	"github.com/leonardotrapani/voxchunk/internal/upload"
	"github.com/leonardotrapani/voxchunk/internal/wav"
)

func newServer(t *testing.T, cfg server.Config, adapter transcriber.Adapter) *httptest.Server {
	t.Helper()
	srv := server.New(cfg, func() (transcriber.Adapter, error) { return adapter, nil })
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func multipartRequest(t *testing.T, url, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestTranscribe_Success(t *testing.T) {
	container := wav.Encode(make([]int16, 16000), 16000)
	adapter := &testutil.MockAdapter{
		TranscribeFunc: func(ctx context.Context, got []byte, filename string) (string, error) {
			if !bytes.Equal(got, container) {
				t.Errorf("adapter received %d bytes, want the uploaded container", len(got))
			}
			return "hello world", nil
		},
	}
	ts := newServer(t, server.Config{}, adapter)

	resp, err := http.DefaultClient.Do(multipartRequest(t, ts.URL+"/transcribe", "file", "audio_chunk_3.wav", container))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["transcript"] != "hello world" {
		t.Errorf("transcript = %q", body["transcript"])
	}
	if len(adapter.Filenames) != 1 || adapter.Filenames[0] != "audio_chunk_3.wav" {
		t.Errorf("adapter filenames = %v", adapter.Filenames)
	}
}

func TestTranscribe_ProviderErrorHidesDetail(t *testing.T) {
	adapter := &testutil.MockAdapter{
		TranscribeFunc: func(ctx context.Context, container []byte, filename string) (string, error) {
			return "", transcriber.NewProviderError("openai", errors.New("invalid api key sk-secret"))
		},
	}
	ts := newServer(t, server.Config{}, adapter)

	resp, err := http.DefaultClient.Do(multipartRequest(t, ts.URL+"/transcribe", "file", "audio_chunk_1.wav", wav.Encode(nil, 16000)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	body := decode(t, resp)
	if len(body) != 1 || body["error"] != "Error transcribing audio" {
		t.Errorf("body = %v, want only the generic error", body)
	}
}

func TestTranscribe_AdapterResolutionError(t *testing.T) {
	srv := server.New(server.Config{}, func() (transcriber.Adapter, error) {
		return nil, errors.New("OpenAI API key required")
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.DefaultClient.Do(multipartRequest(t, ts.URL+"/transcribe", "file", "a.wav", wav.Encode(nil, 16000)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if body := decode(t, resp); body["error"] != "Error transcribing audio" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestTranscribe_AdapterResolvedPerRequest(t *testing.T) {
	var calls atomic.Int32
	srv := server.New(server.Config{}, func() (transcriber.Adapter, error) {
		calls.Add(1)
		return &testutil.MockAdapter{}, nil
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.DefaultClient.Do(multipartRequest(t, ts.URL+"/transcribe", "file", "a.wav", wav.Encode(nil, 16000)))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("adapter resolved %d times, want 3", got)
	}
}

func TestTranscribe_BadRequests(t *testing.T) {
	ts := newServer(t, server.Config{}, &testutil.MockAdapter{})

	t.Run("wrong field name", func(t *testing.T) {
		resp, err := http.DefaultClient.Do(multipartRequest(t, ts.URL+"/transcribe", "audio", "a.wav", []byte("x")))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		if body := decode(t, resp); body["error"] != "missing file field" {
			t.Errorf("error = %q", body["error"])
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/transcribe", "application/json", strings.NewReader("{}"))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		if body := decode(t, resp); body["error"] != "missing file field" {
			t.Errorf("error = %q", body["error"])
		}
	})

	t.Run("body over limit", func(t *testing.T) {
		small := newServer(t, server.Config{MaxUploadBytes: 1024}, &testutil.MockAdapter{})
		big := wav.Encode(testutil.Ramp(0, 4000), 16000)
		resp, err := http.DefaultClient.Do(multipartRequest(t, small.URL+"/transcribe", "file", "big.wav", big))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", resp.StatusCode)
		}
		if body := decode(t, resp); body["error"] != "upload too large" {
			t.Errorf("error = %q", body["error"])
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/transcribe")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", resp.StatusCode)
		}
		if allow := resp.Header.Get("Allow"); allow != http.MethodPost {
			t.Errorf("Allow = %q", allow)
		}
	})
}

func TestHealthz(t *testing.T) {
	ts := newServer(t, server.Config{}, &testutil.MockAdapter{})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestMetrics(t *testing.T) {
	adapter := &testutil.MockAdapter{}
	ts := newServer(t, server.Config{}, adapter)

	resp, err := http.DefaultClient.Do(multipartRequest(t, ts.URL+"/transcribe", "file", "a.wav", wav.Encode(make([]int16, 100), 16000)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)

	for _, want := range []string{
		`voxchunk_http_requests_total{method="POST",route="/transcribe",status="200"} 1`,
		"voxchunk_transcription_successes_total 1",
		"voxchunk_upload_bytes_received_total 244",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestStaticAndVendor(t *testing.T) {
	static := t.TempDir()
	vendor := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>voxchunk</h1>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vendor, "client.js"), []byte("// client"), 0644); err != nil {
		t.Fatal(err)
	}

	ts := newServer(t, server.Config{StaticDir: static, VendorDir: vendor}, &testutil.MockAdapter{})

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/", http.StatusOK, "<h1>voxchunk</h1>"},
		{"/vendor/client.js", http.StatusOK, "// client"},
		{"/missing.js", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body = %q, want it to contain %q", body, tt.contains)
			}
		})
	}
}

func TestUploadClientRoundTrip(t *testing.T) {
	adapter := &testutil.MockAdapter{
		TranscribeFunc: func(ctx context.Context, container []byte, filename string) (string, error) {
			h, err := wav.ParseHeader(container)
			if err != nil {
				return "", err
			}
			if h.SampleCount() != 16000 {
				return "", errors.New("unexpected window length")
			}
			return "one second", nil
		},
	}
	ts := newServer(t, server.Config{}, adapter)

	client, err := upload.New(upload.Config{Endpoint: ts.URL + "/transcribe"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	text, err := client.Upload(context.Background(), 9, wav.Encode(testutil.Ramp(0, 16000), 16000))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if text != "one second" {
		t.Errorf("Upload() = %q", text)
	}
	if adapter.Filenames[0] != "audio_chunk_9.wav" {
		t.Errorf("filename = %q", adapter.Filenames[0])
	}
}
