package transcriber

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid openai config", Config{Provider: "openai", APIKey: "test-key", Model: "whisper-1"}, false},
		{"openai config without api key", Config{Provider: "openai", Model: "whisper-1"}, true},
		{"valid groq config", Config{Provider: "groq", APIKey: "gsk-test", Model: "whisper-large-v3"}, false},
		{"groq config without api key", Config{Provider: "groq", Model: "whisper-large-v3"}, true},
		{"unsupported provider", Config{Provider: "deepgram", APIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && adapter == nil {
				t.Error("New() returned nil adapter")
			}
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewFromEnv("openai"); err == nil {
		t.Error("expected error without OPENAI_API_KEY")
	}

	t.Setenv("GROQ_API_KEY", "gsk-env")
	adapter, err := NewFromEnv("groq")
	if err != nil {
		t.Fatalf("NewFromEnv(groq): %v", err)
	}
	oa := adapter.(*OpenAIAdapter)
	if oa.config.APIKey != "gsk-env" || oa.config.BaseURL != groqBaseURL {
		t.Errorf("groq adapter config = %+v", oa.config)
	}
}

func TestOpenAIAdapter_Transcribe(t *testing.T) {
	var gotAuth, gotFilename, gotModel, gotPath string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotFilename = header.Filename
		gotBody, _ = io.ReadAll(file)
		gotModel = r.FormValue("model")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"hello world"}`)
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(Config{Provider: "openai", APIKey: "test-key", Model: "whisper-1", BaseURL: srv.URL + "/v1"})

	text, err := adapter.Transcribe(context.Background(), []byte("RIFFfake"), "audio_chunk_3.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/v1/audio/transcriptions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotFilename != "audio_chunk_3.wav" {
		t.Errorf("filename = %q", gotFilename)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q", gotModel)
	}
	if string(gotBody) != "RIFFfake" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestOpenAIAdapter_TranscribeEmpty(t *testing.T) {
	adapter := NewOpenAIAdapter(Config{APIKey: "k", Model: "whisper-1", BaseURL: "http://127.0.0.1:1"})
	text, err := adapter.Transcribe(context.Background(), nil, "x.wav")
	if err != nil || text != "" {
		t.Errorf("Transcribe(empty) = %q, %v", text, err)
	}
}

func TestOpenAIAdapter_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(Config{APIKey: "bad", Model: "whisper-1", BaseURL: srv.URL})
	_, err := adapter.Transcribe(context.Background(), []byte("RIFF"), "a.wav")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsProviderError(err) {
		t.Errorf("err = %v, want ProviderError", err)
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error should carry provider message: %v", err)
	}
}

func TestProviderError(t *testing.T) {
	if NewProviderError("openai", nil) != nil {
		t.Error("nil error should stay nil")
	}
	base := errors.New("timeout")
	err := NewProviderError("openai", base)
	if !errors.Is(err, base) {
		t.Error("ProviderError should unwrap to the cause")
	}
	if IsProviderError(base) {
		t.Error("plain error reported as ProviderError")
	}
}
