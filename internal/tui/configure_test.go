package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/voxchunk/internal/config"
)

func TestFormValuesApply(t *testing.T) {
	base := config.DefaultConfig()

	tests := []struct {
		name    string
		modify  func(v *formValues)
		check   func(t *testing.T, cfg *config.Config)
		wantErr bool
	}{
		{
			name:   "unchanged",
			modify: func(v *formValues) {},
			check: func(t *testing.T, cfg *config.Config) {
				if *cfg != *base {
					t.Errorf("config changed: %+v", cfg)
				}
			},
		},
		{
			name: "switch provider picks provider default model",
			modify: func(v *formValues) {
				v.Provider = "groq"
			},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Transcription.Model != "whisper-large-v3-turbo" {
					t.Errorf("Model = %q", cfg.Transcription.Model)
				}
			},
		},
		{
			name: "explicit model and trimmed fields",
			modify: func(v *formValues) {
				v.Endpoint = " https://stt.example.com/transcribe "
				v.Window = "500ms"
				v.Model = "gpt-4o-transcribe"
				v.Language = " it "
				v.APIKey = " sk-abc "
			},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Upload.Endpoint != "https://stt.example.com/transcribe" {
					t.Errorf("Endpoint = %q", cfg.Upload.Endpoint)
				}
				if cfg.Window.Duration != 500*time.Millisecond {
					t.Errorf("Window = %v", cfg.Window.Duration)
				}
				if cfg.Transcription.Model != "gpt-4o-transcribe" || cfg.Transcription.Language != "it" || cfg.Transcription.APIKey != "sk-abc" {
					t.Errorf("Transcription = %+v", cfg.Transcription)
				}
			},
		},
		{
			name:    "bad window",
			modify:  func(v *formValues) { v.Window = "soon" },
			wantErr: true,
		},
		{
			name:    "bad language",
			modify:  func(v *formValues) { v.Language = "klingon" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valuesFromConfig(base)
			tt.modify(v)
			cfg, err := v.apply(base)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("apply() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}

	if base.Window.Duration != time.Second {
		t.Error("apply() must not modify the original config")
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		input   string
		wantErr bool
	}{
		{"endpoint ok", validateEndpoint, "http://localhost:8000/transcribe", false},
		{"endpoint https", validateEndpoint, "https://host/transcribe", false},
		{"endpoint no scheme", validateEndpoint, "localhost:8000", true},
		{"endpoint empty", validateEndpoint, "", true},
		{"window ok", validateWindow, "1s", false},
		{"window negative", validateWindow, "-1s", true},
		{"window garbage", validateWindow, "one second", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLanguageOptions(t *testing.T) {
	options := languageOptions()
	if len(options) < 2 {
		t.Fatalf("languageOptions() returned %d options", len(options))
	}
	if options[0].Value != "" {
		t.Errorf("first option = %q, want auto-detect", options[0].Value)
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := map[string]string{
		"":                 "(from environment)",
		"short":            "*****",
		"sk-1234567890abc": "sk-1********0abc",
	}
	for in, want := range tests {
		if got := maskAPIKey(in); got != want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummaryHidesKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Transcription.APIKey = "sk-secret-value-1234"

	out := summary(cfg)
	if strings.Contains(out, "secret") {
		t.Errorf("summary leaks API key: %s", out)
	}
	if !strings.Contains(out, "Auto-detect") {
		t.Errorf("summary should show auto-detect language: %s", out)
	}
}
