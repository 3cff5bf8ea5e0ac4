package config

import (
	"fmt"
	"net/url"

	"github.com/leonardotrapani/voxchunk/internal/language"
)

// Validate checks structural settings. A missing API key is not an error
// here: capture-only setups never talk to a provider, and the server reports
// it per request.
func (c *Config) Validate() error {
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels != 1 {
		return fmt.Errorf("invalid recording.channels: %d (only mono is supported)", c.Recording.Channels)
	}
	if c.Recording.Format != "s16" {
		return fmt.Errorf("invalid recording.format: %q (only s16 is supported)", c.Recording.Format)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}

	if c.Window.Duration <= 0 {
		return fmt.Errorf("invalid window.duration: %v", c.Window.Duration)
	}
	if int64(c.Recording.SampleRate)*int64(c.Window.Duration)/1e9 <= 0 {
		return fmt.Errorf("invalid window.duration: %v holds no samples at %d Hz", c.Window.Duration, c.Recording.SampleRate)
	}

	if c.Upload.Endpoint == "" {
		return fmt.Errorf("invalid upload.endpoint: empty")
	}
	if u, err := url.Parse(c.Upload.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid upload.endpoint: %q (must be an http or https URL)", c.Upload.Endpoint)
	}
	if c.Upload.Timeout <= 0 {
		return fmt.Errorf("invalid upload.timeout: %v", c.Upload.Timeout)
	}
	if c.Upload.MaxRetries < 0 {
		return fmt.Errorf("invalid upload.max_retries: %d", c.Upload.MaxRetries)
	}
	if c.Upload.MaxConcurrent < 0 {
		return fmt.Errorf("invalid upload.max_concurrent: %d", c.Upload.MaxConcurrent)
	}

	if c.Server.Address == "" {
		return fmt.Errorf("invalid server.address: empty")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid server.max_upload_bytes: %d", c.Server.MaxUploadBytes)
	}
	if c.Server.ProviderTimeout <= 0 {
		return fmt.Errorf("invalid server.provider_timeout: %v", c.Server.ProviderTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid server.shutdown_timeout: %v", c.Server.ShutdownTimeout)
	}

	switch c.Transcription.Provider {
	case "openai":
	case "groq":
		validGroqModels := map[string]bool{"whisper-large-v3": true, "whisper-large-v3-turbo": true}
		if c.Transcription.BaseURL == "" && !validGroqModels[c.Transcription.Model] {
			return fmt.Errorf("invalid model for groq: %s (must be whisper-large-v3 or whisper-large-v3-turbo)", c.Transcription.Model)
		}
	case "":
		return fmt.Errorf("invalid transcription.provider: empty")
	default:
		return fmt.Errorf("unsupported transcription.provider: %s (must be openai or groq)", c.Transcription.Provider)
	}
	if c.Transcription.Model == "" {
		return fmt.Errorf("invalid transcription.model: empty")
	}
	if c.Transcription.Language != "" && !language.IsValidCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", c.Transcription.Language)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}
