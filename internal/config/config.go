package config

import (
	"os"
	"time"

	"github.com/leonardotrapani/voxchunk/internal/recording"
	"github.com/leonardotrapani/voxchunk/internal/server"
	"github.com/leonardotrapani/voxchunk/internal/session"
	"github.com/leonardotrapani/voxchunk/internal/transcriber"
	"github.com/leonardotrapani/voxchunk/internal/upload"
)

type Config struct {
	Recording     RecordingConfig     `toml:"recording"`
	Window        WindowConfig        `toml:"window"`
	Upload        UploadConfig        `toml:"upload"`
	Server        ServerConfig        `toml:"server"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	BufferSize        int    `toml:"buffer_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type WindowConfig struct {
	Duration time.Duration `toml:"duration"`
}

type UploadConfig struct {
	Endpoint      string        `toml:"endpoint"`
	Timeout       time.Duration `toml:"timeout"`
	MaxRetries    int           `toml:"max_retries"`
	MaxConcurrent int           `toml:"max_concurrent"`
}

type ServerConfig struct {
	Address         string        `toml:"address"`
	StaticDir       string        `toml:"static_dir"`
	VendorDir       string        `toml:"vendor_dir"`
	MaxUploadBytes  int64         `toml:"max_upload_bytes"`
	ProviderTimeout time.Duration `toml:"provider_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type TranscriptionConfig struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Language string `toml:"language"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToSessionConfig() session.Config {
	return session.Config{Window: c.Window.Duration}
}

func (c *Config) ToUploadConfig() upload.Config {
	return upload.Config{
		Endpoint:      c.Upload.Endpoint,
		Timeout:       c.Upload.Timeout,
		MaxRetries:    c.Upload.MaxRetries,
		MaxConcurrent: c.Upload.MaxConcurrent,
	}
}

func (c *Config) ToServerConfig() server.Config {
	return server.Config{
		Address:         c.Server.Address,
		StaticDir:       c.Server.StaticDir,
		VendorDir:       c.Server.VendorDir,
		MaxUploadBytes:  c.Server.MaxUploadBytes,
		ProviderTimeout: c.Server.ProviderTimeout,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider: c.Transcription.Provider,
		APIKey:   c.ResolveAPIKey(),
		Language: c.Transcription.Language,
		Model:    c.Transcription.Model,
		BaseURL:  c.Transcription.BaseURL,
	}
}

// ResolveAPIKey returns the configured key, falling back to the provider's
// environment variable.
func (c *Config) ResolveAPIKey() string {
	if c.Transcription.APIKey != "" {
		return c.Transcription.APIKey
	}
	return os.Getenv(transcriber.APIKeyEnv(c.Transcription.Provider))
}
