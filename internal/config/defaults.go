package config

import "time"

func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
		},
		Window: WindowConfig{
			Duration: time.Second,
		},
		Upload: UploadConfig{
			Endpoint:      "http://localhost:8000/transcribe",
			Timeout:       30 * time.Second,
			MaxRetries:    0,
			MaxConcurrent: 0,
		},
		Server: ServerConfig{
			Address:         ":8000",
			StaticDir:       "public",
			VendorDir:       "",
			MaxUploadBytes:  32 << 20,
			ProviderTimeout: 60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Transcription: TranscriptionConfig{
			Provider: "openai",
			Language: "",
			Model:    "whisper-1",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
	}
}

const defaultConfigContent = `# voxchunk configuration
# Changes to [transcription] are picked up by a running server without restart.

# Microphone capture (PipeWire pw-record)
[recording]
  sample_rate = 16000          # Hz; windows and WAV headers use this rate
  channels = 1                 # mono only
  format = "s16"               # signed 16-bit little-endian
  buffer_size = 8192           # bytes read from pw-record per frame
  device = ""                  # PipeWire target (empty = default microphone)
  channel_buffer_size = 30     # frames queued before the reader waits

# Batching
[window]
  duration = "1s"              # audio per uploaded WAV file

# Upload client
[upload]
  endpoint = "http://localhost:8000/transcribe"
  timeout = "30s"              # per request
  max_retries = 0              # extra attempts after a failed upload
  max_concurrent = 0           # in-flight uploads (0 = unbounded)

# Transcription proxy (voxchunk serve)
[server]
  address = ":8000"
  static_dir = "public"        # client bundle served at /
  vendor_dir = ""              # optional vendored client library served at /vendor/
  max_upload_bytes = 33554432
  provider_timeout = "60s"
  shutdown_timeout = "10s"

# Speech-to-text provider used by the server
[transcription]
  provider = "openai"          # "openai" or "groq"
  api_key = ""                 # or OPENAI_API_KEY / GROQ_API_KEY
  language = ""                # empty for auto-detect, or ISO-639-1 ("en", "it", ...)
  model = "whisper-1"          # groq: "whisper-large-v3" or "whisper-large-v3-turbo"
  base_url = ""                # override for OpenAI-compatible endpoints

# Notifications
[notifications]
  enabled = true
  type = "log"                 # "desktop", "log", "none"
`
