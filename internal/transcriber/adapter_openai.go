package transcriber

import (
	"bytes"
	"context"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIAdapter implements Adapter for the OpenAI audio transcription API and
// any endpoint speaking the same protocol.
type OpenAIAdapter struct {
	client *openai.Client
	config Config
	name   string
}

func NewOpenAIAdapter(config Config) *OpenAIAdapter {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   "openai",
	}
}

// NewGroqAdapter targets Groq's OpenAI-compatible Whisper endpoint.
func NewGroqAdapter(config Config) *OpenAIAdapter {
	if config.BaseURL == "" {
		config.BaseURL = groqBaseURL
	}
	a := NewOpenAIAdapter(config)
	a.name = "groq"
	return a
}

func (a *OpenAIAdapter) Transcribe(ctx context.Context, container []byte, filename string) (string, error) {
	if len(container) == 0 {
		return "", nil
	}
	if filename == "" {
		filename = "audio.wav"
	}

	req := openai.AudioRequest{
		Model:    a.config.Model,
		Reader:   bytes.NewReader(container),
		FilePath: filename,
		Language: a.config.Language,
	}

	start := time.Now()
	resp, err := a.client.CreateTranscription(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("%s-adapter: API call failed after %v: %v", a.name, duration, err)
		return "", NewProviderError(a.name, err)
	}

	log.Printf("%s-adapter: transcribed %s (%d bytes) in %v: %q", a.name, filename, len(container), duration, resp.Text)
	return resp.Text, nil
}
