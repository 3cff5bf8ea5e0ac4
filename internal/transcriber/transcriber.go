package transcriber

import (
	"context"
	"fmt"
	"os"
)

// Adapter sends one audio container to a speech-to-text provider.
type Adapter interface {
	Transcribe(ctx context.Context, container []byte, filename string) (string, error)
}

type Config struct {
	Provider string
	APIKey   string
	Language string
	Model    string
	BaseURL  string
}

func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Model:    "whisper-1",
	}
}

// New builds the adapter for config.Provider.
func New(config Config) (Adapter, error) {
	switch config.Provider {
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIAdapter(config), nil

	case "groq":
		if config.APIKey == "" {
			return nil, fmt.Errorf("Groq API key required")
		}
		return NewGroqAdapter(config), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// APIKeyEnv names the environment variable consulted when no key is configured.
func APIKeyEnv(provider string) string {
	switch provider {
	case "groq":
		return "GROQ_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func NewFromEnv(provider string) (Adapter, error) {
	config := DefaultConfig()
	config.Provider = provider
	if provider == "groq" {
		config.Model = "whisper-large-v3-turbo"
	}
	config.APIKey = os.Getenv(APIKeyEnv(provider))
	return New(config)
}
