package tui

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/voxchunk/internal/config"
	"github.com/leonardotrapani/voxchunk/internal/language"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

var providerOptions = []huh.Option[string]{
	huh.NewOption("OpenAI (whisper-1)", "openai"),
	huh.NewOption("Groq (whisper-large-v3)", "groq"),
}

var defaultModels = map[string]string{
	"openai": "whisper-1",
	"groq":   "whisper-large-v3-turbo",
}

// formValues is the editable, string-typed view of a Config.
type formValues struct {
	Endpoint string
	Window   string
	Provider string
	Model    string
	Language string
	APIKey   string
	Save     bool
}

func valuesFromConfig(cfg *config.Config) *formValues {
	return &formValues{
		Endpoint: cfg.Upload.Endpoint,
		Window:   cfg.Window.Duration.String(),
		Provider: cfg.Transcription.Provider,
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		APIKey:   cfg.Transcription.APIKey,
		Save:     true,
	}
}

// apply copies v into a copy of cfg and validates the result.
func (v *formValues) apply(cfg *config.Config) (*config.Config, error) {
	out := *cfg

	window, err := time.ParseDuration(strings.TrimSpace(v.Window))
	if err != nil {
		return nil, fmt.Errorf("invalid window duration: %w", err)
	}

	model := strings.TrimSpace(v.Model)
	if model == "" || (v.Provider != cfg.Transcription.Provider && model == cfg.Transcription.Model) {
		model = defaultModels[v.Provider]
	}

	out.Upload.Endpoint = strings.TrimSpace(v.Endpoint)
	out.Window.Duration = window
	out.Transcription.Provider = v.Provider
	out.Transcription.Model = model
	out.Transcription.Language = strings.TrimSpace(v.Language)
	out.Transcription.APIKey = strings.TrimSpace(v.APIKey)

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func languageOptions() []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption(language.Auto.Label(), language.Auto.Code)}
	for _, l := range language.List() {
		options = append(options, huh.NewOption(l.Label(), l.Code))
	}
	return options
}

func validateEndpoint(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL, e.g. http://localhost:8000/transcribe")
	}
	return nil
}

func validateWindow(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration format (use '1s', '500ms', etc.)")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func buildForm(v *formValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Upload Endpoint").
				Description("Transcription proxy that receives each audio window.").
				Placeholder("http://localhost:8000/transcribe").
				Value(&v.Endpoint).
				Validate(validateEndpoint),
			huh.NewInput().
				Title("Window Duration").
				Description("Audio per upload. 1s gives the lowest latency.").
				Placeholder("1s").
				Value(&v.Window).
				Validate(validateWindow),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Description("Speech-to-text service used by 'voxchunk serve'").
				Options(providerOptions...).
				Value(&v.Provider),
			huh.NewInput().
				Title("Model").
				Description("Leave empty for the provider default.").
				Value(&v.Model),
			huh.NewSelect[string]().
				Title("Language").
				Description("Spoken language, or auto-detect.").
				Options(languageOptions()...).
				Height(8).
				Value(&v.Language),
			huh.NewInput().
				Title("API Key").
				Description("Stored in the config file. Leave empty to use OPENAI_API_KEY / GROQ_API_KEY.").
				EchoMode(huh.EchoModePassword).
				Value(&v.APIKey),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Save").
				Negative("Discard").
				Value(&v.Save),
		),
	).WithTheme(getTheme())
}

// Run shows the configuration form pre-filled from existing.
func Run(existing *config.Config) (*ConfigureResult, error) {
	if existing == nil {
		existing = config.DefaultConfig()
	}

	clearScreen()
	fmt.Println(Logo())
	fmt.Println()

	values := valuesFromConfig(existing)
	for {
		if err := buildForm(values).Run(); err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}
		if !values.Save {
			return &ConfigureResult{Cancelled: true}, nil
		}

		cfg, err := values.apply(existing)
		if err != nil {
			fmt.Println(StyleError.Render("Invalid configuration: " + err.Error()))
			fmt.Println()
			continue
		}

		fmt.Println(StyleBox.Render(summary(cfg)))
		return &ConfigureResult{Config: cfg}, nil
	}
}

func summary(cfg *config.Config) string {
	return strings.Join([]string{
		summaryRow("Endpoint", cfg.Upload.Endpoint),
		summaryRow("Window", cfg.Window.Duration.String()),
		summaryRow("Provider", cfg.Transcription.Provider+" / "+cfg.Transcription.Model),
		summaryRow("Language", language.FromCode(cfg.Transcription.Language).Label()),
		summaryRow("API key", maskAPIKey(cfg.Transcription.APIKey)),
	}, "\n")
}

func maskAPIKey(key string) string {
	if key == "" {
		return "(from environment)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}
