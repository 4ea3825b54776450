package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration. Field tags are read by
// envconfig when this struct is embedded in the application config.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string `envconfig:"PROVIDER" validate:"oneof=anthropic openai gemini openrouter mock"`

	Anthropic  AnthropicConfig  `envconfig:"ANTHROPIC"`
	OpenAI     OpenAIConfig     `envconfig:"OPENAI"`
	Gemini     GeminiConfig     `envconfig:"GEMINI"`
	OpenRouter OpenRouterConfig `envconfig:"OPENROUTER"`
	Retry      RetryConfig      `envconfig:"RETRY"`

	// Timeout bounds a single model call. Default: 30s.
	Timeout time.Duration `envconfig:"TIMEOUT" validate:"gt=0"`

	// MaxTokens is the response token budget for each call.
	MaxTokens int `envconfig:"MAX_TOKENS" validate:"gt=0"`

	// Temperature is passed to every call. Low values keep labels stable.
	Temperature float64 `envconfig:"TEMPERATURE" validate:"gte=0,lte=1"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `envconfig:"API_KEY"`
	Model  string `envconfig:"MODEL"` // Default: "claude-sonnet"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `envconfig:"API_KEY"`
	Model   string `envconfig:"MODEL"`    // Default: "gpt-4o"
	BaseURL string `envconfig:"BASE_URL"` // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `envconfig:"API_KEY"`
	Model  string `envconfig:"MODEL"` // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `envconfig:"API_KEY"`
	Model   string `envconfig:"MODEL"`    // Default: "google/gemini-2.5-flash"
	BaseURL string `envconfig:"BASE_URL"` // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures the optional retry decorator. MaxAttempts of 1
// disables retries; the analysis pipeline surfaces upstream flakiness
// unless a deployment opts in here.
type RetryConfig struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" validate:"gte=1"`
	InitialWait time.Duration `envconfig:"INITIAL_WAIT"`
	MaxWait     time.Duration `envconfig:"MAX_WAIT"`
	Multiplier  float64       `envconfig:"MULTIPLIER"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "gemini",
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.5-flash",
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout:     30 * time.Second,
		MaxTokens:   1024,
		Temperature: 0.1,
	}
}

// DiscoverConfig probes standard API key env vars in priority order
// (Gemini → OpenAI → Anthropic → OpenRouter) and returns a Config for the
// first provider whose key is found. Returns (Config{}, false) if none found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if k := os.Getenv(name); k != "" {
			cfg.Provider = "gemini"
			cfg.Gemini.APIKey = k
			return cfg, true
		}
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// HasKey reports whether the selected provider has its API key set.
func (c Config) HasKey() bool {
	return c.Validate() == nil
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("RENALSCOPE_LLM_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("RENALSCOPE_LLM_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("RENALSCOPE_LLM_GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("RENALSCOPE_LLM_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
