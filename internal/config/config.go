// Package config assembles the application configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"

	"github.com/renalscope/renalscope/internal/analysis"
	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/llm"
)

// Prefix is prepended to every environment variable name.
const Prefix = "RENALSCOPE"

// Config is the full application configuration.
type Config struct {
	LLM      llm.Config      `envconfig:"LLM"`
	Analysis analysis.Config `envconfig:"ANALYSIS"`
	HTTP     HTTPConfig      `envconfig:"HTTP"`
	Log      LogConfig       `envconfig:"LOG"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr            string        `envconfig:"ADDR" validate:"required"`
	MaxUploadBytes  int64         `envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

type LogConfig struct {
	Mode string `envconfig:"MODE" validate:"oneof=development dev production prod"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LLM:      llm.DefaultConfig(),
		Analysis: analysis.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:            ":8080",
			MaxUploadBytes:  20 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Mode: "development"},
	}
}

var validate = validator.New()

// Overrides are command-line settings applied over the environment.
type Overrides struct {
	EnvFiles []string
	Provider string
	Variant  string
}

// Load reads optional dotenv files (".env" when none are given), applies
// RENALSCOPE_* variables over the defaults, and validates the result.
func Load(envFiles ...string) (Config, error) {
	return LoadWith(Overrides{EnvFiles: envFiles})
}

// LoadWith is Load with command-line overrides on top. When no provider is
// chosen explicitly and the default one has no key, the standard provider
// key variables are probed.
func LoadWith(o Overrides) (Config, error) {
	if err := godotenv.Load(o.EnvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	_, explicit := os.LookupEnv(Prefix + "_LLM_PROVIDER")
	if o.Provider != "" {
		cfg.LLM.Provider = o.Provider
		explicit = true
	}
	if o.Variant != "" {
		cfg.Analysis.Variant = o.Variant
	}
	cfg.normalize()

	if !explicit && cfg.LLM.Validate() != nil {
		discover(&cfg.LLM)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and that the selected provider is usable.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// normalize folds enumerated settings to the lower-case forms the
// validators expect.
func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Analysis.Variant = strings.ToLower(strings.TrimSpace(c.Analysis.Variant))
	c.Log.Mode = strings.ToLower(strings.TrimSpace(c.Log.Mode))
}

// Variant returns the configured decision-rule variant.
func (c Config) Variant() diagnosis.RuleVariant {
	v, err := diagnosis.ParseVariant(c.Analysis.Variant)
	if err != nil {
		return diagnosis.VariantOrdered
	}
	return v
}

// discover fills in provider and key from the standard variables, keeping
// every other explicitly configured setting.
func discover(c *llm.Config) {
	found, ok := llm.DiscoverConfig()
	if !ok {
		return
	}
	c.Provider = found.Provider
	c.Gemini.APIKey = lo.CoalesceOrEmpty(c.Gemini.APIKey, found.Gemini.APIKey)
	c.OpenAI.APIKey = lo.CoalesceOrEmpty(c.OpenAI.APIKey, found.OpenAI.APIKey)
	c.Anthropic.APIKey = lo.CoalesceOrEmpty(c.Anthropic.APIKey, found.Anthropic.APIKey)
	c.OpenRouter.APIKey = lo.CoalesceOrEmpty(c.OpenRouter.APIKey, found.OpenRouter.APIKey)
}
