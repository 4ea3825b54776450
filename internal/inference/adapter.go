// Package inference performs single, validated model calls.
package inference

import (
	"context"
	"time"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/llm"
	"github.com/renalscope/renalscope/internal/logger"
	"github.com/renalscope/renalscope/internal/prompt"
	"github.com/renalscope/renalscope/internal/schema"
)

// Config bounds each call.
type Config struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// ConfigFrom copies the per-call settings out of the LLM configuration.
func ConfigFrom(cfg llm.Config) Config {
	return Config{
		Timeout:     cfg.Timeout,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}

// Adapter sends one payload per call and validates the answer. It never
// retries; retry policy lives in the provider decorators.
type Adapter struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger
}

// New creates an Adapter around an injected provider.
func New(provider llm.Provider, cfg Config, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = llm.DefaultConfig().Timeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultConfig().MaxTokens
	}
	return &Adapter{provider: provider, cfg: cfg, log: log}
}

// ModelID returns the model the provider is configured for.
func (a *Adapter) ModelID() string {
	return a.provider.ModelID()
}

// Infer makes exactly one model call for p, bounded by the configured
// timeout, and returns the validated result.
func (a *Adapter) Infer(ctx context.Context, p prompt.Payload) (*schema.Parsed, error) {
	callCtx, cancel := context.WithTimeout(llm.WithPurpose(ctx, p.Purpose), a.cfg.Timeout)
	defer cancel()

	resp, err := a.provider.Generate(callCtx, p.Request(a.cfg.MaxTokens, a.cfg.Temperature))
	if err != nil {
		return nil, a.fail(ctx, p, err)
	}

	parsed, err := schema.Validate(resp.Content, p.Shape)
	if err != nil {
		return nil, a.fail(ctx, p, err)
	}

	parsed.Model = resp.Model
	if parsed.Model == "" {
		parsed.Model = a.provider.ModelID()
	}
	return parsed, nil
}

// Refine re-evaluates a prior result. It is Infer with the refinement payload.
func (a *Adapter) Refine(ctx context.Context, img imageref.Image, variant diagnosis.RuleVariant, priorLabel diagnosis.Label, priorExplanation string) (*schema.Parsed, error) {
	p, err := prompt.BuildRefinement(img, variant, priorLabel, priorExplanation)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Purpose: prompt.PurposeRefine, Err: err}
	}
	return a.Infer(ctx, p)
}

func (a *Adapter) fail(ctx context.Context, p prompt.Payload, err error) error {
	ie := &Error{Kind: classify(ctx, err), Purpose: p.Purpose, Err: err}
	a.log.Warn("inference failed",
		"purpose", p.Purpose,
		"kind", string(ie.Kind),
		"shape", p.Shape.Name,
		"error", err.Error(),
	)
	return ie
}
