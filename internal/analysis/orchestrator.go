// Package analysis sequences the model calls that make up one scan analysis.
package analysis

import (
	"context"
	"errors"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/inference"
	"github.com/renalscope/renalscope/internal/logger"
	"github.com/renalscope/renalscope/internal/prompt"
)

// Event reports a state transition. Result is a snapshot and is nil before
// the first diagnosis exists.
type Event struct {
	Stage  diagnosis.Stage
	Result *diagnosis.AnalysisResult
	Err    error
}

// Observer receives state transitions of an analysis.
type Observer func(Event)

type observerKey struct{}

// WithObserverContext attaches a per-call observer to ctx.
func WithObserverContext(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, obs)
}

// Orchestrator runs the Validate → Explain → CheckConfidence → Refine state
// machine. It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	inferer   Inferer
	resolver  *imageref.Resolver
	threshold float64
	variant   diagnosis.RuleVariant
	enricher  Enricher
	observer  Observer
	log       *logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithThreshold(t float64) Option { return func(o *Orchestrator) { o.threshold = t } }

func WithVariant(v diagnosis.RuleVariant) Option { return func(o *Orchestrator) { o.variant = v } }

// WithEnricher installs a supplementary analytics source. Nil disables it.
func WithEnricher(e Enricher) Option { return func(o *Orchestrator) { o.enricher = e } }

// WithObserver installs an observer for every analysis.
func WithObserver(obs Observer) Option { return func(o *Orchestrator) { o.observer = obs } }

func WithResolver(r *imageref.Resolver) Option { return func(o *Orchestrator) { o.resolver = r } }

func WithLogger(l *logger.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// New creates an Orchestrator around an injected Inferer.
func New(inferer Inferer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inferer:   inferer,
		resolver:  imageref.NewResolver(),
		threshold: DefaultThreshold,
		variant:   diagnosis.VariantOrdered,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Variant returns the decision-rule variant in use.
func (o *Orchestrator) Variant() diagnosis.RuleVariant { return o.variant }

// AnalyzeImage analyzes raw image bytes.
func (o *Orchestrator) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (*diagnosis.AnalysisResult, error) {
	return o.Analyze(ctx, imageref.FromBytes(data, mimeType))
}

// Analyze resolves ref and runs the full analysis. On failure the error is a
// *diagnosis.AnalysisError and no result is returned.
func (o *Orchestrator) Analyze(ctx context.Context, ref imageref.Reference) (*diagnosis.AnalysisResult, error) {
	img, err := o.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return o.AnalyzeResolved(ctx, img)
}

func (o *Orchestrator) resolve(ctx context.Context, ref imageref.Reference) (imageref.Image, error) {
	img, err := o.resolver.Resolve(ctx, ref)
	if err != nil {
		kind := diagnosis.KindInvalidInput
		if errors.Is(err, imageref.ErrUnreachable) {
			kind = diagnosis.KindUnknown
		}
		o.log.Warn("image rejected", "kind", ref.Kind(), "error", err.Error())
		return imageref.Image{}, &diagnosis.AnalysisError{Kind: kind, Stage: diagnosis.StageResolve, Err: err}
	}
	return img, nil
}

// run is the mutable state of one analysis. It never escapes the call.
type run struct {
	img    imageref.Image
	result diagnosis.AnalysisResult
	calls  int
	err    error
}

// AnalyzeResolved runs the state machine on an already resolved image.
func (o *Orchestrator) AnalyzeResolved(ctx context.Context, img imageref.Image) (*diagnosis.AnalysisResult, error) {
	r := &run{img: img}
	log := o.log.With("fingerprint", img.Fingerprint()[:12], "variant", string(o.variant))

	stage := diagnosis.StageValidate
	for stage != diagnosis.StageDone && stage != diagnosis.StageFailed {
		o.notify(ctx, Event{Stage: stage, Result: r.snapshot()})
		stage = o.step(ctx, r, stage)
	}

	if stage == diagnosis.StageDone {
		stage = o.done(ctx, r)
	}

	if stage == diagnosis.StageFailed {
		o.notify(ctx, Event{Stage: stage, Err: r.err})
		log.Error("analysis failed",
			"kind", string(diagnosis.KindOf(r.err)),
			"calls", r.calls,
			"error", r.err.Error(),
		)
		return nil, r.err
	}

	result := r.result
	o.notify(ctx, Event{Stage: stage, Result: &result})
	log.Info("analysis complete",
		"diagnosis", string(result.Diagnosis),
		"confidence", result.Confidence,
		"refined", result.Refined,
		"calls", r.calls,
	)
	return &result, nil
}

func (o *Orchestrator) step(ctx context.Context, r *run, stage diagnosis.Stage) diagnosis.Stage {
	switch stage {
	case diagnosis.StageValidate:
		return o.validate(ctx, r)
	case diagnosis.StageExplain:
		return o.explain(ctx, r)
	case diagnosis.StageCheckConfidence:
		return o.checkConfidence(r)
	case diagnosis.StageRefine:
		return o.refine(ctx, r)
	}
	r.err = &diagnosis.AnalysisError{
		Kind:  diagnosis.KindInvariantViolation,
		Stage: stage,
		Err:   errors.New("unknown state"),
	}
	return diagnosis.StageFailed
}

// validate obtains the primary diagnosis. Failure here is fatal.
func (o *Orchestrator) validate(ctx context.Context, r *run) diagnosis.Stage {
	p, err := prompt.Build(r.img, o.variant)
	if err != nil {
		r.err = &diagnosis.AnalysisError{Kind: diagnosis.KindUnknown, Stage: diagnosis.StageValidate, Err: err}
		return diagnosis.StageFailed
	}

	r.calls++
	parsed, err := o.inferer.Infer(ctx, p)
	if err != nil {
		r.err = &diagnosis.AnalysisError{Kind: kindFor(err), Stage: diagnosis.StageValidate, Err: err}
		return diagnosis.StageFailed
	}

	r.result = diagnosis.AnalysisResult{
		Diagnosis:  parsed.Diagnosis,
		Confidence: parsed.Confidence,
		Model:      parsed.Model,
	}
	if parsed.Diagnosis == diagnosis.LabelNotApplicable {
		r.result.Explanation = diagnosis.NotApplicableExplanation
		return diagnosis.StageDone
	}
	return diagnosis.StageExplain
}

// explain fetches the patient-facing explanation. Failure falls back to a
// generic explanation and ends the analysis.
func (o *Orchestrator) explain(ctx context.Context, r *run) diagnosis.Stage {
	text, err := o.fetchExplanation(ctx, r)
	if err != nil {
		o.log.Warn("explanation unavailable, using fallback",
			"diagnosis", string(r.result.Diagnosis),
			"kind", string(inference.KindOf(err)),
			"error", err.Error(),
		)
		r.result.Explanation = diagnosis.FallbackExplanation(r.result.Diagnosis)
		return diagnosis.StageDone
	}
	r.result.Explanation = text
	return diagnosis.StageCheckConfidence
}

func (o *Orchestrator) fetchExplanation(ctx context.Context, r *run) (string, error) {
	p, err := prompt.BuildExplanation(r.img, r.result.Diagnosis, r.result.Confidence)
	if err != nil {
		return "", err
	}
	r.calls++
	parsed, err := o.inferer.Infer(ctx, p)
	if err != nil {
		return "", err
	}
	return parsed.Explanation, nil
}

func (o *Orchestrator) checkConfidence(r *run) diagnosis.Stage {
	if r.result.IsLowConfidence(o.threshold) {
		return diagnosis.StageRefine
	}
	return diagnosis.StageDone
}

// refine re-queries with the prior result as context. Success replaces the
// result wholesale; failure keeps it untouched.
func (o *Orchestrator) refine(ctx context.Context, r *run) diagnosis.Stage {
	r.calls++
	parsed, err := o.inferer.Refine(ctx, r.img, o.variant, r.result.Diagnosis, r.result.Explanation)
	if err != nil {
		o.log.Warn("refinement failed, keeping first result",
			"diagnosis", string(r.result.Diagnosis),
			"confidence", r.result.Confidence,
			"kind", string(inference.KindOf(err)),
			"error", err.Error(),
		)
		return diagnosis.StageDone
	}

	explanation := parsed.Explanation
	if parsed.Diagnosis == diagnosis.LabelNotApplicable && explanation == "" {
		explanation = diagnosis.NotApplicableExplanation
	}
	r.result = diagnosis.AnalysisResult{
		Diagnosis:   parsed.Diagnosis,
		Confidence:  parsed.Confidence,
		Explanation: explanation,
		Analytics:   parsed.Analytics,
		Refined:     true,
		Model:       parsed.Model,
	}
	return diagnosis.StageDone
}

// done consults the enricher, then checks the result before it leaves.
func (o *Orchestrator) done(ctx context.Context, r *run) diagnosis.Stage {
	if err := ctx.Err(); err != nil {
		r.err = &diagnosis.AnalysisError{Kind: diagnosis.KindUnknown, Stage: diagnosis.StageDone, Err: err}
		return diagnosis.StageFailed
	}

	if o.enricher != nil && r.result.Analytics == "" && r.result.Diagnosis != diagnosis.LabelNotApplicable {
		r.calls++
		analytics, err := o.enricher.Enrich(ctx, r.img, r.result)
		if err != nil {
			o.log.Warn("analytics enrichment failed", "error", err.Error())
		} else {
			r.result.Analytics = analytics
		}
	}

	if err := r.result.CheckInvariants(); err != nil {
		r.err = &diagnosis.AnalysisError{Kind: diagnosis.KindInvariantViolation, Stage: diagnosis.StageDone, Err: err}
		return diagnosis.StageFailed
	}
	return diagnosis.StageDone
}

func (o *Orchestrator) notify(ctx context.Context, ev Event) {
	if o.observer != nil {
		o.observer(ev)
	}
	if obs, ok := ctx.Value(observerKey{}).(Observer); ok && obs != nil {
		obs(ev)
	}
}

func (r *run) snapshot() *diagnosis.AnalysisResult {
	if r.result.Diagnosis == "" {
		return nil
	}
	s := r.result
	return &s
}

// kindFor maps an inference failure onto the analysis error taxonomy.
func kindFor(err error) diagnosis.ErrorKind {
	switch inference.KindOf(err) {
	case inference.KindUnavailable:
		return diagnosis.KindUpstreamUnavailable
	case inference.KindTimeout:
		return diagnosis.KindUpstreamTimeout
	case inference.KindMalformedOutput:
		return diagnosis.KindMalformedOutput
	}
	return diagnosis.KindUnknown
}
