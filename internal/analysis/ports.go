//go:generate go run go.uber.org/mock/mockgen -source=ports.go -destination=../mocks/mock_ports.go -package=mocks
package analysis

import (
	"context"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/prompt"
	"github.com/renalscope/renalscope/internal/schema"
)

// Inferer performs single validated model calls. *inference.Adapter is the
// production implementation.
type Inferer interface {
	Infer(ctx context.Context, p prompt.Payload) (*schema.Parsed, error)
	Refine(ctx context.Context, img imageref.Image, variant diagnosis.RuleVariant, priorLabel diagnosis.Label, priorExplanation string) (*schema.Parsed, error)
	ModelID() string
}

// Enricher adds supplementary analytics to a finished result. It is best
// effort: errors are logged and dropped.
type Enricher interface {
	Enrich(ctx context.Context, img imageref.Image, result diagnosis.AnalysisResult) (string, error)
}

// Analyzer is the inbound operation exposed to the CLI, TUI, and HTTP layers.
type Analyzer interface {
	Analyze(ctx context.Context, ref imageref.Reference) (*diagnosis.AnalysisResult, error)
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) (*diagnosis.AnalysisResult, error)
}
