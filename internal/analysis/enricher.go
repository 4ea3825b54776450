package analysis

import (
	"context"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/prompt"
)

// AnalyticsEnricher asks the model for supplementary analytics about a
// finished diagnosis.
type AnalyticsEnricher struct {
	inferer Inferer
	focus   string
}

// NewAnalyticsEnricher creates an enricher. An empty focus uses
// prompt.DefaultAnalyticsFocus.
func NewAnalyticsEnricher(inferer Inferer, focus string) *AnalyticsEnricher {
	return &AnalyticsEnricher{inferer: inferer, focus: focus}
}

func (e *AnalyticsEnricher) Enrich(ctx context.Context, img imageref.Image, result diagnosis.AnalysisResult) (string, error) {
	p, err := prompt.BuildAnalytics(img, result.Diagnosis, e.focus)
	if err != nil {
		return "", err
	}
	parsed, err := e.inferer.Infer(ctx, p)
	if err != nil {
		return "", err
	}
	return parsed.Analytics, nil
}
