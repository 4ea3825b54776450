package diagnosis

import "math"

// Label is one outcome of the closed classification set.
type Label string

const (
	LabelNormal        Label = "normal"
	LabelCyst          Label = "cyst"
	LabelTumor         Label = "tumor"
	LabelStone         Label = "stone"
	LabelNotApplicable Label = "not_applicable"
)

// AnalysisResult is the unified output of one analysis.
type AnalysisResult struct {
	Diagnosis   Label   `json:"diagnosis"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	Analytics   string  `json:"analytics,omitempty"`

	// Refined is set when a low-confidence refinement replaced the first answer.
	Refined bool `json:"refined"`

	// Model is the model that produced the diagnosis.
	Model string `json:"model,omitempty"`
}

// IsLowConfidence reports whether the result falls under threshold.
func (r *AnalysisResult) IsLowConfidence(threshold float64) bool {
	return r.Confidence < threshold
}

// CheckInvariants returns a non-nil error describing the first broken
// invariant of a completed result.
func (r *AnalysisResult) CheckInvariants() error {
	if r == nil {
		return errInvariant("result is nil")
	}
	if !r.Diagnosis.Valid() {
		return errInvariant("diagnosis %q outside the label set", r.Diagnosis)
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return errInvariant("confidence %v outside [0,1]", r.Confidence)
	}
	if r.Explanation == "" {
		return errInvariant("explanation is empty")
	}
	return nil
}
