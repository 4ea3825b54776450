package diagnosis

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// TaxonomyVersion identifies the label set and decision rules below.
// Bump it whenever a label, criterion, or precedence changes.
const TaxonomyVersion = "kidney-ct.v1"

// Finding describes one label: what the model should look for and what a
// patient is told when no tailored explanation is available.
type Finding struct {
	Label    Label
	Name     string
	Evidence string

	// Fallback is the generic patient-facing explanation used when the
	// explanation call fails.
	Fallback string
}

// RuleVariant selects the tie-break policy of the decision procedure.
type RuleVariant string

const (
	// VariantOrdered checks findings in a fixed order; first match wins.
	VariantOrdered RuleVariant = "ordered"

	// VariantHolistic weighs all evidence and lets a tumor finding override
	// any other finding.
	VariantHolistic RuleVariant = "holistic"
)

var precedence = map[RuleVariant][]Label{
	VariantOrdered:  {LabelStone, LabelTumor, LabelCyst, LabelNormal},
	VariantHolistic: {LabelTumor, LabelStone, LabelCyst, LabelNormal},
}

// registry is the package-level finding registry, keyed by label.
var registry map[Label]*Finding

func init() {
	registry = make(map[Label]*Finding, len(seedFindings))
	for i := range seedFindings {
		f := &seedFindings[i]
		registry[f.Label] = f
	}
}

// GetFinding returns the finding for a label, or nil if unknown.
func GetFinding(l Label) *Finding {
	return registry[l]
}

// Labels returns the closed label set in canonical order.
func Labels() []Label {
	return []Label{LabelNormal, LabelCyst, LabelTumor, LabelStone, LabelNotApplicable}
}

// LabelValues returns the label set as schema enum values.
func LabelValues() []any {
	return lo.Map(Labels(), func(l Label, _ int) any { return string(l) })
}

// Valid reports whether l belongs to the closed set.
func (l Label) Valid() bool {
	return lo.Contains(Labels(), l)
}

// ParseLabel maps a string onto the closed set. Matching is exact; aliases
// such as "not_a_ct_scan" are rejected.
func ParseLabel(s string) (Label, error) {
	l := Label(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown diagnosis label %q", s)
	}
	return l, nil
}

// Precedence returns the order in which findings are checked for v.
func (v RuleVariant) Precedence() []Label {
	return append([]Label(nil), precedence[v]...)
}

// Valid reports whether v names a known variant.
func (v RuleVariant) Valid() bool {
	_, ok := precedence[v]
	return ok
}

// ParseVariant accepts a variant name case-insensitively. Empty selects the default.
func ParseVariant(s string) (RuleVariant, error) {
	if strings.TrimSpace(s) == "" {
		return VariantOrdered, nil
	}
	v := RuleVariant(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown rule variant %q (want %s or %s)", s, VariantOrdered, VariantHolistic)
	}
	return v, nil
}

// NotApplicableExplanation is returned verbatim when the image is not a
// kidney CT scan.
const NotApplicableExplanation = "The uploaded image does not appear to be a CT scan of a kidney, so it could not be analyzed. Please upload a kidney CT scan image and try again."

// FallbackExplanation returns the generic explanation for l.
func FallbackExplanation(l Label) string {
	if l == LabelNotApplicable {
		return NotApplicableExplanation
	}
	if f := GetFinding(l); f != nil {
		return f.Fallback
	}
	return "The analysis finished, but a detailed explanation is not available right now. Please discuss the result with your doctor."
}
