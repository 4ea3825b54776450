package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/schema"
)

var explainTemplate = template.Must(template.New("explain").Funcs(funcs).Parse(
	`The attached kidney CT scan has already been diagnosed. Do not change or question the diagnosis.

Diagnosis: {{.Name}} ({{quote .Label}})
Confidence: {{num .Confidence}}

Write a clear, calm explanation of this result for the patient. Use plain language and short sentences, avoid medical jargon, and where possible describe where on the image the areas of concern are. Do not give treatment advice beyond recommending that the patient discuss the result with their doctor.

{{.Format}}`))

// BuildExplanation renders the patient-facing explanation payload for an
// already determined label.
func BuildExplanation(img imageref.Image, label diagnosis.Label, confidence float64) (Payload, error) {
	if err := validImage(img); err != nil {
		return Payload{}, err
	}
	f := diagnosis.GetFinding(label)
	if f == nil {
		return Payload{}, fmt.Errorf("no explanation prompt for label %q", label)
	}
	format, err := outputFormat(schema.Explanation)
	if err != nil {
		return Payload{}, err
	}

	text, err := render(explainTemplate, map[string]any{
		"Name":       f.Name,
		"Label":      string(label),
		"Confidence": confidence,
		"Format":     format,
	})
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Purpose:      PurposeExplain,
		System:       systemPrompt,
		Instructions: text,
		Image:        img,
		Shape:        schema.Explanation,
	}, nil
}

var refineTemplate = template.Must(template.New("refine").Funcs(funcs).Parse(
	`A previous analysis of the attached image was not confident. Re-evaluate the image from scratch.

Previous diagnosis: {{quote .PriorLabel}}
Previous explanation: {{.PriorExplanation}}

Treat the previous result as context only. You may keep the previous diagnosis or change it to any other label if the image supports a different finding.

{{.Procedure}}
Step 3. Report your confidence in the re-evaluated label, a patient-friendly explanation that refers to the image features behind it, and optionally a concise description of the key observations as analytics.

{{.Format}}`))

// BuildRefinement renders the re-evaluation payload carrying the prior
// result as context.
func BuildRefinement(img imageref.Image, variant diagnosis.RuleVariant, priorLabel diagnosis.Label, priorExplanation string) (Payload, error) {
	if err := validImage(img); err != nil {
		return Payload{}, err
	}
	if !priorLabel.Valid() {
		return Payload{}, fmt.Errorf("prior diagnosis %q outside the label set", priorLabel)
	}
	procedure, err := decisionProcedure(variant)
	if err != nil {
		return Payload{}, err
	}
	format, err := outputFormat(schema.Refinement)
	if err != nil {
		return Payload{}, err
	}

	prior := strings.TrimSpace(priorExplanation)
	if prior == "" {
		prior = "(none)"
	}
	text, err := render(refineTemplate, map[string]string{
		"PriorLabel":       string(priorLabel),
		"PriorExplanation": prior,
		"Procedure":        procedure,
		"Format":           format,
	})
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Purpose:      PurposeRefine,
		System:       systemPrompt,
		Instructions: text,
		Image:        img,
		Shape:        schema.Refinement,
	}, nil
}

// DefaultAnalyticsFocus is used when no focus is given.
const DefaultAnalyticsFocus = "location, approximate size, and characteristics of the finding"

var analyticsTemplate = template.Must(template.New("analytics").Funcs(funcs).Parse(
	`The attached kidney CT scan has been diagnosed as {{.Name}} ({{quote .Label}}).

Generate concise supplementary analytics about this finding, focusing on: {{.Focus}}. Report only what is visible in the image, and give a confidence between 0 and 1 for the analytics.

{{.Format}}`))

// BuildAnalytics renders the supplementary analytics payload.
func BuildAnalytics(img imageref.Image, label diagnosis.Label, focus string) (Payload, error) {
	if err := validImage(img); err != nil {
		return Payload{}, err
	}
	f := diagnosis.GetFinding(label)
	if f == nil {
		return Payload{}, fmt.Errorf("no analytics prompt for label %q", label)
	}
	if strings.TrimSpace(focus) == "" {
		focus = DefaultAnalyticsFocus
	}
	format, err := outputFormat(schema.Analytics)
	if err != nil {
		return Payload{}, err
	}

	text, err := render(analyticsTemplate, map[string]string{
		"Name":   f.Name,
		"Label":  string(label),
		"Focus":  strings.TrimSpace(focus),
		"Format": format,
	})
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Purpose:      PurposeAnalytics,
		System:       systemPrompt,
		Instructions: text,
		Image:        img,
		Shape:        schema.Analytics,
	}, nil
}
