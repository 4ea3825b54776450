package schema

import "github.com/renalscope/renalscope/internal/diagnosis"

func confidenceProp(desc string) map[string]any {
	return map[string]any{
		"type":        "number",
		"minimum":     0.0,
		"maximum":     1.0,
		"description": desc,
	}
}

func diagnosisProp() map[string]any {
	return map[string]any{
		"type":        "string",
		"enum":        diagnosis.LabelValues(),
		"description": "The single diagnosis. Use not_applicable when the image is not a CT scan of a kidney.",
	}
}

// Diagnosis is the shape of the first call: label and confidence only.
var Diagnosis = &Shape{
	Name:        "diagnosis.v1",
	Description: "Classification of a kidney CT scan into one label with a confidence score",
	Order:       []string{"diagnosis", "confidence"},
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"diagnosis":  diagnosisProp(),
			"confidence": confidenceProp("Self-reported certainty of the diagnosis, from 0 to 1."),
		},
		"required":             []any{"diagnosis", "confidence"},
		"additionalProperties": false,
	},
}

// Explanation is the shape of the patient-facing explanation call.
var Explanation = &Shape{
	Name:        "explanation.v1",
	Description: "A patient-facing explanation of an already determined diagnosis",
	Order:       []string{"explanation"},
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"explanation": map[string]any{
				"type":        "string",
				"description": "Plain-language explanation for a patient, mentioning the areas of concern when visible.",
			},
		},
		"required":             []any{"explanation"},
		"additionalProperties": false,
	},
}

// Refinement is the shape of the low-confidence re-evaluation call.
var Refinement = &Shape{
	Name:        "refinement.v1",
	Description: "A re-evaluated diagnosis of a kidney CT scan with explanation and optional analytics",
	Order:       []string{"diagnosis", "confidence", "explanation", "analytics"},
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"diagnosis":  diagnosisProp(),
			"confidence": confidenceProp("Certainty of the re-evaluated diagnosis, from 0 to 1."),
			"explanation": map[string]any{
				"type":        "string",
				"description": "Plain-language explanation for a patient.",
			},
			"analytics": map[string]any{
				"type":        "string",
				"description": "Optional short note on the imaging findings that drove the decision.",
			},
		},
		"required":             []any{"diagnosis", "confidence", "explanation"},
		"additionalProperties": false,
	},
}

// Analytics is the shape of the supplementary analytics call.
var Analytics = &Shape{
	Name:        "analytics.v1",
	Description: "Supplementary analytics about a diagnosed kidney CT scan",
	Order:       []string{"analytics", "confidence"},
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"analytics": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Concise analytics about the finding: location, size, and characteristics when visible.",
			},
			"confidence": confidenceProp("Certainty of the analytics, from 0 to 1."),
		},
		"required":             []any{"analytics", "confidence"},
		"additionalProperties": false,
	},
}

// All returns every shape, for exhaustive checks.
func All() []*Shape {
	return []*Shape{Diagnosis, Explanation, Refinement, Analytics}
}
