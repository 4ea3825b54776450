package prompt

import (
	"fmt"
	"text/template"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/schema"
)

type ruleStep struct {
	Label    diagnosis.Label
	Name     string
	Evidence string
	Last     bool
	Earlier  []string
}

type procedureData struct {
	Variant diagnosis.RuleVariant
	Steps   []ruleStep
}

var procedureTemplate = template.Must(template.New("procedure").Funcs(funcs).Parse(
	`Step 1. IMAGE VALIDATION: first verify that the image is a CT scan of a human kidney. If it is not, the diagnosis MUST be "not_applicable" and your confidence states how sure you are that it is not a kidney CT scan. Stop here.

Step 2. DECISION PROCEDURE ({{.Variant}}): {{if eq .Variant "holistic"}}weigh all of the evidence in the image before deciding. When more than one finding has supporting evidence, the finding listed first overrides every finding listed after it.{{else}}check the findings below in this exact order. The first finding whose evidence is present decides the diagnosis; do not evaluate the findings after it.{{end}} Exactly one label applies.
{{range $i, $s := .Steps}}
  Rule {{inc $i}}: {{upper $s.Name}} ({{quote (print $s.Label)}})
    Evidence: {{$s.Evidence}}
{{- if $s.Last}}
    Decision: if none of the findings above apply, the diagnosis MUST be {{quote (print $s.Label)}}.
{{- else if $i}}
    Decision: only if no {{range $j, $e := $s.Earlier}}{{if $j}} or {{end}}{{$e}}{{end}} was found and this evidence is present, the diagnosis MUST be {{quote (print $s.Label)}}. Stop here.
{{- else}}
    Decision: if this evidence is present, the diagnosis MUST be {{quote (print $s.Label)}}{{if eq $.Variant "holistic"}}, regardless of any other finding{{end}}. Stop here.
{{- end}}
{{end}}`))

var diagnoseTemplate = template.Must(template.New("diagnose").Funcs(funcs).Parse(
	`Analyze the attached image and determine the single most accurate diagnosis. Avoid classifying normal anatomy as disease.

{{.Procedure}}
Step 3. CONFIDENCE: report how certain you are of the chosen label as a number between 0 and 1.

{{.Format}}`))

// Build renders the diagnosis-only payload for the given decision-rule variant.
func Build(img imageref.Image, variant diagnosis.RuleVariant) (Payload, error) {
	if err := validImage(img); err != nil {
		return Payload{}, err
	}
	procedure, err := decisionProcedure(variant)
	if err != nil {
		return Payload{}, err
	}
	format, err := outputFormat(schema.Diagnosis)
	if err != nil {
		return Payload{}, err
	}

	text, err := render(diagnoseTemplate, map[string]string{
		"Procedure": procedure,
		"Format":    format,
	})
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Purpose:      PurposeDiagnose,
		System:       systemPrompt,
		Instructions: text,
		Image:        img,
		Shape:        schema.Diagnosis,
	}, nil
}

func decisionProcedure(variant diagnosis.RuleVariant) (string, error) {
	if !variant.Valid() {
		return "", fmt.Errorf("unknown rule variant %q", variant)
	}

	order := variant.Precedence()
	steps := make([]ruleStep, 0, len(order))
	var earlier []string
	for i, l := range order {
		f := diagnosis.GetFinding(l)
		if f == nil {
			return "", fmt.Errorf("no finding registered for %q", l)
		}
		steps = append(steps, ruleStep{
			Label:    l,
			Name:     f.Name,
			Evidence: f.Evidence,
			Last:     i == len(order)-1,
			Earlier:  append([]string(nil), earlier...),
		})
		earlier = append(earlier, string(l))
	}

	return render(procedureTemplate, procedureData{Variant: variant, Steps: steps})
}
