// Package prompt renders the instruction payloads sent with each model call.
// Every builder is pure: the same inputs always produce the same payload.
package prompt

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/llm"
	"github.com/renalscope/renalscope/internal/schema"
)

// Purposes label each call type in logs.
const (
	PurposeDiagnose  = "diagnose"
	PurposeExplain   = "explain"
	PurposeRefine    = "refine"
	PurposeAnalytics = "analytics"
)

// Payload is everything one model call needs.
type Payload struct {
	Purpose      string
	System       string
	Instructions string
	Image        imageref.Image
	Shape        *schema.Shape
}

// Request converts the payload into a provider request with the image
// attached to the same user turn as the instructions.
func (p Payload) Request(maxTokens int, temperature float64) llm.Request {
	return llm.Request{
		System: p.System,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: p.Instructions,
			Images:  []llm.Image{p.Image.LLM()},
		}},
		Schema:      p.Shape.LLMSchema(),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

const systemPrompt = `You are a world-class radiologist AI specializing in kidney CT scans. You examine one image at a time and report exactly what the instructions ask for.

Rules:
- Base every answer only on what is visible in the attached image.
- Never invent findings to justify a label.
- Respond with a single JSON object matching the requested format. No prose, no markdown.`

var funcs = template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"quote": strconv.Quote,
	"num":   func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
	"deref": func(f *float64) string { return strconv.FormatFloat(*f, 'f', -1, 64) },
	"upper": strings.ToUpper,
}

var formatTemplate = template.Must(template.New("format").Funcs(funcs).Parse(
	`Output format: respond with one JSON object with exactly these fields:
{{range .}}- {{quote .Name}} ({{.Type}}{{if .Required}}, required{{else}}, optional{{end}}){{if .Enum}}: one of {{range $i, $e := .Enum}}{{if $i}}, {{end}}{{quote $e}}{{end}}{{end}}{{if and .Minimum .Maximum}}: a number from {{deref .Minimum}} to {{deref .Maximum}} inclusive{{end}}.{{if .Description}} {{.Description}}{{end}}
{{end}}`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func outputFormat(shape *schema.Shape) (string, error) {
	return render(formatTemplate, shape.Fields())
}

func validImage(img imageref.Image) error {
	if len(img.Data) == 0 || img.MIMEType == "" {
		return fmt.Errorf("prompt needs a resolved image")
	}
	return nil
}
