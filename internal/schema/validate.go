package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/renalscope/renalscope/internal/diagnosis"
)

const rootField = "(root)"

var printer = message.NewPrinter(language.English)

// decimalNumber matches plain decimal notation with an optional exponent.
// Hex floats, underscores, Inf and NaN are not numbers here.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Parsed is a model response that passed validation. Fields the shape does
// not declare are left zero.
type Parsed struct {
	Shape       string
	Diagnosis   diagnosis.Label
	Confidence  float64
	Explanation string
	Analytics   string

	// Model is filled in by the inference layer.
	Model string
}

// Violation is one broken rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in one response.
type ValidationError struct {
	Shape      string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return fmt.Sprintf("model output does not match %s: %s", e.Shape, strings.Join(parts, "; "))
}

// Has reports whether any violation concerns field.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Validate checks raw model output against shape. On failure the error is a
// *ValidationError naming every violated field.
func Validate(raw []byte, shape *Shape) (parsed *Parsed, err error) {
	defer func() {
		if r := recover(); r != nil {
			parsed = nil
			err = &ValidationError{
				Shape:      shape.Name,
				Violations: []Violation{{Field: rootField, Message: fmt.Sprintf("validator failure: %v", r)}},
			}
		}
	}()

	doc, err := decodeObject(raw)
	if err != nil {
		return nil, &ValidationError{
			Shape:      shape.Name,
			Violations: []Violation{{Field: rootField, Message: err.Error()}},
		}
	}

	coerceNumbers(doc, shape.numberProps())

	compiled, err := shape.schema()
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", shape.Name, err)
	}

	var violations []Violation
	if verr := compiled.Validate(any(doc)); verr != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(verr, &ve) {
			return nil, fmt.Errorf("validate %s: %w", shape.Name, verr)
		}
		violations = collect(ve, violations)
	}
	violations = append(violations, crossFieldViolations(doc, shape)...)

	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool {
			return violations[i].Field < violations[j].Field
		})
		return nil, &ValidationError{Shape: shape.Name, Violations: dedupe(violations)}
	}

	return toParsed(doc, shape), nil
}

// decodeObject extracts a single JSON object from raw. Models sometimes wrap
// JSON in prose or markdown fences; the outermost {...} is taken in that case.
func decodeObject(raw []byte) (map[string]any, error) {
	s := bytes.TrimSpace(raw)
	if len(s) == 0 {
		return nil, errors.New("response is empty")
	}

	candidate := s
	if !json.Valid(s) {
		start := bytes.IndexByte(s, '{')
		end := bytes.LastIndexByte(s, '}')
		if start < 0 || end <= start {
			return nil, errors.New("response contains no JSON object")
		}
		candidate = s[start : end+1]
	}

	var v any
	if err := json.Unmarshal(candidate, &v); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response is a JSON %s, not an object", jsonKind(v))
	}
	return obj, nil
}

// coerceNumbers replaces decimal strings in number properties with their
// float value. Anything else stays a string so the schema check reports it.
func coerceNumbers(doc map[string]any, props []string) {
	for _, name := range props {
		s, ok := doc[name].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if !decimalNumber.MatchString(s) {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		doc[name] = f
	}
}

func collect(ve *jsonschema.ValidationError, out []Violation) []Violation {
	if len(ve.Causes) > 0 {
		for _, c := range ve.Causes {
			out = collect(c, out)
		}
		return out
	}

	switch k := ve.ErrorKind.(type) {
	case *kind.Required:
		for _, name := range k.Missing {
			out = append(out, Violation{Field: joinField(ve.InstanceLocation, name), Message: "is required"})
		}
		return out
	case *kind.AdditionalProperties:
		for _, name := range k.Properties {
			out = append(out, Violation{Field: joinField(ve.InstanceLocation, name), Message: "is not allowed"})
		}
		return out
	}

	return append(out, Violation{
		Field:   joinField(ve.InstanceLocation, ""),
		Message: ve.ErrorKind.LocalizedString(printer),
	})
}

func crossFieldViolations(doc map[string]any, shape *Shape) []Violation {
	if !shape.Declares("explanation") {
		return nil
	}
	text, ok := doc["explanation"].(string)
	if !ok {
		// Missing or wrong type is already reported by the schema.
		return nil
	}
	if label, _ := doc["diagnosis"].(string); label == string(diagnosis.LabelNotApplicable) {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return []Violation{{Field: "explanation", Message: "must not be blank"}}
	}
	return nil
}

func toParsed(doc map[string]any, shape *Shape) *Parsed {
	p := &Parsed{Shape: shape.Name}
	if s, ok := doc["diagnosis"].(string); ok {
		p.Diagnosis = diagnosis.Label(s)
	}
	if f, ok := doc["confidence"].(float64); ok {
		p.Confidence = f
	}
	p.Explanation, _ = doc["explanation"].(string)
	p.Analytics, _ = doc["analytics"].(string)
	return p
}

func joinField(loc []string, name string) string {
	parts := append(append([]string(nil), loc...), name)
	field := strings.Trim(strings.Join(parts, "."), ".")
	if field == "" {
		return rootField
	}
	return field
}

func dedupe(vs []Violation) []Violation {
	out := vs[:0]
	var prev Violation
	for i, v := range vs {
		if i > 0 && v == prev {
			continue
		}
		out = append(out, v)
		prev = v
	}
	return out
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
