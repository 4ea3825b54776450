package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/renalscope/renalscope/internal/llm"
)

// Shape is a named, versioned JSON Schema for one model call type.
type Shape struct {
	// Name is versioned, e.g. "diagnosis.v1".
	Name        string
	Description string

	// Order lists the properties in the order prompts should present them.
	Order      []string
	Definition map[string]any

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// LLMSchema returns the shape as an llm.Schema. Dots are not legal in
// OpenAI schema names, so the version separator becomes a dash.
func (s *Shape) LLMSchema() *llm.Schema {
	return &llm.Schema{
		Name:        strings.ReplaceAll(s.Name, ".", "-"),
		Description: s.Description,
		Definition:  s.Definition,
	}
}

// Field describes one property for prompt rendering.
type Field struct {
	Name        string
	Type        string
	Description string
	Enum        []string
	Minimum     *float64
	Maximum     *float64
	Required    bool
}

// Fields returns the shape's properties in Order.
func (s *Shape) Fields() []Field {
	props, _ := s.Definition["properties"].(map[string]any)
	out := make([]Field, 0, len(s.Order))
	for _, name := range s.Order {
		def, _ := props[name].(map[string]any)
		f := Field{Name: name, Required: s.requires(name)}
		f.Type, _ = def["type"].(string)
		f.Description, _ = def["description"].(string)
		if enum, ok := def["enum"].([]any); ok {
			for _, e := range enum {
				f.Enum = append(f.Enum, fmt.Sprint(e))
			}
		}
		if v, ok := def["minimum"].(float64); ok {
			f.Minimum = &v
		}
		if v, ok := def["maximum"].(float64); ok {
			f.Maximum = &v
		}
		out = append(out, f)
	}
	return out
}

// Declares reports whether the shape has a property called name.
func (s *Shape) Declares(name string) bool {
	props, _ := s.Definition["properties"].(map[string]any)
	_, ok := props[name]
	return ok
}

func (s *Shape) requires(name string) bool {
	req, _ := s.Definition["required"].([]any)
	for _, r := range req {
		if r == name {
			return true
		}
	}
	return false
}

func (s *Shape) numberProps() []string {
	props, _ := s.Definition["properties"].(map[string]any)
	var out []string
	for name, v := range props {
		if def, ok := v.(map[string]any); ok && def["type"] == "number" {
			out = append(out, name)
		}
	}
	return out
}

func (s *Shape) schema() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		s.compiled, s.err = compile(s)
	})
	return s.compiled, s.err
}

func compile(s *Shape) (*jsonschema.Schema, error) {
	// The compiler wants plain JSON values, so round-trip the definition.
	defBytes, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", s.Name, err)
	}
	var doc any
	if err := json.Unmarshal(defBytes, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", s.Name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", s.Name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", s.Name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", s.Name, err)
	}
	return compiled, nil
}
