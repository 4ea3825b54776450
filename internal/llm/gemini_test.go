package llm

import (
	"testing"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-1.5-flash", "gemini-1.5-flash"},
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"diagnosis":  map[string]any{"type": "string", "enum": []any{"normal", "cyst", "tumor"}},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"slices":     map[string]any{"type": "integer"},
			"areas": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer"},
			},
		},
		"required": []any{"diagnosis", "confidence"},
	}

	schema := buildGeminiSchema(def)

	if schema.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if len(schema.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(schema.Properties))
	}
	if schema.Properties["diagnosis"].Type != "STRING" {
		t.Fatalf("expected STRING for diagnosis, got %s", schema.Properties["diagnosis"].Type)
	}
	if len(schema.Properties["diagnosis"].Enum) != 3 {
		t.Fatalf("expected 3 enum values, got %d", len(schema.Properties["diagnosis"].Enum))
	}
	conf := schema.Properties["confidence"]
	if conf.Type != "NUMBER" {
		t.Fatalf("expected NUMBER for confidence, got %s", conf.Type)
	}
	if conf.Minimum == nil || *conf.Minimum != 0 || conf.Maximum == nil || *conf.Maximum != 1 {
		t.Fatalf("expected [0,1] bounds on confidence, got %v..%v", conf.Minimum, conf.Maximum)
	}
	if schema.Properties["slices"].Type != "INTEGER" {
		t.Fatalf("expected INTEGER for slices, got %s", schema.Properties["slices"].Type)
	}
	if schema.Properties["areas"].Items.Type != "INTEGER" {
		t.Fatalf("expected INTEGER for areas items, got %s", schema.Properties["areas"].Items.Type)
	}
	if len(schema.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %d", len(schema.Required))
	}
}

func TestBuildGeminiContents_InlineImage(t *testing.T) {
	contents := buildGeminiContents([]Message{{
		Role:    RoleUser,
		Content: "Classify the scan.",
		Images:  []Image{{MIMEType: "image/png", Data: []byte{0x89, 'P'}}},
	}})
	if len(contents) != 1 || contents[0].Role != "user" {
		t.Fatalf("unexpected contents: %+v", contents)
	}
	parts := contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected image and text parts, got %d", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/png" {
		t.Fatalf("expected inline png first, got %+v", parts[0])
	}
	if parts[1].Text != "Classify the scan." {
		t.Fatalf("unexpected text part: %q", parts[1].Text)
	}
}
