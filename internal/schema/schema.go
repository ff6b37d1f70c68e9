// Package schema describes the JSON shapes the generation service must return.
// A single descriptor drives the prompt text, the structured-output schema sent
// upstream and the required-field check applied to replies.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the JSON type of a field. Values match the generation API's type names.
type Kind string

const (
	String  Kind = "STRING"
	Integer Kind = "INTEGER"
	Number  Kind = "NUMBER"
	Boolean Kind = "BOOLEAN"
	Object  Kind = "OBJECT"
	Array   Kind = "ARRAY"
)

// Field describes one property.
type Field struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool
	Fields      []Field // Object
	Items       *Field  // Array
}

// Schema is a named top-level object.
type Schema struct {
	Name   string
	Fields []Field
}

func str(name, desc string) Field  { return Field{Name: name, Kind: String, Description: desc, Required: true} }
func num(name, desc string) Field  { return Field{Name: name, Kind: Number, Description: desc, Required: true} }
func integer(name, desc string) Field {
	return Field{Name: name, Kind: Integer, Description: desc, Required: true}
}
func boolean(name, desc string) Field {
	return Field{Name: name, Kind: Boolean, Description: desc, Required: true}
}

func object(name, desc string, fields ...Field) Field {
	return Field{Name: name, Kind: Object, Description: desc, Required: true, Fields: fields}
}

func array(name, desc string, items Field) Field {
	return Field{Name: name, Kind: Array, Description: desc, Required: true, Items: &items}
}

func optional(f Field) Field {
	f.Required = false
	return f
}

// VideoPlan is the per-segment visual plan.
var VideoPlan = &Schema{
	Name: "video_plan",
	Fields: []Field{
		object("structure", "Narrative beats of this segment",
			str("hook", "Attention-grabbing opening"),
			str("body", "Main content of the segment"),
			str("cta", "Call to action"),
		),
		object("audio", "Sound design",
			str("voiceover_style", "Voiceover delivery style"),
			str("music_guideline", "Background music guidance"),
		),
		object("captions", "Caption settings",
			boolean("enabled", "Whether the user enabled captions"),
			boolean("required", "Whether the platform requires captions"),
			str("style", "Caption style"),
		),
		object("editing", "Editing rhythm",
			num("pace_seconds_per_cut", "Average seconds per cut"),
			array("transitions", "Transitions used", Field{Kind: String}),
			str("text_safe_area", "Safe area for on-screen text"),
		),
		array("shots", "Shots in this 8-second segment", Field{
			Kind: Object,
			Fields: []Field{
				integer("shot", "Shot number"),
				num("time_start_s", "Start second within the segment, may be fractional"),
				num("time_end_s", "End second within the segment, may be fractional"),
				str("visual", "What the camera shows"),
				str("on_screen_text", "Overlay text, empty when none"),
				str("transition", "Transition into the next shot"),
				boolean("render_text_overlay", "Whether to render the text overlay for this shot"),
			},
		}),
		optional(object("platform_extras", "Platform-specific fields",
			optional(str("productId", "")),
			optional(str("price", "")),
			optional(str("voucher", "")),
		)),
	},
}

// Voiceover is the per-segment voiceover script.
var Voiceover = &Schema{
	Name: "voiceover_script",
	Fields: []Field{
		integer("segment_index", "Index of this segment"),
		integer("duration_seconds", "Duration of this script, should be 8"),
		array("voiceover_script", "Timed spoken lines", Field{
			Kind: Object,
			Fields: []Field{
				num("t", "Second at which the line starts"),
				str("text", "The spoken line"),
			},
		}),
	},
}

// Publishing is the listing metadata for the whole video.
var Publishing = &Schema{
	Name: "publishing_info",
	Fields: []Field{
		str("title", "Video title"),
		str("description", "Video description"),
		str("hashtags", "Space-separated hashtags"),
	},
}

// Required returns the names of the required top-level fields.
func (s *Schema) Required() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Describe renders the schema as an indented outline for inclusion in a prompt.
func (s *Schema) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Return a single JSON object (%s) with these fields:\n", s.Name)
	for _, f := range s.Fields {
		describeField(&b, f, 1)
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeField(b *strings.Builder, f Field, depth int) {
	indent := strings.Repeat("  ", depth)
	typ := strings.ToLower(string(f.Kind))
	if f.Kind == Array && f.Items != nil {
		typ = "array of " + strings.ToLower(string(f.Items.Kind))
	}
	req := ""
	if !f.Required {
		req = ", optional"
	}
	fmt.Fprintf(b, "%s- %s (%s%s)", indent, f.Name, typ, req)
	if f.Description != "" {
		fmt.Fprintf(b, ": %s", f.Description)
	}
	b.WriteString("\n")

	for _, sub := range f.Fields {
		describeField(b, sub, depth+1)
	}
	if f.Items != nil {
		for _, sub := range f.Items.Fields {
			describeField(b, sub, depth+1)
		}
	}
}

// ResponseSchema renders the schema in the structured-output format accepted by
// the generateContent API.
func (s *Schema) ResponseSchema() map[string]any {
	return objectSchema(s.Fields, "")
}

func objectSchema(fields []Field, desc string) map[string]any {
	props := make(map[string]any, len(fields))
	var required []string
	for _, f := range fields {
		props[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	m := map[string]any{
		"type":       string(Object),
		"properties": props,
	}
	if len(required) > 0 {
		m["required"] = required
	}
	if desc != "" {
		m["description"] = desc
	}
	return m
}

func fieldSchema(f Field) map[string]any {
	switch f.Kind {
	case Object:
		return objectSchema(f.Fields, f.Description)
	case Array:
		m := map[string]any{"type": string(Array)}
		if f.Items != nil {
			m["items"] = fieldSchema(*f.Items)
		}
		if f.Description != "" {
			m["description"] = f.Description
		}
		return m
	default:
		m := map[string]any{"type": string(f.Kind)}
		if f.Description != "" {
			m["description"] = f.Description
		}
		return m
	}
}
