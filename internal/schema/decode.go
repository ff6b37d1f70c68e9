package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apresai/shortsmith/internal/apperr"
)

// Decode validates a raw model reply against s and unmarshals it into out.
// Every structural problem is reported as UpstreamMalformedOutput.
func Decode(raw string, s *Schema, out any) error {
	text := strings.TrimSpace(extractJSON(stripFences(raw)))
	if text == "" {
		return apperr.Malformed(fmt.Errorf("%s: empty reply", s.Name))
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return apperr.Malformed(fmt.Errorf("%s: parse reply: %w", s.Name, err))
	}
	for _, name := range s.Required() {
		if v, ok := fields[name]; !ok || v == nil {
			return apperr.Malformed(fmt.Errorf("%s: missing required field %q", s.Name, name))
		}
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return apperr.Malformed(fmt.Errorf("%s: decode reply: %w", s.Name, err))
	}
	return nil
}

// stripFences removes a leading ``` or ```json line and a trailing ``` from
// a reply. Fences inside the object are left alone.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, "```"); ok {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimPrefix(rest, "json")
		}
		text = rest
	}
	return strings.TrimSuffix(strings.TrimSpace(text), "```")
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
