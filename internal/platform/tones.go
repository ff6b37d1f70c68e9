package platform

import (
	"fmt"
	"strings"
)

// Tone is one of the enumerated voiceover tones.
type Tone struct {
	ID    string
	Label string
}

// Tones lists the supported voiceover tones; the first is the default.
var Tones = []Tone{
	{ID: "friendly", Label: "Friendly & approachable"},
	{ID: "professional", Label: "Professional & trustworthy"},
	{ID: "energetic", Label: "Energetic & excited"},
	{ID: "storytelling", Label: "Storytelling & captivating"},
	{ID: "humorous", Label: "Humorous & witty"},
	{ID: "serious", Label: "Serious & profound"},
}

// DefaultTone is the tone used when none is given.
const DefaultTone = "friendly"

// LookupTone resolves a tone by id or by its label, case-insensitively.
func LookupTone(s string) (Tone, error) {
	s = strings.TrimSpace(s)
	for _, t := range Tones {
		if strings.EqualFold(t.ID, s) || strings.EqualFold(t.Label, s) {
			return t, nil
		}
	}
	ids := make([]string, len(Tones))
	for i, t := range Tones {
		ids[i] = t.ID
	}
	return Tone{}, fmt.Errorf("invalid tone %q: must be one of %s", s, strings.Join(ids, ", "))
}

// DefaultPersona is the persona description used when the caller does not
// supply one.
const DefaultPersona = `voice: "VN_BARITONE_01"
physics: "no teleport effects; people and objects may pass behind occluders"
style: "friendly, crisp, short sentences"`

// LanguageName maps a language tag to the name used in prompts.
func LanguageName(tag string) string {
	switch strings.ToLower(tag) {
	case "vi", "":
		return "Vietnamese"
	case "en":
		return "English"
	case "id":
		return "Indonesian"
	case "th":
		return "Thai"
	case "ja":
		return "Japanese"
	default:
		return tag
	}
}

// VoiceLocale maps a language tag to the BCP-47 locale of its speech voices.
// Tags that already carry a region are returned unchanged.
func VoiceLocale(tag string) string {
	switch strings.ToLower(tag) {
	case "vi", "":
		return "vi-VN"
	case "en":
		return "en-US"
	case "id":
		return "id-ID"
	case "th":
		return "th-TH"
	case "ja":
		return "ja-JP"
	default:
		return tag
	}
}
