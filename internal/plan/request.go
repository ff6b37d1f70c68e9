package plan

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/platform"
)

// Request is the user-supplied description of the video to plan.
type Request struct {
	Platform        platform.ID       `yaml:"platform" json:"platform"`
	Persona         string            `yaml:"persona" json:"persona_dna"`
	Topic           string            `yaml:"topic" json:"topic"`
	DurationSec     int               `yaml:"duration_sec" json:"duration_sec"`
	CaptionsEnabled bool              `yaml:"captions" json:"captionsEnabled"`
	VoiceTone       string            `yaml:"voice_tone" json:"voiceTone"`
	EmojiEnabled    *bool             `yaml:"emoji_enabled,omitempty" json:"emoji_enabled,omitempty"`
	EmojiStyle      string            `yaml:"emoji_style,omitempty" json:"emoji_style,omitempty"`
	MascotEmoji     string            `yaml:"mascot_emoji,omitempty" json:"mascot_emoji,omitempty"`
	Extras          map[string]string `yaml:"extras,omitempty" json:"extras,omitempty"`
	Language        string            `yaml:"language,omitempty" json:"language,omitempty"`

	// SourceNotes is optional reference material the prompts may draw on.
	SourceNotes string `yaml:"source_notes,omitempty" json:"source_notes,omitempty"`
}

// DefaultRequest returns the request the interactive form starts from.
func DefaultRequest() Request {
	return Request{
		Platform:        platform.Shorts,
		Persona:         platform.DefaultPersona,
		DurationSec:     16,
		CaptionsEnabled: true,
		VoiceTone:       platform.DefaultTone,
		MascotEmoji:     platform.DefaultMascot,
		Language:        "vi",
	}
}

// Validate checks the request before any service call is made.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Persona) == "" {
		return apperr.Invalid("persona is required")
	}
	if strings.TrimSpace(r.Topic) == "" {
		return apperr.Invalid("topic is required")
	}
	if r.DurationSec < platform.SegmentSeconds {
		return apperr.Invalid("duration must be at least %d seconds (got %d)", platform.SegmentSeconds, r.DurationSec)
	}
	if !platform.IsValid(r.Platform) {
		return apperr.Invalid("unknown platform %q", r.Platform)
	}
	if r.VoiceTone != "" {
		if _, err := platform.LookupTone(r.VoiceTone); err != nil {
			return apperr.Invalid("%v", err)
		}
	}
	if _, err := platform.ParseEmojiStyle(r.EmojiStyle); err != nil {
		return apperr.Invalid("%v", err)
	}
	return nil
}

// Tone resolves the request's voice tone, falling back to the default.
func (r Request) Tone() platform.Tone {
	if t, err := platform.LookupTone(r.VoiceTone); err == nil {
		return t
	}
	t, _ := platform.LookupTone(platform.DefaultTone)
	return t
}

// LanguageTag returns the request language or the default "vi".
func (r Request) LanguageTag() string {
	if r.Language == "" {
		return "vi"
	}
	return r.Language
}

// LoadPreset reads a YAML request preset. Fields missing from the file keep
// the values from DefaultRequest.
func LoadPreset(path string) (Request, error) {
	req := DefaultRequest()
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read preset: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse preset %s: %w", path, err)
	}
	return req, nil
}

// ParseExtras turns key=value pairs into an extras map.
func ParseExtras(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid extra %q: expected key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
