package platform

import "fmt"

// EmojiStyle controls how many emoji the publishing metadata may carry.
type EmojiStyle string

const (
	EmojiMinimal EmojiStyle = "minimal"
	EmojiNormal  EmojiStyle = "normal"
	EmojiExtra   EmojiStyle = "extra"
)

// DefaultMascot is used when the request leaves the mascot glyph empty.
const DefaultMascot = "🦡"

// EmojiDefaults is the per-platform emoji policy used when the request does
// not override it.
type EmojiDefaults struct {
	Enabled bool
	Style   EmojiStyle
	Palette []string
}

// EmojiPolicy is the resolved emoji configuration for one run.
type EmojiPolicy struct {
	Enabled bool
	Style   EmojiStyle
	Palette []string
	Mascot  string
}

// TitleBudget returns the maximum number of emoji allowed in a title.
func (s EmojiStyle) TitleBudget() int {
	switch s {
	case EmojiMinimal:
		return 1
	case EmojiExtra:
		return 3
	default:
		return 2
	}
}

// ParseEmojiStyle validates s. The empty string is accepted and means
// "use the platform default".
func ParseEmojiStyle(s string) (EmojiStyle, error) {
	switch EmojiStyle(s) {
	case "", EmojiMinimal, EmojiNormal, EmojiExtra:
		return EmojiStyle(s), nil
	}
	return "", fmt.Errorf("invalid emoji style %q: must be minimal, normal, or extra", s)
}

// ResolveEmoji merges request overrides onto the platform defaults.
func ResolveEmoji(r Rules, enabled *bool, style EmojiStyle, mascot string) EmojiPolicy {
	p := EmojiPolicy{
		Enabled: r.Emoji.Enabled,
		Style:   r.Emoji.Style,
		Palette: r.Emoji.Palette,
		Mascot:  mascot,
	}
	if enabled != nil {
		p.Enabled = *enabled
	}
	if style != "" {
		p.Style = style
	}
	if p.Style == "" {
		p.Style = EmojiMinimal
	}
	if p.Mascot == "" {
		p.Mascot = DefaultMascot
	}
	return p
}
