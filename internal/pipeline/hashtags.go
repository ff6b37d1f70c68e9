package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/platform"
)

// fallbackTags pad the hashtag list after the topic words and the platform id.
var fallbackTags = []string{"#trending", "#video", "#viral", "#fyp"}

func normalizePublishing(info plan.PublishingInfo, r platform.Rules, topic string) plan.PublishingInfo {
	return plan.PublishingInfo{
		Title:       truncateRunes(strings.TrimSpace(info.Title), r.SEO.TitleMaxChars),
		Description: strings.TrimSpace(info.Description),
		Hashtags:    strings.Join(NormalizeHashtags(info.Hashtags, r, topic), " "),
	}
}

// NormalizeHashtags cleans the model's hashtag string and forces the count into
// the platform bounds with every mandatory tag present and listed first.
func NormalizeHashtags(raw string, r platform.Rules, topic string) []string {
	seen := map[string]bool{}
	var tags []string
	add := func(tag string) bool {
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			return false
		}
		seen[key] = true
		tags = append(tags, tag)
		return true
	}

	for _, t := range r.SEO.RequiredHashtags {
		add(cleanTag(t))
	}
	for _, t := range splitTags(raw) {
		add(cleanTag(t))
	}

	if hi := r.SEO.HashtagMax; hi > 0 && len(tags) > hi {
		tags = tags[:hi]
	}

	if len(tags) < r.SEO.HashtagMin {
		var pad []string
		for _, w := range strings.Fields(topic) {
			if utf8.RuneCountInString(cleanTag(w)) > 3 {
				pad = append(pad, cleanTag(w))
			}
		}
		pad = append(pad, "#"+string(r.ID))
		pad = append(pad, fallbackTags...)
		for _, t := range pad {
			if len(tags) >= r.SEO.HashtagMin {
				break
			}
			add(t)
		}
	}
	return tags
}

func splitTags(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}

// cleanTag strips emoji, punctuation and other symbols and prefixes the result
// with '#'. Combining marks survive only after a kept letter. It returns ""
// when nothing is left.
func cleanTag(s string) string {
	var b strings.Builder
	afterLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			afterLetter = true
		case unicode.IsMark(r) && afterLetter && !unicode.Is(unicode.Variation_Selector, r):
			b.WriteRune(r)
		default:
			afterLetter = false
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "#" + b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
