package prompt

import (
	"fmt"
	"strings"

	"github.com/apresai/shortsmith/internal/platform"
	"github.com/apresai/shortsmith/internal/schema"
)

// PublishingInput is everything the publishing prompt depends on.
type PublishingInput struct {
	Rules       platform.Rules
	Duration    int
	Topic       string
	Persona     string
	Emoji       platform.EmojiPolicy
	Language    string
	SourceNotes string
}

// Publishing builds the prompt for the title, description and hashtags.
func Publishing(in PublishingInput) string {
	r := in.Rules
	context := fmt.Sprintf(`CONTEXT:
- Topic: "%s"
- Platform: %s
- Persona: "%s"
- Total duration: %ds`, in.Topic, r.Label, in.Persona, in.Duration)

	task := "TASK:\nFrom the context above, create a JSON object with 'title', 'description' and 'hashtags'. Strictly follow every rule for each field below. Write the title and description in " +
		platform.LanguageName(in.Language) + "."

	output := fmt.Sprintf("OUTPUT:\n%s\n\nReturn only the JSON object, with no explanation and no markdown.", schema.Publishing.Describe())

	return join(
		"YOU ARE AN EXPERT SOCIAL MEDIA CONTENT CREATOR.",
		context,
		referenceBlock(in.SourceNotes),
		task,
		TitleRules(r, in.Emoji),
		DescriptionRules(r, in.Duration, in.Emoji),
		HashtagRules(r, in.Topic),
		output,
	)
}

// TitleRules composes the title sub-rules.
func TitleRules(r platform.Rules, e platform.EmojiPolicy) string {
	var emoji []string
	if e.Enabled {
		emoji = append(emoji,
			fmt.Sprintf("- Style: %s. Use 0-%d emoji.", e.Style, e.Style.TitleBudget()),
			"- Only use emoji from this set: "+strings.Join(e.Palette, " "),
		)
		if e.Mascot != "" {
			emoji = append(emoji, fmt.Sprintf(`- The mascot emoji "%s" may appear at most once, at the end of the title.`, e.Mascot))
		}
	} else {
		emoji = append(emoji, "- Do not use any emoji.")
	}
	return fmt.Sprintf(`TITLE:
- Write a compelling title for %s of at most %d characters.
- Consider the hook formula: "topic + big result + short time + little effort".
- Emoji rules for the title:
%s`, r.Label, r.SEO.TitleMaxChars, strings.Join(emoji, "\n"))
}

// DescriptionRules composes the description sub-rules.
func DescriptionRules(r platform.Rules, duration int, e platform.EmojiPolicy) string {
	var emoji []string
	if e.Enabled {
		emoji = []string{
			"- Line 1 (hook): 0-1 emoji from: " + strings.Join(e.Palette, " "),
			"- Lines 2-3 (body): at most 1 emoji per line.",
			fmt.Sprintf("- Last line (CTA): add exactly 1 strong emoji (for example from: %s).", r.StrongCTAEmojis),
			fmt.Sprintf(`- Mascot: the mascot emoji "%s" may be used once at the end of the description (optional).`, e.Mascot),
			"- Never put emoji inside hashtags.",
		}
	} else {
		emoji = []string{"- Do not use any emoji."}
	}

	chapters := ""
	if wantsChapters(r, duration) {
		chapters = fmt.Sprintf("\n- Add a \"Chapters\" section with timestamps covering the full %ds.", duration)
	}

	return fmt.Sprintf(`DESCRIPTION:
- Write 2-4 lines with this structure:
  - Line 1: a short, catchy hook restating the main idea.
  - Lines 2-3: summarize 1-2 key points or benefits.
  - Last line: one clear call to action following: "%s".%s
- Emoji rules for the description:
%s`, r.CTAGuideline, chapters, strings.Join(emoji, "\n"))
}

// HashtagRules composes the hashtag sub-rules.
func HashtagRules(r platform.Rules, topic string) string {
	required := "none"
	if len(r.SEO.RequiredHashtags) > 0 {
		required = strings.Join(r.SEO.RequiredHashtags, " ")
	}
	return fmt.Sprintf(`HASHTAGS:
- Produce between %d and %d hashtags.
- Every hashtag must relate closely to the topic "%s".
- These hashtags are mandatory: %s.
- Return them as a single string separated by spaces (for example "#tag1 #tag2 #tag3").`,
		r.SEO.HashtagMin, r.SEO.HashtagMax, topic, required)
}

func wantsChapters(r platform.Rules, duration int) bool {
	return r.ID == platform.YouTube && duration > 30
}
