package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/platform"
)

func TestRoleFor(t *testing.T) {
	tests := []struct {
		index, total int
		want         SegmentRole
	}{
		{1, 1, RoleHook},
		{1, 4, RoleHook},
		{2, 2, RolePayoff},
		{2, 4, RoleSetup},
		{3, 4, RoleTurn},
		{4, 4, RolePayoff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoleFor(tt.index, tt.total), "segment %d/%d", tt.index, tt.total)
	}
}

func prevPlan(body, lastVisual string) plan.VideoPlan {
	return plan.VideoPlan{
		Structure: plan.Structure{Body: body},
		Shots:     []plan.Shot{{Shot: 1, Visual: "opening"}, {Shot: 2, Visual: lastVisual}},
	}
}

func TestVisualContinuity(t *testing.T) {
	in := VisualInput{
		Rules:           platform.MustLookup(platform.TikTok),
		Persona:         "P",
		Topic:           "street food",
		Total:           4,
		CaptionsEnabled: true,
		Previous:        []plan.VideoPlan{prevPlan("first body", "v1"), prevPlan("second body", "chef flips pan")},
	}

	in.Index = 2
	assert.NotContains(t, Visual(in), "CONTINUITY")

	in.Index = 3
	p := Visual(in)
	assert.Contains(t, p, "CONTINUITY")
	assert.Contains(t, p, `covered "second body"`)
	assert.Contains(t, p, `"chef flips pan"`)
	assert.Contains(t, p, string(RoleTurn))
}

func TestVisualCaptions(t *testing.T) {
	in := VisualInput{Rules: platform.MustLookup(platform.Shopee), Persona: "P", Topic: "T", Index: 1, Total: 1}

	off := Visual(in)
	assert.Contains(t, off, "Captions: DISABLED")
	assert.Contains(t, off, `"render_text_overlay" must be false`)

	in.CaptionsEnabled = true
	on := Visual(in)
	assert.Contains(t, on, "Captions: REQUIRED. Style: Price tag")
	assert.Contains(t, on, "Platform: Shopee")
	assert.Contains(t, on, "Aspect ratio: 9:16")
	assert.Contains(t, on, "- shots (array of object)")

	in.Rules = platform.MustLookup(platform.YouTube)
	assert.Contains(t, Visual(in), "Captions: Optional")
}

func TestVisualReferenceNotes(t *testing.T) {
	in := VisualInput{Rules: platform.MustLookup(platform.Reels), Persona: "P", Topic: "T", Index: 1, Total: 2}
	assert.NotContains(t, Visual(in), "REFERENCE NOTES")

	in.SourceNotes = "Fact one."
	assert.Contains(t, Visual(in), "REFERENCE NOTES")
}

func TestVoiceover(t *testing.T) {
	tone, _ := platform.LookupTone("energetic")
	in := VoiceoverInput{
		Rules:   platform.MustLookup(platform.Shorts),
		Persona: "P",
		Topic:   "T",
		Total:   3,
		Tone:    tone,
		Plan: plan.VideoPlan{Shots: []plan.Shot{
			{Shot: 1, TimeStartS: 0, TimeEndS: 2, Visual: "close-up", OnScreenText: ""},
			{Shot: 2, TimeStartS: 2, TimeEndS: 8, Visual: "wide", OnScreenText: "WOW"},
		}},
		Previous: []plan.VoiceoverScript{
			{Lines: []plan.VoiceoverLine{{Text: "one"}}},
			{Lines: []plan.VoiceoverLine{{Text: "first"}, {Text: "so that's the trick"}}},
		},
	}

	in.Index = 2
	p := Voiceover(in)
	assert.NotContains(t, p, "CONTINUITY NOTE")
	assert.Contains(t, p, "Shot 1 [0s - 2s]")
	assert.Contains(t, p, "On-screen text: none")
	assert.Contains(t, p, "On-screen text: WOW")
	assert.Contains(t, p, `"Energetic & excited"`)
	assert.Contains(t, p, "Clear, quick rhythm")
	assert.Contains(t, p, "7.5 SECONDS")
	assert.Contains(t, p, "segment_index MUST be 2")

	in.Index = 3
	assert.Contains(t, Voiceover(in), `previous segment was: "so that's the trick"`)

	in.Previous = append(in.Previous, plan.VoiceoverScript{})
	assert.Contains(t, Voiceover(in), `"[no dialogue]"`)
}

func TestPublishing(t *testing.T) {
	shopee := platform.MustLookup(platform.Shopee)
	emoji := platform.ResolveEmoji(shopee, nil, platform.EmojiExtra, "")
	p := Publishing(PublishingInput{Rules: shopee, Duration: 24, Topic: "earbuds", Persona: "P", Emoji: emoji})

	assert.Contains(t, p, "at most 80 characters")
	assert.Contains(t, p, "Use 0-3 emoji")
	assert.Contains(t, p, `"🦡" may appear at most once`)
	assert.Contains(t, p, "🛒💥💸")
	assert.Contains(t, p, "between 2 and 6 hashtags")
	assert.Contains(t, p, "mandatory: #Shopee #Deal")
	assert.NotContains(t, p, "Chapters")

	yt := platform.MustLookup(platform.YouTube)
	p = Publishing(PublishingInput{Rules: yt, Duration: 120, Topic: "t", Persona: "P", Emoji: platform.ResolveEmoji(yt, nil, "", "")})
	assert.Contains(t, p, "Chapters")
	assert.Contains(t, p, "full 120s")
	assert.Equal(t, 2, strings.Count(p, "Do not use any emoji."))
	assert.Contains(t, p, "mandatory: none")
}

func TestHookImage(t *testing.T) {
	p := HookImage(plan.VideoPlan{
		AspectRatio: "9:16",
		Topic:       "latte art",
		PersonaDNA:  "barista",
		Shots:       []plan.Shot{{Visual: "milk pours into a cup"}},
	})
	assert.Contains(t, p, "aspect ratio 9:16")
	assert.Contains(t, p, "milk pours into a cup")
	assert.Contains(t, p, "Do not include any text")
}
