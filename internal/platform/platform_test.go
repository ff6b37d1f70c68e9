package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		platform  ID
		requested int
		duration  int
		segments  int
	}{
		{"shorts 16s", Shorts, 16, 16, 2},
		{"rounds down to grid", TikTok, 19, 16, 2},
		{"rounds up to grid", TikTok, 20, 24, 3},
		{"minimum one segment", TikTok, 8, 8, 1},
		{"clamped to max", Shorts, 100, 60, 8},
		{"reels allows 90", Reels, 88, 88, 11},
		{"youtube clamps up to min", YouTube, 16, 120, 15},
		{"shopee upper bound", Shopee, 64, 60, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(tt.requested, MustLookup(tt.platform))
			assert.Equal(t, tt.duration, n.Duration)
			assert.Equal(t, tt.segments, n.Segments)
			assert.Equal(t, tt.requested, n.Requested)
		})
	}
}

func TestNormalizeProperties(t *testing.T) {
	for _, r := range All() {
		for d := 8; d <= 400; d++ {
			n := Normalize(d, r)
			require.GreaterOrEqual(t, n.Duration, r.MinSec, "%s d=%d", r.ID, d)
			require.LessOrEqual(t, n.Duration, r.MaxSec, "%s d=%d", r.ID, d)
			require.GreaterOrEqual(t, n.Segments, 1)

			inBounds := n.Duration != r.MinSec && n.Duration != r.MaxSec
			if inBounds {
				require.Zero(t, n.Duration%SegmentSeconds, "%s d=%d gave %d", r.ID, d, n.Duration)
				require.Equal(t, n.Duration/SegmentSeconds, n.Segments)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	r, err := Lookup(Shopee)
	require.NoError(t, err)
	assert.True(t, r.HasExtras())
	assert.Equal(t, []string{"#Shopee", "#Deal"}, r.SEO.RequiredHashtags)
	assert.Equal(t, "Price tag", r.PrimaryCaptionStyle())

	_, err = Lookup("myspace")
	assert.Error(t, err)

	assert.False(t, MustLookup(Shorts).HasExtras())
	assert.Len(t, IDs(), 5)
}

func TestResolveEmoji(t *testing.T) {
	off := false

	p := ResolveEmoji(MustLookup(TikTok), nil, "", "")
	assert.True(t, p.Enabled)
	assert.Equal(t, EmojiNormal, p.Style)
	assert.Equal(t, DefaultMascot, p.Mascot)

	p = ResolveEmoji(MustLookup(TikTok), &off, EmojiExtra, "🐼")
	assert.False(t, p.Enabled)
	assert.Equal(t, EmojiExtra, p.Style)
	assert.Equal(t, "🐼", p.Mascot)

	p = ResolveEmoji(MustLookup(YouTube), nil, "", "")
	assert.False(t, p.Enabled)
	assert.Equal(t, EmojiMinimal, p.Style)
}

func TestTitleBudget(t *testing.T) {
	assert.Equal(t, 1, EmojiMinimal.TitleBudget())
	assert.Equal(t, 2, EmojiNormal.TitleBudget())
	assert.Equal(t, 3, EmojiExtra.TitleBudget())

	_, err := ParseEmojiStyle("loud")
	assert.Error(t, err)
}

func TestLookupTone(t *testing.T) {
	tone, err := LookupTone("Energetic")
	require.NoError(t, err)
	assert.Equal(t, "energetic", tone.ID)

	tone, err = LookupTone("humorous & witty")
	require.NoError(t, err)
	assert.Equal(t, "humorous", tone.ID)

	_, err = LookupTone("grumpy")
	assert.Error(t, err)
}

func TestLanguageTags(t *testing.T) {
	assert.Equal(t, "Vietnamese", LanguageName(""))
	assert.Equal(t, "English", LanguageName("EN"))
	assert.Equal(t, "pt-BR", LanguageName("pt-BR"))

	assert.Equal(t, "vi-VN", VoiceLocale("vi"))
	assert.Equal(t, "en-US", VoiceLocale("en"))
	assert.Equal(t, "pt-BR", VoiceLocale("pt-BR"))
}
