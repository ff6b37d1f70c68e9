// Package platform holds the static rule table for every supported publishing
// platform and the duration normalizer derived from it.
package platform

import (
	"fmt"
	"sort"
)

// ID identifies a publishing platform.
type ID string

const (
	TikTok  ID = "tiktok"
	Shorts  ID = "shorts"
	YouTube ID = "youtube"
	Reels   ID = "reels"
	Shopee  ID = "shopee"
)

// SEO holds the publishing-metadata constraints for a platform.
type SEO struct {
	TitleMaxChars    int
	HashtagMin       int
	HashtagMax       int
	RequiredHashtags []string
}

// Rules is the immutable configuration for one platform.
type Rules struct {
	ID                ID
	Label             string
	AspectRatio       string
	MinSec            int
	MaxSec            int
	PaceSecondsPerCut float64
	VoiceoverStyles   []string
	MusicGuideline    string
	CaptionsRequired  bool
	CaptionStyles     []string
	HookGuideline     string
	CTAGuideline      string
	SEO               SEO
	ExtraFields       []string
	Emoji             EmojiDefaults
	// StrongCTAEmojis are suggested for the final description line.
	StrongCTAEmojis string
}

// HasExtras reports whether the platform defines platform-specific extra fields.
func (r Rules) HasExtras() bool { return len(r.ExtraFields) > 0 }

// PrimaryVoiceoverStyle returns the first voiceover style hint, or a neutral default.
func (r Rules) PrimaryVoiceoverStyle() string {
	if len(r.VoiceoverStyles) == 0 {
		return "clear and concise"
	}
	return r.VoiceoverStyles[0]
}

// PrimaryCaptionStyle returns the first caption style, or "" when none is defined.
func (r Rules) PrimaryCaptionStyle() string {
	if len(r.CaptionStyles) == 0 {
		return ""
	}
	return r.CaptionStyles[0]
}

var shortFormPalette = []string{"🔥", "✨", "⚡️", "🎯", "💡", "🚀", "📱", "🎵", "📸", "😄"}

var table = map[ID]Rules{
	TikTok: {
		ID:                TikTok,
		Label:             "TikTok",
		AspectRatio:       "9:16",
		MinSec:            5,
		MaxSec:            60,
		PaceSecondsPerCut: 1.5,
		VoiceoverStyles:   []string{"Fast, high energy"},
		MusicGuideline:    "Trending track at 100-140 BPM, drop within 3s",
		CaptionsRequired:  true,
		CaptionStyles:     []string{"Large subtitles, high contrast"},
		HookGuideline:     "Hook under 2s: an unmistakable benefit",
		CTAGuideline:      "Ask to follow, like or save",
		SEO:               SEO{TitleMaxChars: 80, HashtagMin: 3, HashtagMax: 5},
		Emoji:             EmojiDefaults{Enabled: true, Style: EmojiNormal, Palette: shortFormPalette},
		StrongCTAEmojis:   "✨🎯🚀",
	},
	Shorts: {
		ID:                Shorts,
		Label:             "YouTube Shorts",
		AspectRatio:       "9:16",
		MinSec:            6,
		MaxSec:            60,
		PaceSecondsPerCut: 1.8,
		VoiceoverStyles:   []string{"Clear, quick rhythm"},
		MusicGuideline:    "Shorts library music, intro under 1s",
		CaptionsRequired:  true,
		CaptionStyles:     []string{"YouTube auto-caption style"},
		HookGuideline:     "Hook under 1s: a question or a comparison",
		CTAGuideline:      "Ask to subscribe or comment at 90-100% of the video",
		SEO:               SEO{TitleMaxChars: 70, HashtagMin: 3, HashtagMax: 6, RequiredHashtags: []string{"#shorts"}},
		Emoji:             EmojiDefaults{Enabled: true, Style: EmojiNormal, Palette: shortFormPalette},
		StrongCTAEmojis:   "✨🎯🚀",
	},
	YouTube: {
		ID:                YouTube,
		Label:             "YouTube",
		AspectRatio:       "16:9",
		MinSec:            120,
		MaxSec:            3600,
		PaceSecondsPerCut: 3.5,
		VoiceoverStyles:   []string{"Storytelling, expert"},
		MusicGuideline:    "Light background music, change motif per chapter",
		CaptionsRequired:  false,
		CaptionStyles:     []string{"Small, compact subtitles"},
		HookGuideline:     "Opening 5-10s: problem, promise and preview",
		CTAGuideline:      "Soft CTAs spread throughout plus one at the end",
		SEO:               SEO{TitleMaxChars: 70, HashtagMin: 3, HashtagMax: 10},
		Emoji:             EmojiDefaults{Enabled: false, Style: EmojiMinimal, Palette: []string{"✨", "🎯", "💡", "📌", "🧠"}},
		StrongCTAEmojis:   "✨🎯🚀",
	},
	Reels: {
		ID:                Reels,
		Label:             "Facebook Reels",
		AspectRatio:       "9:16",
		MinSec:            5,
		MaxSec:            90,
		PaceSecondsPerCut: 1.7,
		VoiceoverStyles:   []string{"Upbeat, cheerful"},
		MusicGuideline:    "Meta library music",
		CaptionsRequired:  true,
		CaptionStyles:     []string{"Large, bold subtitles"},
		HookGuideline:     "Strong visual hook under 1.5s",
		CTAGuideline:      "Ask to follow or send a DM at 80% of the video",
		SEO:               SEO{TitleMaxChars: 80, HashtagMin: 2, HashtagMax: 5},
		Emoji:             EmojiDefaults{Enabled: true, Style: EmojiNormal, Palette: shortFormPalette},
		StrongCTAEmojis:   "✨🎯🚀",
	},
	Shopee: {
		ID:                Shopee,
		Label:             "Shopee",
		AspectRatio:       "9:16",
		MinSec:            5,
		MaxSec:            60,
		PaceSecondsPerCut: 1.4,
		VoiceoverStyles:   []string{"Persuasive sales voice"},
		MusicGuideline:    "Lively music that keeps speech clear",
		CaptionsRequired:  true,
		CaptionStyles:     []string{"Price tag", "Discount code sticker"},
		HookGuideline:     "Open with the DEAL or the PAIN POINT",
		CTAGuideline:      "Buy now, add to cart or use the code",
		SEO:               SEO{TitleMaxChars: 80, HashtagMin: 2, HashtagMax: 6, RequiredHashtags: []string{"#Shopee", "#Deal"}},
		ExtraFields:       []string{"productId", "price", "voucher"},
		Emoji:             EmojiDefaults{Enabled: true, Style: EmojiNormal, Palette: []string{"🛒", "🛍️", "📦", "💥", "💸", "🏷️", "⚡️"}},
		StrongCTAEmojis:   "🛒💥💸",
	},
}

// Lookup returns the rules for id.
func Lookup(id ID) (Rules, error) {
	r, ok := table[id]
	if !ok {
		return Rules{}, fmt.Errorf("unknown platform %q: must be one of %v", id, IDs())
	}
	return r, nil
}

// MustLookup is Lookup for ids known to be valid.
func MustLookup(id ID) Rules {
	r, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return r
}

// IsValid reports whether id names a known platform.
func IsValid(id ID) bool {
	_, ok := table[id]
	return ok
}

// IDs returns every platform id in a stable order.
func IDs() []ID {
	ids := make([]ID, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// All returns the rules for every platform, ordered by id.
func All() []Rules {
	out := make([]Rules, 0, len(table))
	for _, id := range IDs() {
		out = append(out, table[id])
	}
	return out
}
