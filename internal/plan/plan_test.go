package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/platform"
)

func validRequest() Request {
	r := DefaultRequest()
	r.Topic = "3 phone filming tips"
	return r
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"empty persona", func(r *Request) { r.Persona = "  " }},
		{"empty topic", func(r *Request) { r.Topic = "" }},
		{"short duration", func(r *Request) { r.DurationSec = 7 }},
		{"unknown platform", func(r *Request) { r.Platform = "vine" }},
		{"unknown tone", func(r *Request) { r.VoiceTone = "sleepy" }},
		{"bad emoji style", func(r *Request) { r.EmojiStyle = "maximal" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.InvalidRequest))
		})
	}

	require.NoError(t, validRequest().Validate())
}

func TestSpokenText(t *testing.T) {
	s := VoiceoverScript{Lines: []VoiceoverLine{
		{T: 0, Text: "Hello there."},
		{T: 2.5, Text: "  "},
		{T: 4, Text: "Watch this."},
	}}
	assert.Equal(t, "Hello there. Watch this.", s.SpokenText())

	last, ok := s.LastLine()
	require.True(t, ok)
	assert.Equal(t, "Watch this.", last)

	_, ok = VoiceoverScript{}.LastLine()
	assert.False(t, ok)
}

func TestLoadPreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.yaml")
	content := `platform: shopee
topic: Flash sale on earbuds
duration_sec: 24
captions: false
voice_tone: energetic
extras:
  productId: "SKU-1"
  price: "199k"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	req, err := LoadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, platform.Shopee, req.Platform)
	assert.Equal(t, 24, req.DurationSec)
	assert.False(t, req.CaptionsEnabled)
	assert.Equal(t, "SKU-1", req.Extras["productId"])
	assert.Equal(t, platform.DefaultPersona, req.Persona, "unset fields keep defaults")
	require.NoError(t, req.Validate())
}

func TestParseExtras(t *testing.T) {
	extras, err := ParseExtras([]string{"price=99k", "voucher = SALE10"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"price": "99k", "voucher": "SALE10"}, extras)

	_, err = ParseExtras([]string{"novalue"})
	assert.Error(t, err)
}

func TestSaveLoadResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	r := &Result{
		VideoPlans:       []VideoPlan{{Version: 1, Topic: "T"}},
		VoiceoverScripts: []VoiceoverScript{{SegmentIndex: 1}},
		PublishingInfo:   PublishingInfo{Title: "Title", Hashtags: "#a #b"},
	}
	require.NoError(t, SaveResult(r, path))

	loaded, err := LoadResult(path)
	require.NoError(t, err)
	assert.Equal(t, r.VideoPlans, loaded.VideoPlans)
	assert.Equal(t, []string{"#a", "#b"}, loaded.PublishingInfo.HashtagList())

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"video_plans":[]}`), 0644))
	_, err = LoadResult(empty)
	assert.Error(t, err)
}
