package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/shortsmith/internal/platform"
)

func press(t *testing.T, m tuiModel, keys ...tea.KeyMsg) (tuiModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(tuiModel)
	}
	return m, cmd
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyBack  = tea.KeyMsg{Type: tea.KeyBackspace}
)

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDurationOptions(t *testing.T) {
	shorts := durationOptions(platform.Shorts)
	require.NotEmpty(t, shorts)
	assert.Equal(t, "8", shorts[0].value)
	assert.Equal(t, "60", shorts[len(shorts)-1].value)

	yt := durationOptions(platform.YouTube)
	assert.Equal(t, "120", yt[0].value, "short candidates clamp to the platform minimum")
	assert.Equal(t, "1200", yt[len(yt)-1].value)

	assert.Nil(t, durationOptions("myspace"))
}

func TestFormTopicEditing(t *testing.T) {
	freshGenerateCmd(t)
	m := initialTUIModel()
	require.Equal(t, idxTopic, m.cursor)

	m, _ = press(t, m, keyEnter, typed("Phở"), typed(" nights"), keyBack, keyEnter)
	assert.Equal(t, "Phở night", m.items[idxTopic].value)
	assert.Equal(t, stateMenu, m.state)
	assert.Equal(t, idxPersona, m.cursor, "confirming advances to the next item")

	m, _ = press(t, m, keyEnter, typed("discarded?"), keyEsc)
	assert.Equal(t, stateMenu, m.state)
	assert.Equal(t, idxPersona, m.cursor)
}

func TestFormPlatformChangeResnapsDuration(t *testing.T) {
	freshGenerateCmd(t)
	m := initialTUIModel()
	m.cursor = idxPlatform
	assert.Equal(t, "16", m.items[idxDuration].value)

	m, _ = press(t, m, keyEnter)
	require.Equal(t, stateEditing, m.state)
	// Options are ordered by id: reels, shopee, shorts, tiktok, youtube.
	for m.items[idxPlatform].options[m.items[idxPlatform].cursor].value != string(platform.YouTube) {
		m, _ = press(t, m, keyDown)
	}
	m, _ = press(t, m, keyEnter)

	assert.Equal(t, string(platform.YouTube), m.items[idxPlatform].value)
	assert.Equal(t, "120", m.items[idxDuration].value)
	assert.Equal(t, "120", m.items[idxDuration].options[m.items[idxDuration].cursor].value)
	assert.Equal(t, idxTopic, m.cursor)
}

func TestFormGenerateRequiresTopic(t *testing.T) {
	freshGenerateCmd(t)
	m := initialTUIModel()
	m.cursor = idxGenerate

	m, cmd := press(t, m, keyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.confirmed)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "Topic is required")

	m.items[idxTopic].value = "Durian taste test"
	m, cmd = press(t, m, keyEnter)
	assert.NotNil(t, cmd)
	assert.True(t, m.confirmed)
}

func TestFormQuit(t *testing.T) {
	freshGenerateCmd(t)
	m, cmd := press(t, initialTUIModel(), typed("q"))
	assert.True(t, m.cancelled)
	assert.NotNil(t, cmd)
}

func TestFormApplyTo(t *testing.T) {
	freshGenerateCmd(t)
	m := initialTUIModel()
	m.items[idxPlatform].value = string(platform.Reels)
	m.items[idxTopic].value = "Sunset kayak"
	m.items[idxDuration].value = "24"
	m.items[idxCaptions].value = "false"
	m.items[idxEmoji].value = "true"
	m.items[idxAssets].value = "true"
	m.items[idxBackend].value = "claude"

	m.applyTo()
	assert.Equal(t, "reels", flagPlatform)
	assert.Equal(t, "Sunset kayak", flagTopic)
	assert.Equal(t, 24, flagDuration)
	assert.False(t, flagCaptions)
	assert.True(t, flagAssets)
	assert.Equal(t, "claude", flagBackend)
	assert.Equal(t, "true", tuiEmoji)
	t.Cleanup(func() { flagBackend = "gemini" })
}

func TestFormView(t *testing.T) {
	freshGenerateCmd(t)
	m := initialTUIModel()
	v := m.View()
	assert.Contains(t, v, "Shortsmith")
	assert.Contains(t, v, "(what is the video about?)")
	assert.Contains(t, v, "Friendly & approachable")
	assert.Contains(t, v, "16s (2 segments)")

	m.cursor = idxTone
	m, _ = press(t, m, keyEnter)
	assert.Contains(t, m.View(), "Humorous & witty")
}
