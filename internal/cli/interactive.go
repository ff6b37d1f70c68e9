package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/platform"
)

// menuItem represents a single configurable option in the TUI.
type menuItem struct {
	label    string
	value    string
	options  []menuOption
	required bool
	editing  bool
	cursor   int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

// menuState tracks which phase the TUI is in.
type menuState int

const (
	stateMenu menuState = iota
	stateEditing
)

// tuiModel is the Bubble Tea model for the interactive form.
type tuiModel struct {
	items     []menuItem
	cursor    int
	state     menuState
	width     int
	err       error
	confirmed bool
	cancelled bool
}

var (
	colorAccent = lipgloss.Color("#7D56F4")
	colorOK     = lipgloss.Color("#04B575")
	colorWarn   = lipgloss.Color("#FF5555")
	colorMuted  = lipgloss.Color("#555555")
)

var (
	titleStyle          = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	headerBorder        = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(colorAccent).MarginBottom(1)
	menuLabelStyle      = lipgloss.NewStyle().Width(14).Align(lipgloss.Right).MarginRight(2)
	menuValueStyle      = lipgloss.NewStyle().Foreground(colorOK)
	menuValueDimStyle   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	cursorStyle         = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	requiredStyle       = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	optionStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedOptionStyle = lipgloss.NewStyle().Foreground(colorOK).Bold(true).PaddingLeft(2)
	buttonStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(colorAccent).Padding(0, 3)
	buttonDimStyle      = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 3)
	helpStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).MarginTop(1)
	errorStyle          = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
)

// menu item indices
const (
	idxPlatform = iota
	idxTopic
	idxPersona
	idxDuration
	idxTone
	idxCaptions
	idxEmoji
	idxEmojiStyle
	idxLanguage
	idxBackend
	idxAssets
	idxOutput
	idxGenerate
)

// durationCandidates are offered in the duration picker after snapping to
// the selected platform's bounds.
var durationCandidates = []int{8, 16, 24, 32, 40, 48, 56, 64, 88, 120, 176, 240, 304, 600, 1200}

func durationOptions(id platform.ID) []menuOption {
	r, err := platform.Lookup(id)
	if err != nil {
		return nil
	}
	var opts []menuOption
	seen := map[int]bool{}
	for _, c := range durationCandidates {
		n := platform.Normalize(c, r)
		if seen[n.Duration] {
			continue
		}
		seen[n.Duration] = true
		opts = append(opts, menuOption{
			label: fmt.Sprintf("%ds (%d segments)", n.Duration, n.Segments),
			value: strconv.Itoa(n.Duration),
		})
	}
	return opts
}

func platformOptions() []menuOption {
	var opts []menuOption
	for _, r := range platform.All() {
		opts = append(opts, menuOption{
			label: fmt.Sprintf("%s (%s, %d-%ds)", r.Label, r.AspectRatio, r.MinSec, r.MaxSec),
			value: string(r.ID),
		})
	}
	return opts
}

func toneOptions() []menuOption {
	opts := make([]menuOption, len(platform.Tones))
	for i, t := range platform.Tones {
		opts[i] = menuOption{label: t.Label, value: t.ID}
	}
	return opts
}

func onOff(on, off string) []menuOption {
	return []menuOption{{label: on, value: "true"}, {label: off, value: "false"}}
}

func buildMenuItems() []menuItem {
	id := platform.ID(flagPlatform)
	if !platform.IsValid(id) {
		id = platform.Shorts
	}
	duration := strconv.Itoa(platform.Normalize(flagDuration, platform.MustLookup(id)).Duration)

	items := []menuItem{
		idxPlatform: {label: "Platform", value: string(id), options: platformOptions()},
		idxTopic:    {label: "Topic", value: flagTopic, required: true},
		idxPersona:  {label: "Persona", value: flagPersona},
		idxDuration: {label: "Duration", value: duration, options: durationOptions(id)},
		idxTone:     {label: "Tone", value: flagTone, options: toneOptions()},
		idxCaptions: {label: "Captions", value: strconv.FormatBool(flagCaptions), options: onOff("On", "Off")},
		idxEmoji: {label: "Emoji", value: "", options: []menuOption{
			{label: "Platform default", value: ""},
			{label: "On", value: "true"},
			{label: "Off", value: "false"},
		}},
		idxEmojiStyle: {label: "Emoji style", value: flagEmojiStyle, options: []menuOption{
			{label: "Platform default", value: ""},
			{label: "Minimal", value: string(platform.EmojiMinimal)},
			{label: "Normal", value: string(platform.EmojiNormal)},
			{label: "Extra", value: string(platform.EmojiExtra)},
		}},
		idxLanguage: {label: "Language", value: flagLanguage, options: []menuOption{
			{label: "Vietnamese", value: "vi"},
			{label: "English", value: "en"},
			{label: "Indonesian", value: "id"},
			{label: "Thai", value: "th"},
			{label: "Japanese", value: "ja"},
		}},
		idxBackend: {label: "Backend", value: flagBackend, options: []menuOption{
			{label: "Gemini (AI Studio)", value: string(genai.BackendGemini)},
			{label: "Gemini (Vertex AI)", value: string(genai.BackendVertex)},
			{label: "Claude", value: string(genai.BackendClaude)},
			{label: "Amazon Nova", value: string(genai.BackendNova)},
		}},
		idxAssets:   {label: "Assets", value: strconv.FormatBool(flagAssets), options: onOff("Render image + voiceover", "Plan only")},
		idxOutput:   {label: "Output", value: flagOutput},
		idxGenerate: {label: ">>> Generate <<<"},
	}
	for i := range items {
		items[i].syncCursor()
	}
	return items
}

// syncCursor points the option cursor at the current value.
func (it *menuItem) syncCursor() {
	it.cursor = 0
	for j, opt := range it.options {
		if opt.value == it.value {
			it.cursor = j
			return
		}
	}
}

func initialTUIModel() tuiModel {
	return tuiModel{
		items:  buildMenuItems(),
		cursor: idxTopic,
		state:  stateMenu,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) isTextInput(idx int) bool {
	return idx == idxTopic || idx == idxPersona || idx == idxOutput
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateMenu:
			return m.updateMenu(msg)
		case stateEditing:
			return m.updateEditing(msg)
		}
	}
	return m, nil
}

func (m tuiModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "enter", " ":
		if m.cursor == idxGenerate {
			if strings.TrimSpace(m.items[idxTopic].value) == "" {
				m.err = fmt.Errorf("Topic is required")
				return m, nil
			}
			m.confirmed = true
			return m, tea.Quit
		}
		if m.isTextInput(m.cursor) || len(m.items[m.cursor].options) > 0 {
			m.state = stateEditing
			m.items[m.cursor].editing = true
			m.err = nil
		}
	}
	return m, nil
}

func (m tuiModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := m.cursor
	item := &m.items[idx]

	if m.isTextInput(idx) {
		switch msg.String() {
		case "enter":
			item.editing = false
			m.state = stateMenu
			m.advance()
		case "esc":
			item.editing = false
			m.state = stateMenu
		case "backspace":
			if r := []rune(item.value); len(r) > 0 {
				item.value = string(r[:len(r)-1])
			}
		case "ctrl+u":
			item.value = ""
		default:
			// Accept typed characters and pasted text
			if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
				item.value += string(msg.Runes)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter", " ":
		if item.cursor >= 0 && item.cursor < len(item.options) {
			item.value = item.options[item.cursor].value
		}
		item.editing = false
		m.state = stateMenu

		// Duration bounds follow the platform.
		if idx == idxPlatform {
			m.rebuildDurations()
		}
		m.advance()

	case "esc":
		item.editing = false
		m.state = stateMenu

	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}

	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

func (m *tuiModel) advance() {
	if m.cursor < len(m.items)-1 {
		m.cursor++
	}
}

// rebuildDurations re-snaps the chosen duration to the new platform.
func (m *tuiModel) rebuildDurations() {
	id := platform.ID(m.items[idxPlatform].value)
	r, err := platform.Lookup(id)
	if err != nil {
		return
	}
	current, _ := strconv.Atoi(m.items[idxDuration].value)
	d := &m.items[idxDuration]
	d.options = durationOptions(id)
	d.value = strconv.Itoa(platform.Normalize(current, r).Duration)
	d.syncCursor()
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(headerBorder.Render(titleStyle.Render("Shortsmith")))
	b.WriteString("\n")

	for i, item := range m.items {
		isActive := m.cursor == i

		if i == idxGenerate {
			b.WriteString("\n")
			if isActive {
				b.WriteString("  " + buttonStyle.Render(" Generate "))
			} else {
				b.WriteString("  " + buttonDimStyle.Render(" Generate "))
			}
			b.WriteString("\n")
			continue
		}

		cursor := "  "
		if isActive {
			cursor = cursorStyle.Render("> ")
		}

		label := item.label
		if item.required {
			label += requiredStyle.Render("*")
		}

		var value string
		switch {
		case item.editing && m.isTextInput(i):
			value = menuValueStyle.Render(item.value + "_")
		case item.value == "" && len(item.options) == 0:
			value = menuValueDimStyle.Render(placeholder(i))
		default:
			value = menuValueStyle.Render(item.display())
		}
		b.WriteString(cursor + menuLabelStyle.Render(label) + " " + value + "\n")

		if item.editing && len(item.options) > 0 {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()) + "\n")
	}

	switch m.state {
	case stateMenu:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit | q to quit"))
	case stateEditing:
		if m.isTextInput(m.cursor) {
			b.WriteString(helpStyle.Render("  type value | enter to confirm | esc to cancel | ctrl+u to clear"))
		} else {
			b.WriteString(helpStyle.Render("  j/k or arrows to pick | enter to select | esc to cancel"))
		}
	}
	b.WriteString("\n")

	return b.String()
}

// display shows the option label for option items.
func (it menuItem) display() string {
	for _, opt := range it.options {
		if opt.value == it.value {
			return opt.label
		}
	}
	return it.value
}

func placeholder(idx int) string {
	switch idx {
	case idxTopic:
		return "(what is the video about?)"
	case idxPersona:
		return "(default persona)"
	case idxOutput:
		return "(auto-named in " + OutputBaseDir + "/)"
	}
	return "(not set)"
}

// applyTo copies the form values onto the generate flags.
func (m tuiModel) applyTo() {
	flagPlatform = m.items[idxPlatform].value
	flagTopic = m.items[idxTopic].value
	flagPersona = m.items[idxPersona].value
	flagDuration, _ = strconv.Atoi(m.items[idxDuration].value)
	flagTone = m.items[idxTone].value
	flagCaptions = m.items[idxCaptions].value == "true"
	flagEmojiStyle = m.items[idxEmojiStyle].value
	flagLanguage = m.items[idxLanguage].value
	flagBackend = m.items[idxBackend].value
	flagAssets = m.items[idxAssets].value == "true"
	flagOutput = m.items[idxOutput].value

	tuiEmoji = m.items[idxEmoji].value
}

// tuiEmoji holds the form's emoji choice: "" keeps the platform default.
var tuiEmoji string

func runInteractiveSetup() error {
	p := tea.NewProgram(initialTUIModel(), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tuiModel)
	if final.cancelled {
		return fmt.Errorf("cancelled")
	}
	if !final.confirmed {
		return fmt.Errorf("generation cancelled")
	}
	final.applyTo()
	return nil
}
