package prompt

import (
	"fmt"
	"strings"

	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/platform"
	"github.com/apresai/shortsmith/internal/schema"
)

// MaxSpokenSeconds caps the spoken duration of one segment's script.
const MaxSpokenSeconds = 7.5

// VoiceoverInput is everything the voiceover prompt for one segment depends on.
type VoiceoverInput struct {
	Rules    platform.Rules
	Persona  string
	Topic    string
	Index    int
	Total    int
	Tone     platform.Tone
	Language string
	// Plan is the finalized visual plan of this segment.
	Plan plan.VideoPlan
	// Previous holds the scripts of segments 1..Index-1.
	Previous []plan.VoiceoverScript
}

// Voiceover builds the prompt for the voiceover script of one segment.
func Voiceover(in VoiceoverInput) string {
	context := fmt.Sprintf(`VOICEOVER CONTEXT FOR SEGMENT %d/%d (8 seconds):
- Topic: %s
- Voice persona: %s
- General style: %s
- SPECIFIC TONE REQUIREMENT (overrides the general style): "%s"`,
		in.Index, in.Total, in.Topic, in.Persona, in.Rules.PrimaryVoiceoverStyle(), in.Tone.Label)

	shots := "THE VISUAL PLAN ALREADY CREATED FOR THIS SEGMENT (FOLLOW IT STRICTLY):\n" + shotDetails(in.Plan.Shots)

	task := fmt.Sprintf(`TASK: Using the visual plan above, write a NATURAL voiceover that is SYNCHRONIZED with it.
- Lines must comment on, explain or add to the shots and on-screen text.
- One sentence or idea per cut. Keep sentences short and easy to hear.
- STRICT TIME LIMIT: the total spoken duration of the WHOLE script for this segment MUST NOT EXCEED %.1f SECONDS (about 20-25 words at most).
- Make line timings match the shot timings exactly.
- Write the lines in %s.`, MaxSpokenSeconds, platform.LanguageName(in.Language))

	final := fmt.Sprintf(`FINAL TASK: Return one JSON object for the voiceover script. segment_index MUST be %d.

%s

Return only the JSON object, with no explanation and no markdown.`, in.Index, schema.Voiceover.Describe())

	return join(context, voiceoverContinuity(in), shots, task, final)
}

func shotDetails(shots []plan.Shot) string {
	if len(shots) == 0 {
		return "- (no shots)"
	}
	lines := make([]string, 0, len(shots))
	for _, s := range shots {
		text := s.OnScreenText
		if text == "" {
			text = "none"
		}
		lines = append(lines, fmt.Sprintf("- Shot %d [%gs - %gs]:\n  * Visual: %s\n  * On-screen text: %s",
			s.Shot, s.TimeStartS, s.TimeEndS, s.Visual, text))
	}
	return strings.Join(lines, "\n")
}

func voiceoverContinuity(in VoiceoverInput) string {
	if !continuityFrom(in.Index) || len(in.Previous) == 0 {
		return ""
	}
	last, ok := in.Previous[len(in.Previous)-1].LastLine()
	if !ok || strings.TrimSpace(last) == "" {
		last = "[no dialogue]"
	}
	return fmt.Sprintf(`CONTINUITY NOTE:
- The last line of the previous segment was: "%s"
- Write this segment's lines so the story continues naturally.`, last)
}
