package prompt

import (
	"fmt"

	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/platform"
	"github.com/apresai/shortsmith/internal/schema"
)

// VisualInput is everything the visual plan prompt for one segment depends on.
type VisualInput struct {
	Rules           platform.Rules
	Persona         string
	Topic           string
	Index           int
	Total           int
	CaptionsEnabled bool
	Language        string
	SourceNotes     string
	// Previous holds the finalized plans of segments 1..Index-1.
	Previous []plan.VideoPlan
}

// Visual builds the prompt for the visual plan of one segment.
func Visual(in VisualInput) string {
	r := in.Rules

	context := fmt.Sprintf(`CONTEXT FOR SEGMENT %d/%d (8 seconds):
- Platform: %s
- Aspect ratio: %s
- Topic: %s
- Persona DNA: %s
- ROLE OF THIS SEGMENT: %s`, in.Index, in.Total, r.Label, r.AspectRatio, in.Topic, in.Persona, RoleFor(in.Index, in.Total))

	audio := fmt.Sprintf("AUDIO & CAPTION REQUIREMENTS:\n- Music: %s\n%s", r.MusicGuideline, captionLine(r, in.CaptionsEnabled))

	task := fmt.Sprintf(`TASK: Based on this segment's role and the context above, produce the JSON VISUAL plan for this segment. Be creative and specific, apply the pattern-interrupt and fast-pace principles, and keep cuts near %.1fs each. The plan must strictly follow the caption state. Write all text fields in %s.

%s

Return only the JSON object, with no explanation and no markdown.`, r.PaceSecondsPerCut, platform.LanguageName(in.Language), schema.VideoPlan.Describe())

	return join(
		"YOU ARE AN EXPERT SHORT-FORM VIDEO SCRIPTWRITER. FOLLOW THIS FORMULA:",
		shortFormFormula,
		visualContinuity(in),
		context,
		audio,
		referenceBlock(in.SourceNotes),
		task,
	)
}

func captionLine(r platform.Rules, enabled bool) string {
	if !enabled {
		return `- Captions: DISABLED. "on_screen_text" must be an empty string and "render_text_overlay" must be false for every shot.`
	}
	req := "Optional"
	if r.CaptionsRequired {
		req = "REQUIRED"
	}
	return fmt.Sprintf("- Captions: %s. Style: %s", req, r.PrimaryCaptionStyle())
}

func visualContinuity(in VisualInput) string {
	if !continuityFrom(in.Index) || len(in.Previous) == 0 {
		return ""
	}
	prev := in.Previous[len(in.Previous)-1]
	lastVisual := "[no shots]"
	if shot, ok := prev.LastShot(); ok {
		lastVisual = shot.Visual
	}
	return fmt.Sprintf(`IMPORTANT: CONTINUITY
The previous segment (%d/%d) covered "%s" and ended on the shot: "%s".

Create segment %d as a SEAMLESS continuation that develops the thread of the previous segment.`,
		in.Index-1, in.Total, prev.Structure.Body, lastVisual, in.Index)
}
