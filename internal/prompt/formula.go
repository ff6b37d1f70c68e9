// Package prompt composes the instructions sent to the generation service.
// Every function is pure: the output depends only on its arguments.
package prompt

import (
	"strings"
)

const sectionSep = "\n\n---\n\n"

// shortFormFormula is the beat structure and editing guidance every visual
// prompt starts from.
const shortFormFormula = `SHORT-FORM ENTERTAINMENT VIDEO FORMULA
1. Five-beat structure:
   * Hook (0-3s): lead with the result or the most dramatic moment. Example: "I tried {topic} for {time} and here is {result}!"
   * Set-up (3-6s): minimal context (who, where, doing what).
   * Turn (6-12s): a twist, a joke or a surprise; change rhythm and angle.
   * Payoff (12s+): a satisfying ending, a meme, punchline or reveal.
   * CTA (end of video): exactly one action (follow, comment, try the trend).
2. Editing principles:
   * Fast pace: every sentence or idea gets its own cut.
   * Pattern interrupt: change something every 2-4s (angle, zoom, gag, SFX) to hold attention.
   * Sound: music that fits the flow, SFX on the beat, a clear voice.`

// SegmentRole is the narrative job of one segment.
type SegmentRole string

const (
	RoleHook   SegmentRole = "Hook: hold the viewer in the first 3 seconds."
	RoleSetup  SegmentRole = "Set-up: establish the context after the hook."
	RoleTurn   SegmentRole = "Turn: deliver a twist or a surprise."
	RolePayoff SegmentRole = "Payoff & CTA: give a satisfying ending and one call to action."
)

// RoleFor assigns the role of segment index out of total. The first segment is
// always the hook and the last (when there is more than one) is the payoff.
func RoleFor(index, total int) SegmentRole {
	switch {
	case index <= 1:
		return RoleHook
	case index == total:
		return RolePayoff
	case index == 2:
		return RoleSetup
	default:
		return RoleTurn
	}
}

// continuityFrom reports whether a segment gets the previous segment quoted
// into its prompt.
func continuityFrom(index int) bool {
	return index > 2
}

func join(sections ...string) string {
	kept := sections[:0]
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, sectionSep)
}

func referenceBlock(notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ""
	}
	return "REFERENCE NOTES (use facts from here where relevant; do not copy verbatim):\n" + notes
}
