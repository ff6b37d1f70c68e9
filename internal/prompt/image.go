package prompt

import (
	"fmt"

	"github.com/apresai/shortsmith/internal/plan"
)

// HookImage builds the thumbnail instruction for a plan. The caller must make
// sure the plan has at least one shot.
func HookImage(p plan.VideoPlan) string {
	visual := ""
	if len(p.Shots) > 0 {
		visual = p.Shots[0].Visual
	}
	return fmt.Sprintf(
		"A vibrant, high-quality, professional thumbnail image for a short-form video, aspect ratio %s. "+
			"Topic: \"%s\". The scene shows: %s. Persona: %s. "+
			"Cinematic lighting, eye-catching composition. Do not include any text, letters or captions in the image.",
		p.AspectRatio, p.Topic, visual, p.PersonaDNA)
}

