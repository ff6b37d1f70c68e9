package pipeline

import (
	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/platform"
)

// overlayPlan stamps the request and platform values onto a decoded plan and
// enforces the caption state. raw is not modified.
func overlayPlan(raw plan.VideoPlan, req plan.Request, r platform.Rules) plan.VideoPlan {
	p := raw
	p.Version = 1
	p.Language = req.LanguageTag()
	p.Platform = r.Label
	p.AspectRatio = r.AspectRatio
	p.DurationSeconds = platform.SegmentSeconds
	p.PersonaDNA = req.Persona
	p.Topic = req.Topic

	p.Captions.Enabled = req.CaptionsEnabled
	p.Captions.Required = r.CaptionsRequired
	if req.CaptionsEnabled {
		if p.Captions.Style == "" {
			p.Captions.Style = r.PrimaryCaptionStyle()
		}
	} else {
		p.Captions.Style = ""
	}

	if p.Editing.PaceSecondsPerCut <= 0 {
		p.Editing.PaceSecondsPerCut = r.PaceSecondsPerCut
	}
	if p.Editing.Transitions == nil {
		p.Editing.Transitions = []string{}
	}

	p.Shots = normalizeShots(raw.Shots, req.CaptionsEnabled)
	p.PlatformExtras = platformExtras(raw.PlatformExtras, req.Extras, r)
	return p
}

// normalizeShots returns a copy of shots with shot numbers filled in and
// time ranges made non-negative and non-decreasing. The overlay flag follows
// the caption state, and text is cleared when captions are off.
func normalizeShots(shots []plan.Shot, captions bool) []plan.Shot {
	out := make([]plan.Shot, len(shots))
	var prevStart, prevEnd float64
	for i, s := range shots {
		if s.Shot <= 0 {
			s.Shot = i + 1
		}
		s.TimeStartS = max(s.TimeStartS, 0, prevStart)
		s.TimeEndS = max(s.TimeEndS, s.TimeStartS, prevEnd)
		prevStart, prevEnd = s.TimeStartS, s.TimeEndS

		s.RenderTextOverlay = captions
		if !captions {
			s.OnScreenText = ""
		}
		out[i] = s
	}
	return out
}

// platformExtras keeps only the fields the platform defines. Values from the
// request win over values the model proposed.
func platformExtras(model, request map[string]string, r platform.Rules) map[string]string {
	out := map[string]string{}
	if !r.HasExtras() {
		return out
	}
	for _, f := range r.ExtraFields {
		if v, ok := request[f]; ok && v != "" {
			out[f] = v
		} else if v, ok := model[f]; ok && v != "" {
			out[f] = v
		}
	}
	return out
}

func stampScript(s plan.VoiceoverScript, index int) plan.VoiceoverScript {
	s.SegmentIndex = index
	s.DurationSeconds = platform.SegmentSeconds
	if s.Lines == nil {
		s.Lines = []plan.VoiceoverLine{}
	}
	return s
}
