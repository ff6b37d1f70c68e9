// Package plan defines the video plan data model produced by the generation
// pipeline: per-segment visual plans, voiceover scripts and publishing metadata.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Shot is one camera shot inside a segment.
type Shot struct {
	Shot              int     `json:"shot"`
	TimeStartS        float64 `json:"time_start_s"`
	TimeEndS          float64 `json:"time_end_s"`
	Visual            string  `json:"visual"`
	OnScreenText      string  `json:"on_screen_text"`
	Transition        string  `json:"transition"`
	RenderTextOverlay bool    `json:"render_text_overlay"`
}

type Structure struct {
	Hook string `json:"hook"`
	Body string `json:"body"`
	CTA  string `json:"cta"`
}

type Audio struct {
	VoiceoverStyle string `json:"voiceover_style"`
	MusicGuideline string `json:"music_guideline"`
}

type Captions struct {
	Enabled  bool   `json:"enabled"`
	Required bool   `json:"required"`
	Style    string `json:"style"`
}

type Editing struct {
	PaceSecondsPerCut float64  `json:"pace_seconds_per_cut"`
	Transitions       []string `json:"transitions"`
	TextSafeArea      string   `json:"text_safe_area"`
}

// VideoPlan is the visual plan for one 8-second segment.
type VideoPlan struct {
	Version         int               `json:"version"`
	Language        string            `json:"language"`
	Platform        string            `json:"platform"`
	AspectRatio     string            `json:"aspect_ratio"`
	DurationSeconds int               `json:"duration_seconds"`
	PersonaDNA      string            `json:"persona_dna"`
	Topic           string            `json:"topic"`
	Structure       Structure         `json:"structure"`
	Audio           Audio             `json:"audio"`
	Captions        Captions          `json:"captions"`
	Editing         Editing           `json:"editing"`
	Shots           []Shot            `json:"shots"`
	PlatformExtras  map[string]string `json:"platform_extras"`
}

// LastShot returns the final shot of the plan, if any.
func (p VideoPlan) LastShot() (Shot, bool) {
	if len(p.Shots) == 0 {
		return Shot{}, false
	}
	return p.Shots[len(p.Shots)-1], true
}

// VoiceoverLine is one timed spoken line.
type VoiceoverLine struct {
	T    float64 `json:"t"`
	Text string  `json:"text"`
}

// VoiceoverScript is the narration for one segment.
type VoiceoverScript struct {
	SegmentIndex    int             `json:"segment_index"`
	DurationSeconds int             `json:"duration_seconds"`
	Lines           []VoiceoverLine `json:"voiceover_script"`
}

// LastLine returns the text of the final spoken line, if any.
func (s VoiceoverScript) LastLine() (string, bool) {
	if len(s.Lines) == 0 {
		return "", false
	}
	return s.Lines[len(s.Lines)-1].Text, true
}

// SpokenText joins every line into the text handed to speech synthesis.
func (s VoiceoverScript) SpokenText() string {
	parts := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		if t := strings.TrimSpace(l.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// PublishingInfo is the listing metadata for the finished video.
type PublishingInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Hashtags    string `json:"hashtags"`
}

// HashtagList splits the hashtag string into tokens.
func (p PublishingInfo) HashtagList() []string {
	return strings.Fields(p.Hashtags)
}

// Result is the composite output of one successful pipeline run.
type Result struct {
	RunID              string            `json:"run_id,omitempty"`
	Platform           string            `json:"platform_id,omitempty"`
	RequestedDuration  int               `json:"requested_duration,omitempty"`
	NormalizedDuration int               `json:"normalized_duration,omitempty"`
	Segments           int               `json:"segments,omitempty"`
	GeneratedAt        time.Time         `json:"generated_at,omitempty"`
	VideoPlans         []VideoPlan       `json:"video_plans"`
	VoiceoverScripts   []VoiceoverScript `json:"voiceover_scripts"`
	PublishingInfo     PublishingInfo    `json:"publishingInfo"`
}

// SaveResult writes r as indented JSON.
func SaveResult(r *Result, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// LoadResult reads a result previously written by SaveResult.
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	if len(r.VideoPlans) == 0 {
		return nil, fmt.Errorf("result %s has no video plans", path)
	}
	return &r, nil
}
