// Package pipeline runs the ordered sequence of generation calls that turns a
// request into a complete video plan.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/platform"
	"github.com/apresai/shortsmith/internal/progress"
	"github.com/apresai/shortsmith/internal/prompt"
	"github.com/apresai/shortsmith/internal/schema"
)

// State is the position of a run in its lifecycle.
type State string

const (
	StateIdle                 State = "idle"
	StateNormalizingDuration  State = "normalizing_duration"
	StateGeneratingSegment    State = "generating_segment"
	StateGeneratingPublishing State = "generating_publishing"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

// Pipeline generates video plans through an injected TextGenerator.
type Pipeline struct {
	gen         genai.TextGenerator
	pacer       Pacer
	progress    progress.Callback
	log         *slog.Logger
	model       string
	temperature float64
	maxTokens   int
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPacer replaces the default 500ms pause between calls.
func WithPacer(p Pacer) Option {
	return func(pl *Pipeline) { pl.pacer = p }
}

// WithProgress registers a progress callback.
func WithProgress(cb progress.Callback) Option {
	return func(pl *Pipeline) { pl.progress = cb }
}

// WithLogger sets the logger used for per-call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(pl *Pipeline) { pl.log = l }
}

// WithModel overrides the text model passed to the generator.
func WithModel(model string) Option {
	return func(pl *Pipeline) { pl.model = model }
}

// WithGenerationConfig overrides temperature and the output token ceiling.
func WithGenerationConfig(temperature float64, maxOutputTokens int) Option {
	return func(pl *Pipeline) {
		pl.temperature = temperature
		pl.maxTokens = maxOutputTokens
	}
}

// New returns a pipeline that sends every text call to gen.
func New(gen genai.TextGenerator, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:         gen,
		pacer:       FixedPacer(DefaultPacing),
		progress:    progress.NopCallback,
		log:         slog.Default(),
		temperature: genai.DefaultTemperature,
		maxTokens:   genai.DefaultMaxOutputTokens,
		now:         time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// accumulator is the fold state: the finalized plans and scripts so far.
type accumulator struct {
	plans   []plan.VideoPlan
	scripts []plan.VoiceoverScript
}

func (a accumulator) with(p plan.VideoPlan, s plan.VoiceoverScript) accumulator {
	return accumulator{
		plans:   append(slices.Clip(a.plans), p),
		scripts: append(slices.Clip(a.scripts), s),
	}
}

// run carries the per-invocation values shared by every step.
type run struct {
	p     *Pipeline
	id    string
	req   plan.Request
	rules platform.Rules
	norm  platform.Normalized
	log   *slog.Logger
	start time.Time
	calls int
	total int
	state State
}

// Run executes the full generation sequence for req. It returns either a
// complete result or an error; nothing partial is ever returned.
func (p *Pipeline) Run(ctx context.Context, req plan.Request) (*plan.Result, error) {
	start := p.now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rules := platform.MustLookup(req.Platform)
	r := &run{
		p:     p,
		id:    uuid.NewString(),
		req:   req,
		rules: rules,
		start: start,
		state: StateIdle,
	}
	r.log = p.log.With("run_id", r.id, "platform", string(rules.ID))

	r.transition(StateNormalizingDuration)
	r.norm = platform.Normalize(req.DurationSec, rules)
	r.total = 2*r.norm.Segments + 1
	r.emit(progress.Event{
		Stage:   progress.StageValidate,
		Message: fmt.Sprintf("Normalized %ds to %ds (%d segments)", r.norm.Requested, r.norm.Duration, r.norm.Segments),
	})

	r.transition(StateGeneratingSegment)
	acc, err := foldSegments(r.norm.Segments, accumulator{}, func(acc accumulator, i int) (accumulator, error) {
		return r.segment(ctx, acc, i)
	})
	if err != nil {
		return nil, r.fail(progress.StageSegment, err)
	}

	r.transition(StateGeneratingPublishing)
	info, err := r.publishing(ctx)
	if err != nil {
		return nil, r.fail(progress.StagePublishing, err)
	}

	r.transition(StateCompleted)
	res := &plan.Result{
		RunID:              r.id,
		Platform:           string(rules.ID),
		RequestedDuration:  r.norm.Requested,
		NormalizedDuration: r.norm.Duration,
		Segments:           r.norm.Segments,
		GeneratedAt:        p.now().UTC(),
		VideoPlans:         acc.plans,
		VoiceoverScripts:   acc.scripts,
		PublishingInfo:     info,
	}
	r.log.Info("plan generated", "segments", r.norm.Segments, "calls", r.calls, "elapsed", time.Since(start).Round(time.Millisecond))
	r.emit(progress.Event{Stage: progress.StageComplete, Message: fmt.Sprintf("Generated %d segments", r.norm.Segments), Percent: 1})
	return res, nil
}

// segment produces the finalized plan and script of segment i.
func (r *run) segment(ctx context.Context, acc accumulator, i int) (accumulator, error) {
	n := r.norm.Segments

	visualPrompt := prompt.Visual(prompt.VisualInput{
		Rules:           r.rules,
		Persona:         r.req.Persona,
		Topic:           r.req.Topic,
		Index:           i,
		Total:           n,
		CaptionsEnabled: r.req.CaptionsEnabled,
		Language:        r.req.LanguageTag(),
		SourceNotes:     r.req.SourceNotes,
		Previous:        acc.plans,
	})
	var raw plan.VideoPlan
	op := fmt.Sprintf("segment %d/%d visual", i, n)
	if err := r.call(ctx, op, progress.CallVisual, i, visualPrompt, schema.VideoPlan, &raw); err != nil {
		return accumulator{}, err
	}
	r.p.pacer.Pause()
	vp := overlayPlan(raw, r.req, r.rules)

	voPrompt := prompt.Voiceover(prompt.VoiceoverInput{
		Rules:    r.rules,
		Persona:  r.req.Persona,
		Topic:    r.req.Topic,
		Index:    i,
		Total:    n,
		Tone:     r.req.Tone(),
		Language: r.req.LanguageTag(),
		Plan:     vp,
		Previous: acc.scripts,
	})
	var script plan.VoiceoverScript
	op = fmt.Sprintf("segment %d/%d voiceover", i, n)
	if err := r.call(ctx, op, progress.CallVoiceover, i, voPrompt, schema.Voiceover, &script); err != nil {
		return accumulator{}, err
	}
	script = stampScript(script, i)
	r.p.pacer.Pause()

	return acc.with(vp, script), nil
}

func (r *run) publishing(ctx context.Context) (plan.PublishingInfo, error) {
	emoji := platform.ResolveEmoji(r.rules, r.req.EmojiEnabled, platform.EmojiStyle(r.req.EmojiStyle), r.req.MascotEmoji)
	text := prompt.Publishing(prompt.PublishingInput{
		Rules:       r.rules,
		Duration:    r.norm.Duration,
		Topic:       r.req.Topic,
		Persona:     r.req.Persona,
		Emoji:       emoji,
		Language:    r.req.LanguageTag(),
		SourceNotes: r.req.SourceNotes,
	})
	var info plan.PublishingInfo
	if err := r.call(ctx, "publishing", "", 0, text, schema.Publishing, &info); err != nil {
		return plan.PublishingInfo{}, err
	}
	return normalizePublishing(info, r.rules, r.req.Topic), nil
}

// call sends one prompt and decodes the reply into out.
func (r *run) call(ctx context.Context, op string, kind progress.Call, segment int, text string, s *schema.Schema, out any) error {
	stage := progress.StageSegment
	msg := fmt.Sprintf("Segment %d/%d: %s", segment, r.norm.Segments, callLabel(kind))
	if segment == 0 {
		stage = progress.StagePublishing
		msg = "Writing title, description and hashtags"
	}
	r.emit(progress.Event{
		Stage:        stage,
		Message:      msg,
		Percent:      progress.CallPercent(r.calls, r.total),
		SegmentNum:   segment,
		SegmentTotal: segmentTotal(segment, r.norm.Segments),
		Call:         kind,
	})

	if err := ctx.Err(); err != nil {
		return apperr.WithOp(op, err)
	}

	callStart := time.Now()
	raw, err := r.p.gen.GenerateText(ctx, genai.TextRequest{
		Prompt:          text,
		Schema:          s,
		Temperature:     r.p.temperature,
		MaxOutputTokens: r.p.maxTokens,
		Model:           r.p.model,
	})
	r.calls++
	elapsed := time.Since(callStart).Round(time.Millisecond)
	if err != nil {
		r.log.Warn("generation call failed", "op", op, "segment", segment, "kind", s.Name, "elapsed", elapsed, "error", err, "cause", errorCause(err))
		return apperr.WithOp(op, err)
	}
	if err := schema.Decode(raw, s, out); err != nil {
		r.log.Warn("reply rejected", "op", op, "segment", segment, "kind", s.Name, "cause", errorCause(err), "reply_chars", len(raw))
		return apperr.WithOp(op, err)
	}
	r.log.Debug("generation call", "op", op, "segment", segment, "kind", s.Name, "elapsed", elapsed, "reply_chars", len(raw))
	return nil
}

func (r *run) transition(s State) {
	r.log.Debug("state", "from", r.state, "to", s)
	r.state = s
}

func (r *run) fail(stage progress.Stage, err error) error {
	r.transition(StateFailed)
	r.log.Error("plan generation failed", "state_stage", stage, "kind", apperr.KindOf(err), "calls", r.calls, "error", err)
	r.emit(progress.Event{Stage: stage, Message: err.Error(), Percent: progress.CallPercent(r.calls, r.total), Error: err})
	return err
}

func (r *run) emit(e progress.Event) {
	e.Elapsed = time.Since(r.start)
	r.p.progress(e)
}

func callLabel(c progress.Call) string {
	if c == progress.CallVoiceover {
		return "writing voiceover"
	}
	return "planning visuals"
}

func segmentTotal(segment, total int) int {
	if segment == 0 {
		return 0
	}
	return total
}

// errorCause returns the underlying cause of a classified error for logs.
func errorCause(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Err != nil {
		return ae.Err.Error()
	}
	return err.Error()
}
