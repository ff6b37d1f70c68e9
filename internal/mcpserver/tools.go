package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/artifacts"
	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/ingest"
	"github.com/apresai/shortsmith/internal/media"
	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/platform"
)

var tracer = otel.Tracer("shortsmith-mcp")

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

var keyProps = map[string]any{
	"gemini_api_key":    prop("string", "Your Gemini API key (used when the server has no default key)"),
	"anthropic_api_key": prop("string", "Your Anthropic API key (claude backend only)"),
}

func withKeys(props map[string]any) map[string]any {
	for k, v := range keyProps {
		props[k] = v
	}
	return props
}

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "generate_video_plan",
			Description: "Plan a short-form video: per-segment shot lists, voiceover scripts and publishing metadata. Starts an async job and returns a job ID. Use get_job to check progress.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: withKeys(map[string]any{
					"topic":            prop("string", "What the video is about"),
					"platform":         prop("string", "Target platform: tiktok, shorts, youtube, reels, shopee (default shorts)"),
					"persona":          prop("string", "Character or brand persona description"),
					"duration_sec":     prop("integer", "Requested length in seconds; snapped to 8-second segments within the platform limits (default 16)"),
					"captions_enabled": prop("boolean", "Whether shots may carry on-screen text (default true)"),
					"voice_tone":       prop("string", "Voiceover tone: friendly, professional, energetic, storytelling, humorous, serious"),
					"emoji_enabled":    prop("boolean", "Override the platform's emoji default for publishing text"),
					"emoji_style":      prop("string", "minimal, normal or extra"),
					"mascot_emoji":     prop("string", "Mascot emoji used in titles (default 🦡)"),
					"language":         prop("string", "Output language tag, e.g. vi or en (default vi)"),
					"extras":           prop("object", "Platform extra fields as string values (shopee: productId, price, voucher)"),
					"source_url":       prop("string", "Article URL to use as reference notes"),
					"render_assets":    prop("boolean", "Also render the hook image and per-segment voiceover audio"),
					"backend":          prop("string", "Text backend: gemini, vertex, claude, nova (default gemini)"),
					"model":            prop("string", "Model override for the chosen backend"),
				}),
				Required: []string{"topic"},
			},
		},
		{
			Name:        "get_job",
			Description: "Get the status of a plan generation job. Completed jobs include a result_url for the plan JSON.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"job_id": prop("string", "The job ID returned from generate_video_plan"),
				},
				Required: []string{"job_id"},
			},
		},
		{
			Name:        "list_jobs",
			Description: "List plan generation jobs, newest first.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"limit":  prop("integer", "Maximum number of results (default 20)"),
					"cursor": prop("string", "Pagination cursor from a previous list_jobs call"),
				},
			},
		},
		{
			Name:        "generate_hook_image",
			Description: "Render a thumbnail for a video plan segment from its first shot. Returns the image URL.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: withKeys(map[string]any{
					"video_plan": prop("object", "One video plan object from a generated result"),
				}),
				Required: []string{"video_plan"},
			},
		},
		{
			Name:        "edit_hook_image",
			Description: "Edit an image with a text instruction. Returns the edited image URL.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: withKeys(map[string]any{
					"image_data_uri": prop("string", "The image as a data:image/...;base64, URI"),
					"instruction":    prop("string", "What to change"),
				}),
				Required: []string{"image_data_uri", "instruction"},
			},
		},
		{
			Name:        "generate_voiceover_audio",
			Description: "Synthesize voiceover speech. Returns the URL of raw PCM audio (24 kHz, mono, signed 16-bit little-endian).",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: withKeys(map[string]any{
					"text":            prop("string", "Text to speak"),
					"voiceover_script": prop("object", "A voiceover script object; its lines are joined when text is empty"),
					"language":        prop("string", "Voice language tag for the cloudtts backend (default vi)"),
				}),
			},
		},
		{
			Name:        "list_platforms",
			Description: "List supported platforms with their duration limits, aspect ratio and hashtag rules.",
			InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
		},
	}
}

type taskStarter interface {
	StartTask(ctx context.Context, req GenerateRequest) (string, error)
}

type jobReader interface {
	GetJob(ctx context.Context, id string) (*JobItem, error)
	ListJobs(ctx context.Context, limit int, cursor string) ([]JobItem, string, error)
}

// Handlers contains tool handler implementations.
type Handlers struct {
	tasks  taskStarter
	jobs   jobReader
	blobs  blobStore
	engine Engine
	cache  *cache.Cache
	log    *slog.Logger

	// fetchReference loads source_url; replaced in tests.
	fetchReference func(ctx context.Context, url string) (*ingest.Reference, error)
}

// NewHandlers creates tool handlers. Finished jobs are cached in c.
func NewHandlers(tasks taskStarter, jobs jobReader, blobs blobStore, engine Engine, c *cache.Cache, logger *slog.Logger) *Handlers {
	return &Handlers{
		tasks:  tasks,
		jobs:   jobs,
		blobs:  blobs,
		engine: engine,
		cache:  c,
		log:    logger,
		fetchReference: func(ctx context.Context, url string) (*ingest.Reference, error) {
			return (&ingest.WebLoader{Client: ingest.PublicClient()}).Load(ctx, url)
		},
	}
}

// HandleGenerateVideoPlan starts a plan generation job.
func (h *Handlers) HandleGenerateVideoPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_video_plan")
	defer span.End()

	genReq, err := h.generateRequest(ctx, req)
	if err != nil {
		return toolError(span, "invalid arguments", err), nil
	}

	span.SetAttributes(
		attribute.String("platform", string(genReq.Request.Platform)),
		attribute.Int("duration_sec", genReq.Request.DurationSec),
		attribute.String("backend", genReq.Backend),
		attribute.Bool("render_assets", genReq.RenderAssets),
	)

	id, err := h.tasks.StartTask(ctx, genReq)
	if err != nil {
		return toolError(span, "start task failed", err), nil
	}

	span.SetAttributes(attribute.String("job_id", id))
	h.log.InfoContext(ctx, "Plan generation started", "job_id", id, "platform", genReq.Request.Platform, "user_id", genReq.UserID)

	return jsonResult(map[string]any{
		"job_id":  id,
		"status":  JobStatusSubmitted,
		"message": "Plan generation started. Use get_job with this job_id to check progress.",
	})
}

func (h *Handlers) generateRequest(ctx context.Context, req mcp.CallToolRequest) (GenerateRequest, error) {
	r := plan.DefaultRequest()
	r.Topic = mcp.ParseString(req, "topic", "")
	r.Platform = platform.ID(mcp.ParseString(req, "platform", string(r.Platform)))
	r.Persona = mcp.ParseString(req, "persona", r.Persona)
	r.DurationSec = parseIntParam(req, "duration_sec", r.DurationSec)
	r.CaptionsEnabled = parseBoolParam(req, "captions_enabled", r.CaptionsEnabled)
	r.VoiceTone = mcp.ParseString(req, "voice_tone", r.VoiceTone)
	if _, ok := req.GetArguments()["emoji_enabled"]; ok {
		v := parseBoolParam(req, "emoji_enabled", true)
		r.EmojiEnabled = &v
	}
	r.EmojiStyle = mcp.ParseString(req, "emoji_style", r.EmojiStyle)
	r.MascotEmoji = mcp.ParseString(req, "mascot_emoji", r.MascotEmoji)
	r.Language = mcp.ParseString(req, "language", r.Language)

	extras, err := parseStringMap(req, "extras")
	if err != nil {
		return GenerateRequest{}, err
	}
	r.Extras = extras

	if src := mcp.ParseString(req, "source_url", ""); src != "" {
		if ingest.DetectSource(src) != ingest.SourceURL {
			return GenerateRequest{}, apperr.Invalid("source_url must be an http(s) URL")
		}
		ref, err := h.fetchReference(ctx, src)
		if err != nil {
			return GenerateRequest{}, apperr.Invalid("could not load source_url: %v", err)
		}
		r.SourceNotes = ref.Notes()
	}

	userID := mcp.ParseString(req, "_user_id", "")
	if ident, ok := IdentityFromContext(ctx); ok {
		userID = ident.UserID
	}

	return GenerateRequest{
		Request:         r,
		RenderAssets:    parseBoolParam(req, "render_assets", false),
		Backend:         mcp.ParseString(req, "backend", ""),
		Model:           mcp.ParseString(req, "model", ""),
		Owner:           "mcp-server",
		UserID:          userID,
		GeminiAPIKey:    mcp.ParseString(req, "gemini_api_key", ""),
		AnthropicAPIKey: mcp.ParseString(req, "anthropic_api_key", ""),
	}, nil
}

// HandleGetJob returns job details. Finished jobs are served from the cache.
func (h *Handlers) HandleGetJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.get_job")
	defer span.End()

	id := mcp.ParseString(req, "job_id", "")
	if id == "" {
		return toolError(span, "missing job_id", apperr.Invalid("job_id is required")), nil
	}
	span.SetAttributes(attribute.String("job_id", id))

	if cached, ok := h.cache.Get(id); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return jsonResult(jobView(cached.(*JobItem), true))
	}

	item, err := h.jobs.GetJob(ctx, id)
	if err != nil {
		return toolError(span, "get job failed", err), nil
	}
	if item == nil {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("job %s not found", id)), nil
	}
	if JobStatus(item.Status).Terminal() {
		h.cache.SetDefault(id, item)
	}
	return jsonResult(jobView(item, true))
}

// HandleListJobs returns a paginated list of jobs.
func (h *Handlers) HandleListJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.list_jobs")
	defer span.End()

	limit := parseIntParam(req, "limit", 20)
	cursor := mcp.ParseString(req, "cursor", "")
	span.SetAttributes(attribute.Int("limit", limit), attribute.String("cursor", cursor))

	items, next, err := h.jobs.ListJobs(ctx, limit, cursor)
	if err != nil {
		return toolError(span, "list jobs failed", err), nil
	}
	span.SetAttributes(attribute.Int("result_count", len(items)))

	jobs := make([]map[string]any, 0, len(items))
	for i := range items {
		jobs = append(jobs, jobView(&items[i], false))
	}
	result := map[string]any{"jobs": jobs, "count": len(jobs)}
	if next != "" {
		result["next_cursor"] = next
	}
	return jsonResult(result)
}

// HandleGenerateHookImage renders and uploads a thumbnail for one plan.
func (h *Handlers) HandleGenerateHookImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_hook_image")
	defer span.End()

	var vp plan.VideoPlan
	if err := decodeArg(req, "video_plan", &vp); err != nil {
		return toolError(span, "invalid video_plan", err), nil
	}

	svc, closeFn, err := h.engine.Media(ctx, keysOnly(req))
	if err != nil {
		return toolError(span, "configure backend", err), nil
	}
	defer closeFn()

	uri, err := svc.GenerateHookImage(ctx, vp)
	if err != nil {
		return toolError(span, "generate image failed", err), nil
	}
	return h.uploadImage(ctx, span, uri)
}

// HandleEditHookImage edits an image and uploads the result.
func (h *Handlers) HandleEditHookImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.edit_hook_image")
	defer span.End()

	uri := media.DataURI(mcp.ParseString(req, "image_data_uri", ""))
	instruction := mcp.ParseString(req, "instruction", "")

	svc, closeFn, err := h.engine.Media(ctx, keysOnly(req))
	if err != nil {
		return toolError(span, "configure backend", err), nil
	}
	defer closeFn()

	edited, err := svc.EditHookImage(ctx, uri, instruction)
	if err != nil {
		return toolError(span, "edit image failed", err), nil
	}
	return h.uploadImage(ctx, span, edited)
}

func (h *Handlers) uploadImage(ctx context.Context, span trace.Span, uri media.DataURI) (*mcp.CallToolResult, error) {
	img, err := media.ParseDataURI(uri)
	if err != nil {
		return toolError(span, "decode image", err), nil
	}
	id, err := NewJobID()
	if err != nil {
		return toolError(span, "generate id", err), nil
	}
	obj, err := h.blobs.Put(ctx, artifacts.ImageKey(id), img.MIMEType, img.Data)
	if err != nil {
		return toolError(span, "upload failed", err), nil
	}
	span.SetAttributes(attribute.String("image_url", obj.URL))
	return jsonResult(map[string]any{
		"image_url": obj.URL,
		"mime_type": img.MIMEType,
		"size":      obj.Size,
	})
}

// HandleGenerateVoiceoverAudio synthesizes speech and uploads the PCM.
func (h *Handlers) HandleGenerateVoiceoverAudio(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_voiceover_audio")
	defer span.End()

	text := mcp.ParseString(req, "text", "")
	if strings.TrimSpace(text) == "" {
		if _, ok := req.GetArguments()["voiceover_script"]; ok {
			var script plan.VoiceoverScript
			if err := decodeArg(req, "voiceover_script", &script); err != nil {
				return toolError(span, "invalid voiceover_script", err), nil
			}
			text = script.SpokenText()
		}
	}

	genReq := keysOnly(req)
	genReq.Request.Language = mcp.ParseString(req, "language", genReq.Request.Language)
	svc, closeFn, err := h.engine.Media(ctx, genReq)
	if err != nil {
		return toolError(span, "configure backend", err), nil
	}
	defer closeFn()

	pcm, err := svc.GenerateVoiceoverAudio(ctx, text)
	if err != nil {
		return toolError(span, "synthesize failed", err), nil
	}
	id, err := NewJobID()
	if err != nil {
		return toolError(span, "generate id", err), nil
	}
	obj, err := h.blobs.Put(ctx, artifacts.AudioKey(id, "pcm"), artifacts.PCMContentType, pcm)
	if err != nil {
		return toolError(span, "upload failed", err), nil
	}
	return jsonResult(map[string]any{
		"audio_url":       obj.URL,
		"format":          "s16le",
		"sample_rate":     genai.PCMSampleRate,
		"channels":        genai.PCMChannels,
		"bits_per_sample": genai.PCMBitsPerSample,
		"size":            obj.Size,
	})
}

// HandleListPlatforms returns the platform rule table.
func (h *Handlers) HandleListPlatforms(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.list_platforms")
	defer span.End()

	out := make([]map[string]any, 0)
	for _, r := range platform.All() {
		out = append(out, map[string]any{
			"id":                r.ID,
			"label":             r.Label,
			"aspect_ratio":      r.AspectRatio,
			"min_sec":           r.MinSec,
			"max_sec":           r.MaxSec,
			"captions_required": r.CaptionsRequired,
			"title_max_chars":   r.SEO.TitleMaxChars,
			"hashtag_min":       r.SEO.HashtagMin,
			"hashtag_max":       r.SEO.HashtagMax,
			"required_hashtags": r.SEO.RequiredHashtags,
			"extra_fields":      r.ExtraFields,
		})
	}
	return jsonResult(map[string]any{"platforms": out, "segment_seconds": platform.SegmentSeconds})
}

func jobView(item *JobItem, detail bool) map[string]any {
	v := map[string]any{
		"job_id":     item.JobID,
		"status":     item.Status,
		"platform":   item.Platform,
		"topic":      item.Topic,
		"created_at": item.CreatedAt,
	}
	if item.Title != "" {
		v["title"] = item.Title
	}
	if item.ResultURL != "" {
		v["result_url"] = item.ResultURL
	}
	if !detail {
		return v
	}
	v["progress_percent"] = item.ProgressPercent
	v["stage_message"] = item.StageMessage
	v["requested_duration"] = item.RequestedDuration
	if item.Segments > 0 {
		v["segments"] = item.Segments
		v["normalized_duration"] = item.NormalizedDuration
	}
	if len(item.AssetURLs) > 0 {
		v["asset_urls"] = item.AssetURLs
	}
	if item.ErrorMessage != "" {
		v["error"] = item.ErrorMessage
		v["error_kind"] = item.ErrorKind
	}
	return v
}

// keysOnly carries the per-request credentials for the synchronous tools.
func keysOnly(req mcp.CallToolRequest) GenerateRequest {
	return GenerateRequest{
		Request:         plan.DefaultRequest(),
		Backend:         mcp.ParseString(req, "backend", ""),
		GeminiAPIKey:    mcp.ParseString(req, "gemini_api_key", ""),
		AnthropicAPIKey: mcp.ParseString(req, "anthropic_api_key", ""),
	}
}

// toolError reports err to the caller as a tool error and records it on span.
// Classified errors keep their kind so clients can tell auth from quota.
func toolError(span trace.Span, stage string, err error) *mcp.CallToolResult {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", ae.Error(), ae.Kind))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", stage, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}

func parseBoolParam(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	switch v := req.GetArguments()[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1" || v == "yes"
	default:
		return defaultVal
	}
}

func parseStringMap(req mcp.CallToolRequest, key string) (map[string]string, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, apperr.Invalid("%s must be an object", key)
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out, nil
}

// decodeArg re-encodes an object argument into out.
func decodeArg(req mcp.CallToolRequest, key string, out any) error {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return apperr.Invalid("%s is required", key)
	}
	if s, ok := raw.(string); ok {
		if err := json.Unmarshal([]byte(s), out); err != nil {
			return apperr.Invalid("%s is not valid JSON", key)
		}
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return apperr.Invalid("%s is not valid JSON", key)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Invalid("%s does not match the expected shape", key)
	}
	return nil
}
