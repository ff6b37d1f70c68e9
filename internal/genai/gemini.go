package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/shortsmith/internal/apperr"
)

var tracer = otel.Tracer("shortsmith-genai")

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// authorizer decorates an outgoing request with credentials.
type authorizer interface {
	endpoint(model string) string
	authorize(ctx context.Context, req *http.Request) error
}

type apiKeyAuth struct {
	baseURL string
	key     string
}

func (a apiKeyAuth) endpoint(model string) string {
	return fmt.Sprintf("%s/%s:generateContent", a.baseURL, model)
}

func (a apiKeyAuth) authorize(_ context.Context, req *http.Request) error {
	if a.key == "" {
		return apperr.New(apperr.UpstreamAuthError, apperr.MsgAuth)
	}
	req.Header.Set("x-goog-api-key", a.key)
	return nil
}

// Gemini talks to the generateContent REST API. It implements TextGenerator,
// ImageGenerator and SpeechSynthesizer.
type Gemini struct {
	name       string
	auth       authorizer
	httpClient *http.Client
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithBaseURL points the AI Studio client at a different model root.
func WithBaseURL(u string) GeminiOption {
	return func(g *Gemini) {
		if a, ok := g.auth.(apiKeyAuth); ok {
			a.baseURL = strings.TrimRight(u, "/")
			g.auth = a
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) { g.httpClient = c }
}

// NewGemini returns an AI Studio client. An empty key falls back to GEMINI_API_KEY.
func NewGemini(apiKey string, opts ...GeminiOption) *Gemini {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	g := &Gemini{
		name:       "gemini",
		auth:       apiKeyAuth{baseURL: geminiBaseURL, key: apiKey},
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

type gcRequest struct {
	Contents         []gcContent  `json:"contents"`
	GenerationConfig *gcGenConfig `json:"generationConfig,omitempty"`
}

type gcContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gcPart `json:"parts"`
}

type gcPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *gcInlineData `json:"inlineData,omitempty"`
}

type gcInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type gcGenConfig struct {
	Temperature        *float64        `json:"temperature,omitempty"`
	MaxOutputTokens    int             `json:"maxOutputTokens,omitempty"`
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any  `json:"responseSchema,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	SpeechConfig       *gcSpeechConfig `json:"speechConfig,omitempty"`
}

type gcSpeechConfig struct {
	VoiceConfig gcVoiceConfig `json:"voiceConfig"`
}

type gcVoiceConfig struct {
	PrebuiltVoiceConfig gcPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type gcPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type gcResponse struct {
	Candidates []struct {
		Content struct {
			Parts []gcPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (r *gcResponse) parts() []gcPart {
	if len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0].Content.Parts
}

// GenerateText implements TextGenerator.
func (g *Gemini) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	model := orDefault(req.Model, DefaultTextModel)
	ctx, span := g.start(ctx, "text", model)
	defer span.End()

	cfg := &gcGenConfig{
		MaxOutputTokens:  req.MaxOutputTokens,
		ResponseMimeType: "application/json",
	}
	if req.Temperature > 0 {
		t := req.Temperature
		cfg.Temperature = &t
	}
	if req.Schema != nil {
		cfg.ResponseSchema = req.Schema.ResponseSchema()
	}

	resp, err := g.do(ctx, model, gcRequest{
		Contents:         []gcContent{{Role: "user", Parts: []gcPart{{Text: req.Prompt}}}},
		GenerationConfig: cfg,
	})
	if err != nil {
		recordError(span, err)
		return "", err
	}

	var b strings.Builder
	for _, p := range resp.parts() {
		b.WriteString(p.Text)
	}
	span.SetAttributes(attribute.Int("genai.reply_chars", b.Len()))
	return b.String(), nil
}

// GenerateImage implements ImageGenerator.
func (g *Gemini) GenerateImage(ctx context.Context, req ImageRequest) (*Blob, error) {
	model := orDefault(req.Model, DefaultImageModel)
	ctx, span := g.start(ctx, "image", model)
	defer span.End()

	var parts []gcPart
	if req.Input != nil {
		parts = append(parts, gcPart{InlineData: &gcInlineData{
			MimeType: req.Input.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(req.Input.Data),
		}})
	}
	parts = append(parts, gcPart{Text: req.Prompt})

	resp, err := g.do(ctx, model, gcRequest{
		Contents:         []gcContent{{Role: "user", Parts: parts}},
		GenerationConfig: &gcGenConfig{ResponseModalities: []string{"IMAGE"}},
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	blob, err := firstInline(resp, apperr.MsgNoImage)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if blob.MIMEType == "" {
		blob.MIMEType = "image/png"
	}
	return blob, nil
}

// Synthesize implements SpeechSynthesizer.
func (g *Gemini) Synthesize(ctx context.Context, req SpeechRequest) (*Blob, error) {
	model := orDefault(req.Model, DefaultSpeechModel)
	ctx, span := g.start(ctx, "speech", model)
	defer span.End()

	resp, err := g.do(ctx, model, gcRequest{
		Contents: []gcContent{{Parts: []gcPart{{Text: req.Text}}}},
		GenerationConfig: &gcGenConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &gcSpeechConfig{
				VoiceConfig: gcVoiceConfig{PrebuiltVoiceConfig: gcPrebuiltVoice{VoiceName: orDefault(req.Voice, DefaultVoice)}},
			},
		},
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	blob, err := firstInline(resp, apperr.MsgNoAudio)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("genai.audio_bytes", len(blob.Data)))
	return blob, nil
}

func (g *Gemini) start(ctx context.Context, kind, model string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "genai."+kind, trace.WithAttributes(
		attribute.String("genai.backend", g.name),
		attribute.String("genai.model", model),
	))
}

func (g *Gemini) do(ctx context.Context, model string, reqBody gcRequest) (*gcResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", g.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.auth.endpoint(model), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := g.auth.authorize(ctx, req); err != nil {
		return nil, err
	}

	res, err := g.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamGenericFailure, fmt.Errorf("send %s request: %w", g.name, err))
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamGenericFailure, fmt.Errorf("read %s response: %w", g.name, err))
	}
	if res.StatusCode != http.StatusOK {
		return nil, statusError(g.name, res.StatusCode, string(respBody))
	}

	var resp gcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, apperr.Malformed(fmt.Errorf("parse %s response: %w", g.name, err))
	}
	return &resp, nil
}

func firstInline(resp *gcResponse, missing string) (*Blob, error) {
	for _, p := range resp.parts() {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, apperr.Malformed(fmt.Errorf("decode inline data: %w", err))
		}
		return &Blob{MIMEType: p.InlineData.MimeType, Data: data}, nil
	}
	return nil, apperr.New(apperr.UpstreamMissingPayload, missing)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("genai.error_kind", string(apperr.KindOf(err))))
}

var (
	_ TextGenerator     = (*Gemini)(nil)
	_ ImageGenerator    = (*Gemini)(nil)
	_ SpeechSynthesizer = (*Gemini)(nil)
)
