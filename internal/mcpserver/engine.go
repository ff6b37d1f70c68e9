package mcpserver

import (
	"context"
	"log/slog"

	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/media"
	"github.com/apresai/shortsmith/internal/pipeline"
	"github.com/apresai/shortsmith/internal/platform"
	"github.com/apresai/shortsmith/internal/progress"
)

// backendEngine builds generation clients from the server defaults, letting
// each request override the backend, model and API keys.
type backendEngine struct {
	defaults genai.Config
	log      *slog.Logger
}

// NewEngine returns the production Engine. defaults.Limiter, when set, is
// shared by every job so concurrent jobs respect one upstream quota.
func NewEngine(defaults genai.Config, logger *slog.Logger) Engine {
	return &backendEngine{defaults: defaults, log: logger}
}

func (e *backendEngine) config(req GenerateRequest) (genai.Config, error) {
	cfg := e.defaults
	if req.Backend != "" {
		b, err := genai.ParseBackend(req.Backend)
		if err != nil {
			return cfg, err
		}
		cfg.Backend = b
	}
	if req.Model != "" {
		cfg.Model = req.Model
	}
	if req.GeminiAPIKey != "" {
		cfg.GeminiAPIKey = req.GeminiAPIKey
	}
	if req.AnthropicAPIKey != "" {
		cfg.AnthropicAPIKey = req.AnthropicAPIKey
	}
	cfg.LanguageCode = platform.VoiceLocale(req.Request.LanguageTag())
	return cfg, nil
}

func (e *backendEngine) Planner(ctx context.Context, req GenerateRequest, onProgress progress.Callback) (Planner, error) {
	cfg, err := e.config(req)
	if err != nil {
		return nil, err
	}
	gen, err := genai.NewText(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{
		pipeline.WithProgress(onProgress),
		pipeline.WithLogger(e.log),
	}
	if cfg.Backend == genai.BackendGemini || cfg.Backend == genai.BackendVertex || cfg.Backend == "" {
		opts = append(opts, pipeline.WithModel(cfg.Model))
	}
	return pipeline.New(gen, opts...), nil
}

func (e *backendEngine) Media(ctx context.Context, req GenerateRequest) (*media.Service, func() error, error) {
	cfg, err := e.config(req)
	if err != nil {
		return nil, nil, err
	}
	images, err := genai.NewImages(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	speech, closeFn, err := genai.NewSpeech(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return &media.Service{Images: images, Speech: speech}, closeFn, nil
}
