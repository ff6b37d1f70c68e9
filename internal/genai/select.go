package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

// Backend names a text backend.
type Backend string

const (
	BackendGemini Backend = "gemini"
	BackendVertex Backend = "vertex"
	BackendClaude Backend = "claude"
	BackendNova   Backend = "nova"
)

// SpeechBackend names a speech backend.
type SpeechBackend string

const (
	SpeechGemini   SpeechBackend = "gemini"
	SpeechVertex   SpeechBackend = "vertex"
	SpeechCloudTTS SpeechBackend = "cloudtts"
)

var (
	validBackends = map[Backend]bool{BackendGemini: true, BackendVertex: true, BackendClaude: true, BackendNova: true}
	validSpeech   = map[SpeechBackend]bool{SpeechGemini: true, SpeechVertex: true, SpeechCloudTTS: true}
)

// Config selects and authenticates the backends for one process or request.
type Config struct {
	Backend         Backend
	Speech          SpeechBackend
	GeminiAPIKey    string
	AnthropicAPIKey string
	// Model is the backend-specific default text model (alias or full id).
	Model string
	// LanguageCode is the BCP-47 voice language for Cloud TTS, e.g. "vi-VN".
	LanguageCode string
	// Limiter, when set, throttles every capability built from this config.
	Limiter *rate.Limiter
}

// ParseBackend validates a --backend value. Empty means gemini.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return BackendGemini, nil
	}
	if !validBackends[b] {
		return "", fmt.Errorf("invalid backend %q: must be one of gemini, vertex, claude, nova", s)
	}
	return b, nil
}

// ParseSpeechBackend validates a --speech value. Empty means gemini.
func ParseSpeechBackend(s string) (SpeechBackend, error) {
	b := SpeechBackend(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return SpeechGemini, nil
	}
	if !validSpeech[b] {
		return "", fmt.Errorf("invalid speech backend %q: must be one of gemini, vertex, cloudtts", s)
	}
	return b, nil
}

// NewText builds the text generator cfg selects.
func NewText(ctx context.Context, cfg Config) (TextGenerator, error) {
	var g TextGenerator
	switch cfg.Backend {
	case BackendGemini, "":
		g = NewGemini(cfg.GeminiAPIKey)
	case BackendVertex:
		v, err := NewVertex(ctx, "", "")
		if err != nil {
			return nil, err
		}
		g = v
	case BackendClaude:
		var opts []option.RequestOption
		if cfg.AnthropicAPIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.AnthropicAPIKey))
		}
		g = NewClaude(cfg.Model, opts...)
	case BackendNova:
		n, err := NewNova(ctx, cfg.Model)
		if err != nil {
			return nil, err
		}
		g = n
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if cfg.Limiter != nil {
		g = LimitText(g, cfg.Limiter)
	}
	return g, nil
}

// NewImages builds the image generator. Only Gemini models render images, so
// every text backend except vertex uses AI Studio.
func NewImages(ctx context.Context, cfg Config) (ImageGenerator, error) {
	var g ImageGenerator
	if cfg.Backend == BackendVertex {
		v, err := NewVertex(ctx, "", "")
		if err != nil {
			return nil, err
		}
		g = v
	} else {
		g = NewGemini(cfg.GeminiAPIKey)
	}
	if cfg.Limiter != nil {
		g = LimitImages(g, cfg.Limiter)
	}
	return g, nil
}

// NewSpeech builds the speech synthesizer. The returned close func releases
// any client connection and is never nil.
func NewSpeech(ctx context.Context, cfg Config) (SpeechSynthesizer, func() error, error) {
	noop := func() error { return nil }
	var s SpeechSynthesizer
	closeFn := noop
	switch cfg.Speech {
	case SpeechGemini, "":
		s = NewGemini(cfg.GeminiAPIKey)
	case SpeechVertex:
		v, err := NewVertex(ctx, "", "")
		if err != nil {
			return nil, noop, err
		}
		s = v
	case SpeechCloudTTS:
		c, err := NewCloudTTS(ctx, cfg.LanguageCode)
		if err != nil {
			return nil, noop, err
		}
		s, closeFn = c, c.Close
	default:
		return nil, noop, fmt.Errorf("unknown speech backend %q", cfg.Speech)
	}
	if cfg.Limiter != nil {
		s = LimitSpeech(s, cfg.Limiter)
	}
	return s, closeFn, nil
}
