package genai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/apresai/shortsmith/internal/apperr"
)

// NewLimiter returns a limiter allowing perMinute requests with a burst of one.
// A non-positive rate disables limiting.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if err := l.Wait(ctx); err != nil {
		return apperr.Wrap(apperr.UpstreamGenericFailure, err)
	}
	return nil
}

type limitedText struct {
	next TextGenerator
	l    *rate.Limiter
}

// LimitText throttles g through l. The same limiter may be shared across runs
// and capabilities.
func LimitText(g TextGenerator, l *rate.Limiter) TextGenerator {
	return limitedText{next: g, l: l}
}

func (t limitedText) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if err := wait(ctx, t.l); err != nil {
		return "", err
	}
	return t.next.GenerateText(ctx, req)
}

type limitedImages struct {
	next ImageGenerator
	l    *rate.Limiter
}

// LimitImages throttles g through l.
func LimitImages(g ImageGenerator, l *rate.Limiter) ImageGenerator {
	return limitedImages{next: g, l: l}
}

func (t limitedImages) GenerateImage(ctx context.Context, req ImageRequest) (*Blob, error) {
	if err := wait(ctx, t.l); err != nil {
		return nil, err
	}
	return t.next.GenerateImage(ctx, req)
}

type limitedSpeech struct {
	next SpeechSynthesizer
	l    *rate.Limiter
}

// LimitSpeech throttles s through l.
func LimitSpeech(s SpeechSynthesizer, l *rate.Limiter) SpeechSynthesizer {
	return limitedSpeech{next: s, l: l}
}

func (t limitedSpeech) Synthesize(ctx context.Context, req SpeechRequest) (*Blob, error) {
	if err := wait(ctx, t.l); err != nil {
		return nil, err
	}
	return t.next.Synthesize(ctx, req)
}
