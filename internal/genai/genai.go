// Package genai provides the generation-service capabilities the pipeline and
// media adapters depend on, plus the concrete backends that implement them.
package genai

import (
	"context"

	"github.com/apresai/shortsmith/internal/schema"
)

const (
	DefaultTextModel   = "gemini-2.5-flash"
	DefaultImageModel  = "gemini-2.5-flash-image"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Kore"

	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 8192
)

// PCM format returned by the speech backends.
const (
	PCMSampleRate    = 24000
	PCMChannels      = 1
	PCMBitsPerSample = 16
)

// Blob is binary content with its MIME type.
type Blob struct {
	MIMEType string
	Data     []byte
}

// TextRequest asks for a structured JSON reply.
type TextRequest struct {
	Prompt          string
	Schema          *schema.Schema
	Temperature     float64
	MaxOutputTokens int
	// Model overrides the backend's default model when set.
	Model string
}

// ImageRequest asks for an image. Input, when set, is the image to edit.
type ImageRequest struct {
	Prompt string
	Input  *Blob
	Model  string
}

// SpeechRequest asks for single-speaker speech.
type SpeechRequest struct {
	Text  string
	Voice string
	Model string
}

// TextGenerator produces the raw text of a structured reply.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ImageGenerator produces a single image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*Blob, error)
}

// SpeechSynthesizer produces raw PCM speech (24 kHz, mono, signed 16-bit LE).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (*Blob, error)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
