// Package media renders the hook image and voiceover audio for a finished plan.
package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/prompt"
)

// Service adapts the image and speech backends to plan-level operations.
// Either backend may be nil when the caller only needs the other one.
type Service struct {
	Images genai.ImageGenerator
	Speech genai.SpeechSynthesizer

	// ImageModel and SpeechModel override the backend defaults when set.
	ImageModel  string
	SpeechModel string
}

// GenerateHookImage renders a thumbnail for p from its first shot.
func (s *Service) GenerateHookImage(ctx context.Context, p plan.VideoPlan) (DataURI, error) {
	if len(p.Shots) == 0 {
		return "", apperr.Invalid("video plan has no shots")
	}
	if s.Images == nil {
		return "", fmt.Errorf("media: no image backend configured")
	}

	blob, err := s.Images.GenerateImage(ctx, genai.ImageRequest{
		Prompt: prompt.HookImage(p),
		Model:  s.ImageModel,
	})
	if err != nil {
		return "", apperr.WithOp("hook image", err)
	}
	return imageURI(blob)
}

// EditHookImage applies instruction to the image encoded in uri. The URI and
// the instruction are validated before any backend call.
func (s *Service) EditHookImage(ctx context.Context, uri DataURI, instruction string) (DataURI, error) {
	input, err := ParseDataURI(uri)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(input.MIMEType, "image/") {
		return "", apperr.Invalid("data URI must hold an image, got %q", input.MIMEType)
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", apperr.Invalid("edit instruction is required")
	}
	if s.Images == nil {
		return "", fmt.Errorf("media: no image backend configured")
	}

	blob, err := s.Images.GenerateImage(ctx, genai.ImageRequest{
		Prompt: instruction,
		Input:  input,
		Model:  s.ImageModel,
	})
	if err != nil {
		return "", apperr.WithOp("edit image", err)
	}
	return imageURI(blob)
}

// GenerateVoiceoverAudio synthesizes text with the fixed voice and returns
// raw PCM (24 kHz, mono, signed 16-bit little-endian).
func (s *Service) GenerateVoiceoverAudio(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Invalid("voiceover text is required")
	}
	if s.Speech == nil {
		return nil, fmt.Errorf("media: no speech backend configured")
	}

	blob, err := s.Speech.Synthesize(ctx, genai.SpeechRequest{
		Text:  text,
		Voice: genai.DefaultVoice,
		Model: s.SpeechModel,
	})
	if err != nil {
		return nil, apperr.WithOp("voiceover audio", err)
	}
	if blob == nil || len(blob.Data) == 0 {
		return nil, apperr.New(apperr.UpstreamMissingPayload, apperr.MsgNoAudio)
	}
	return blob.Data, nil
}

// SegmentAudio synthesizes the spoken text of one voiceover script.
func (s *Service) SegmentAudio(ctx context.Context, script plan.VoiceoverScript) ([]byte, error) {
	return s.GenerateVoiceoverAudio(ctx, script.SpokenText())
}

func imageURI(blob *genai.Blob) (DataURI, error) {
	if blob == nil || len(blob.Data) == 0 {
		return "", apperr.New(apperr.UpstreamMissingPayload, apperr.MsgNoImage)
	}
	mime := blob.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return EncodeDataURI(mime, blob.Data), nil
}
