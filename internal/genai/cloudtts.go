package genai

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/shortsmith/internal/apperr"
)

type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// CloudTTS is a SpeechSynthesizer backed by Google Cloud Text-to-Speech
// (Chirp 3 HD voices). It asks for LINEAR16 at 24 kHz and returns bare PCM.
type CloudTTS struct {
	client       speechClient
	languageCode string
}

// NewCloudTTS creates a Cloud TTS client using Application Default Credentials.
func NewCloudTTS(ctx context.Context, languageCode string) (*CloudTTS, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create Google TTS client: %w", err)
	}
	return &CloudTTS{client: client, languageCode: orDefault(languageCode, "vi-VN")}, nil
}

// VoiceName expands a bare Chirp 3 HD voice (e.g. "Kore") into the full
// Cloud TTS voice id for the configured language.
func (c *CloudTTS) VoiceName(voice string) string {
	voice = orDefault(voice, DefaultVoice)
	if strings.Contains(voice, "-") {
		return voice
	}
	return fmt.Sprintf("%s-Chirp3-HD-%s", c.languageCode, voice)
}

// Synthesize implements SpeechSynthesizer.
func (c *CloudTTS) Synthesize(ctx context.Context, req SpeechRequest) (*Blob, error) {
	voice := c.VoiceName(req.Voice)
	ctx, span := tracer.Start(ctx, "genai.speech", trace.WithAttributes(
		attribute.String("genai.backend", "cloudtts"),
		attribute.String("genai.voice", voice),
	))
	defer span.End()

	resp, err := c.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: c.languageCode,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: PCMSampleRate,
		},
	})
	if err != nil {
		err = Classify(err)
		recordError(span, err)
		return nil, err
	}
	if len(resp.GetAudioContent()) == 0 {
		err := apperr.New(apperr.UpstreamMissingPayload, apperr.MsgNoAudio)
		recordError(span, err)
		return nil, err
	}

	return &Blob{
		MIMEType: fmt.Sprintf("audio/L16;rate=%d", PCMSampleRate),
		Data:     stripWAVHeader(resp.GetAudioContent()),
	}, nil
}

// Close releases the underlying gRPC connection.
func (c *CloudTTS) Close() error { return c.client.Close() }

// stripWAVHeader returns the sample data of a RIFF/WAVE file, or data unchanged
// when it is not one.
func stripWAVHeader(data []byte) []byte {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return data
	}
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		off += 8
		if id == "data" {
			end := off + size
			if end > len(data) || size == 0 {
				end = len(data)
			}
			return data[off:end]
		}
		off += size + size%2
	}
	return data
}

var _ SpeechSynthesizer = (*CloudTTS)(nil)
