package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/plan"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

type fakeImages struct {
	calls []genai.ImageRequest
	blob  *genai.Blob
	err   error
}

func (f *fakeImages) GenerateImage(_ context.Context, req genai.ImageRequest) (*genai.Blob, error) {
	f.calls = append(f.calls, req)
	return f.blob, f.err
}

type fakeSpeech struct {
	calls []genai.SpeechRequest
	blob  *genai.Blob
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, req genai.SpeechRequest) (*genai.Blob, error) {
	f.calls = append(f.calls, req)
	return f.blob, f.err
}

func samplePlan() plan.VideoPlan {
	return plan.VideoPlan{
		AspectRatio: "9:16",
		Topic:       "night market",
		PersonaDNA:  "street food host",
		Shots:       []plan.Shot{{Shot: 1, Visual: "steam rising from a wok"}},
	}
}

func TestGenerateHookImage(t *testing.T) {
	imgs := &fakeImages{blob: &genai.Blob{MIMEType: "image/jpeg", Data: []byte{1, 2, 3}}}
	svc := &Service{Images: imgs}

	uri, err := svc.GenerateHookImage(context.Background(), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, DataURI("data:image/jpeg;base64,AQID"), uri)

	require.Len(t, imgs.calls, 1)
	assert.Contains(t, imgs.calls[0].Prompt, "steam rising from a wok")
	assert.Contains(t, imgs.calls[0].Prompt, "9:16")
	assert.Nil(t, imgs.calls[0].Input)
}

func TestGenerateHookImageDefaultsMIME(t *testing.T) {
	svc := &Service{Images: &fakeImages{blob: &genai.Blob{Data: []byte{1}}}}
	uri, err := svc.GenerateHookImage(context.Background(), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, DataURI("data:image/png;base64,AQ=="), uri)
}

func TestGenerateHookImageErrors(t *testing.T) {
	t.Run("no shots", func(t *testing.T) {
		imgs := &fakeImages{}
		_, err := (&Service{Images: imgs}).GenerateHookImage(context.Background(), plan.VideoPlan{})
		assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
		assert.Empty(t, imgs.calls)
	})
	t.Run("no image in reply", func(t *testing.T) {
		_, err := (&Service{Images: &fakeImages{blob: &genai.Blob{MIMEType: "image/png"}}}).
			GenerateHookImage(context.Background(), samplePlan())
		assert.Equal(t, apperr.UpstreamMissingPayload, apperr.KindOf(err))
		assert.Equal(t, "no image data", err.Error())
	})
	t.Run("backend failure keeps kind", func(t *testing.T) {
		_, err := (&Service{Images: &fakeImages{err: apperr.Wrap(apperr.UpstreamQuotaExceeded, errors.New("429"))}}).
			GenerateHookImage(context.Background(), samplePlan())
		assert.Equal(t, apperr.UpstreamQuotaExceeded, apperr.KindOf(err))
	})
}

func TestEditHookImage(t *testing.T) {
	imgs := &fakeImages{blob: &genai.Blob{MIMEType: "image/png", Data: []byte("edited")}}
	svc := &Service{Images: imgs}
	in := EncodeDataURI("image/png", pngHeader)

	out, err := svc.EditHookImage(context.Background(), in, "  make the sky purple ")
	require.NoError(t, err)
	assert.Equal(t, EncodeDataURI("image/png", []byte("edited")), out)

	require.Len(t, imgs.calls, 1)
	assert.Equal(t, "make the sky purple", imgs.calls[0].Prompt)
	require.NotNil(t, imgs.calls[0].Input)
	assert.Equal(t, "image/png", imgs.calls[0].Input.MIMEType)
	assert.Equal(t, pngHeader, imgs.calls[0].Input.Data)
}

func TestEditHookImageRejectsBeforeCalling(t *testing.T) {
	tests := []struct {
		name        string
		uri         DataURI
		instruction string
	}{
		{"plain url", "https://example.com/a.png", "brighter"},
		{"not base64", "data:image/png;base64,@@@", "brighter"},
		{"no base64 marker", "data:image/png,abc", "brighter"},
		{"not an image", EncodeDataURI("text/plain", []byte("hi")), "brighter"},
		{"empty payload", "data:image/png;base64,", "brighter"},
		{"blank instruction", EncodeDataURI("image/png", pngHeader), "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imgs := &fakeImages{blob: &genai.Blob{Data: []byte{1}}}
			_, err := (&Service{Images: imgs}).EditHookImage(context.Background(), tt.uri, tt.instruction)
			require.Error(t, err)
			assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
			assert.Empty(t, imgs.calls)
		})
	}
}

func TestGenerateVoiceoverAudio(t *testing.T) {
	speech := &fakeSpeech{blob: &genai.Blob{MIMEType: "audio/L16;rate=24000", Data: []byte{0, 1, 0, 2}}}
	svc := &Service{Speech: speech}

	pcm, err := svc.GenerateVoiceoverAudio(context.Background(), "Xin chào")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0, 2}, pcm)
	require.Len(t, speech.calls, 1)
	assert.Equal(t, "Kore", speech.calls[0].Voice)

	_, err = svc.GenerateVoiceoverAudio(context.Background(), " ")
	assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
	assert.Len(t, speech.calls, 1)

	_, err = (&Service{Speech: &fakeSpeech{blob: &genai.Blob{}}}).GenerateVoiceoverAudio(context.Background(), "hi")
	assert.Equal(t, apperr.UpstreamMissingPayload, apperr.KindOf(err))
	assert.Equal(t, "no audio data", err.Error())
}

func TestSegmentAudioJoinsLines(t *testing.T) {
	speech := &fakeSpeech{blob: &genai.Blob{Data: []byte{9}}}
	script := plan.VoiceoverScript{Lines: []plan.VoiceoverLine{{T: 0, Text: "Hello"}, {T: 2, Text: "world"}}}

	_, err := (&Service{Speech: speech}).SegmentAudio(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", speech.calls[0].Text)
}

func TestImageMIME(t *testing.T) {
	assert.Equal(t, "image/png", ImageMIME(pngHeader))
	assert.Equal(t, "image/jpeg", ImageMIME([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.Equal(t, "image/webp", ImageMIME([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "", ImageMIME([]byte("GIF89a")))
}
