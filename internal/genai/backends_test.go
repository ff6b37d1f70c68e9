package genai

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/apresai/shortsmith/internal/apperr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
	}{
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "no creds"), apperr.UpstreamAuthError},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "slow down"), apperr.UpstreamQuotaExceeded},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), apperr.UpstreamGenericFailure},
		{"smithy throttled", &smithy.GenericAPIError{Code: "ThrottlingException"}, apperr.UpstreamQuotaExceeded},
		{"smithy denied", &smithy.GenericAPIError{Code: "AccessDeniedException"}, apperr.UpstreamAuthError},
		{"plain text", errors.New("RESOURCE_EXHAUSTED: quota"), apperr.UpstreamQuotaExceeded},
		{"already classified", apperr.Invalid("bad"), apperr.InvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, apperr.KindOf(Classify(tt.err)))
		})
	}
	assert.NoError(t, Classify(nil))
}

type fakeConverser struct {
	in  *bedrockruntime.ConverseInput
	out *bedrockruntime.ConverseOutput
	err error
}

func (f *fakeConverser) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestNovaGenerateText(t *testing.T) {
	fake := &fakeConverser{out: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role:    types.ConversationRoleAssistant,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: `{"ok":true}`}},
		}},
	}}
	n := newNova("", fake)

	out, err := n.GenerateText(context.Background(), TextRequest{Prompt: "p", Temperature: 0.7, MaxOutputTokens: 1000})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, novaModels["nova-lite"], *fake.in.ModelId)
	assert.Equal(t, int32(1000), *fake.in.InferenceConfig.MaxTokens)

	fake.err = &smithy.GenericAPIError{Code: "ThrottlingException"}
	_, err = n.GenerateText(context.Background(), TextRequest{Prompt: "p"})
	assert.Equal(t, apperr.UpstreamQuotaExceeded, apperr.KindOf(err))
}

func TestClaudeGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-haiku-4-5-20251001",
			"content": [{"type": "text", "text": "{\"title\":\"T\"}"}],
			"stop_reason": "end_turn", "stop_sequence": null,
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c := NewClaude("haiku", option.WithBaseURL(srv.URL), option.WithAPIKey("test"), option.WithMaxRetries(0))
	out, err := c.GenerateText(context.Background(), TextRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"T"}`, out)
}

func TestClaudeAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	c := NewClaude("sonnet", option.WithBaseURL(srv.URL), option.WithAPIKey("bad"), option.WithMaxRetries(0))
	_, err := c.GenerateText(context.Background(), TextRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, apperr.UpstreamAuthError, apperr.KindOf(err))
}

type fakeSpeech struct {
	req  *texttospeechpb.SynthesizeSpeechRequest
	resp *texttospeechpb.SynthesizeSpeechResponse
}

func (f *fakeSpeech) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.req = req
	return f.resp, nil
}

func (f *fakeSpeech) Close() error { return nil }

func wav(samples []byte) []byte {
	h := make([]byte, 44)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+len(samples)))
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(len(samples)))
	return append(h, samples...)
}

func TestCloudTTS(t *testing.T) {
	samples := []byte{1, 2, 3, 4}
	fake := &fakeSpeech{resp: &texttospeechpb.SynthesizeSpeechResponse{AudioContent: wav(samples)}}
	c := &CloudTTS{client: fake, languageCode: "vi-VN"}

	blob, err := c.Synthesize(context.Background(), SpeechRequest{Text: "xin chao"})
	require.NoError(t, err)
	assert.Equal(t, samples, blob.Data)
	assert.Equal(t, "vi-VN-Chirp3-HD-Kore", fake.req.Voice.Name)
	assert.Equal(t, texttospeechpb.AudioEncoding_LINEAR16, fake.req.AudioConfig.AudioEncoding)
	assert.Equal(t, int32(24000), fake.req.AudioConfig.SampleRateHertz)

	assert.Equal(t, "en-US-Chirp3-HD-Puck", c.VoiceName("en-US-Chirp3-HD-Puck"))

	fake.resp = &texttospeechpb.SynthesizeSpeechResponse{}
	_, err = c.Synthesize(context.Background(), SpeechRequest{Text: "x"})
	assert.Equal(t, apperr.MsgNoAudio, err.Error())
}

func TestStripWAVHeader(t *testing.T) {
	raw := []byte{9, 9, 9}
	assert.Equal(t, raw, stripWAVHeader(raw))
	assert.Equal(t, []byte{7, 8}, stripWAVHeader(wav([]byte{7, 8})))
}

type countingText struct{ calls int }

func (c *countingText) GenerateText(context.Context, TextRequest) (string, error) {
	c.calls++
	return "{}", nil
}

func TestLimitText(t *testing.T) {
	next := &countingText{}
	g := LimitText(next, NewLimiter(0))
	for i := 0; i < 3; i++ {
		_, err := g.GenerateText(context.Background(), TextRequest{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, next.calls)

	slow := LimitText(next, NewLimiter(1))
	_, err := slow.GenerateText(context.Background(), TextRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = slow.GenerateText(ctx, TextRequest{})
	require.Error(t, err)
	assert.Equal(t, 4, next.calls)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendGemini, b)

	b, err = ParseBackend(" Claude ")
	require.NoError(t, err)
	assert.Equal(t, BackendClaude, b)

	_, err = ParseBackend("openai")
	assert.ErrorContains(t, err, "invalid backend")

	s, err := ParseSpeechBackend("cloudtts")
	require.NoError(t, err)
	assert.Equal(t, SpeechCloudTTS, s)
	_, err = ParseSpeechBackend("polly")
	assert.Error(t, err)
}

func TestNewTextSelectsBackend(t *testing.T) {
	g, err := NewText(context.Background(), Config{Backend: BackendClaude, AnthropicAPIKey: "k", Model: "sonnet"})
	require.NoError(t, err)
	c, ok := g.(*Claude)
	require.True(t, ok)
	assert.Equal(t, claudeModels["sonnet"], c.model)

	g, err = NewText(context.Background(), Config{GeminiAPIKey: "k", Limiter: NewLimiter(0)})
	require.NoError(t, err)
	_, ok = g.(limitedText)
	assert.True(t, ok)

	img, err := NewImages(context.Background(), Config{Backend: BackendNova, GeminiAPIKey: "k"})
	require.NoError(t, err)
	_, ok = img.(*Gemini)
	assert.True(t, ok)

	sp, closeFn, err := NewSpeech(context.Background(), Config{GeminiAPIKey: "k"})
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	_, ok = sp.(*Gemini)
	assert.True(t, ok)
}
