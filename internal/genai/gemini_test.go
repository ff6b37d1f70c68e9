package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/schema"
)

type captured struct {
	path string
	key  string
	body gcRequest
}

func newTestServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.key = r.Header.Get("x-goog-api-key")
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &c.body))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func textReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(b)
}

func inlineReply(mime string, data []byte) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{
				map[string]any{"text": "here"},
				map[string]any{"inlineData": map[string]any{"mimeType": mime, "data": base64.StdEncoding.EncodeToString(data)}},
			}},
		}},
	})
	return string(b)
}

func TestGeminiGenerateText(t *testing.T) {
	srv, c := newTestServer(t, http.StatusOK, textReply(`{"title":"x"}`))
	g := NewGemini("test-key", WithBaseURL(srv.URL))

	out, err := g.GenerateText(context.Background(), TextRequest{
		Prompt:          "plan it",
		Schema:          schema.Publishing,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, out)

	assert.Equal(t, "/"+DefaultTextModel+":generateContent", c.path)
	assert.Equal(t, "test-key", c.key)
	cfg := c.body.GenerationConfig
	require.NotNil(t, cfg)
	assert.Equal(t, "application/json", cfg.ResponseMimeType)
	assert.Equal(t, 8192, cfg.MaxOutputTokens)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-9)
	assert.Equal(t, "OBJECT", cfg.ResponseSchema["type"])
	assert.Equal(t, "plan it", c.body.Contents[0].Parts[0].Text)
}

func TestGeminiGenerateImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv, c := newTestServer(t, http.StatusOK, inlineReply("image/png", png))
	g := NewGemini("k", WithBaseURL(srv.URL))

	blob, err := g.GenerateImage(context.Background(), ImageRequest{
		Prompt: "make it blue",
		Input:  &Blob{MIMEType: "image/jpeg", Data: []byte("jpg")},
	})
	require.NoError(t, err)
	assert.Equal(t, png, blob.Data)
	assert.Equal(t, "image/png", blob.MIMEType)

	assert.Equal(t, "/"+DefaultImageModel+":generateContent", c.path)
	assert.Equal(t, []string{"IMAGE"}, c.body.GenerationConfig.ResponseModalities)
	parts := c.body.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MimeType)
	assert.Equal(t, "make it blue", parts[1].Text)
}

func TestGeminiMissingPayload(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, textReply("sorry, no image"))
	g := NewGemini("k", WithBaseURL(srv.URL))

	_, err := g.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, apperr.UpstreamMissingPayload, apperr.KindOf(err))
	assert.Equal(t, apperr.MsgNoImage, err.Error())

	_, err = g.Synthesize(context.Background(), SpeechRequest{Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, apperr.MsgNoAudio, err.Error())
}

func TestGeminiSynthesize(t *testing.T) {
	pcm := []byte{1, 0, 2, 0}
	srv, c := newTestServer(t, http.StatusOK, inlineReply("audio/L16;codec=pcm;rate=24000", pcm))
	g := NewGemini("k", WithBaseURL(srv.URL))

	blob, err := g.Synthesize(context.Background(), SpeechRequest{Text: "xin chao"})
	require.NoError(t, err)
	assert.Equal(t, pcm, blob.Data)
	assert.Equal(t, "/"+DefaultSpeechModel+":generateContent", c.path)
	cfg := c.body.GenerationConfig
	assert.Equal(t, []string{"AUDIO"}, cfg.ResponseModalities)
	assert.Equal(t, "Kore", cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestGeminiStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apperr.Kind
	}{
		{"bad key", http.StatusBadRequest, `{"error":{"message":"API key not valid. Please pass a valid API key."}}`, apperr.UpstreamAuthError},
		{"forbidden", http.StatusForbidden, `{}`, apperr.UpstreamAuthError},
		{"quota", http.StatusTooManyRequests, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, apperr.UpstreamQuotaExceeded},
		{"overloaded", http.StatusServiceUnavailable, `{"error":{"status":"UNAVAILABLE"}}`, apperr.UpstreamGenericFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			g := NewGemini("k", WithBaseURL(srv.URL))

			_, err := g.GenerateText(context.Background(), TextRequest{Prompt: "p"})
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.NotContains(t, err.Error(), tt.body, "raw body must not leak")
		})
	}
}

func TestGeminiMissingKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	t.Setenv("GEMINI_API_KEY", "")
	g := NewGemini("", WithBaseURL(srv.URL))
	_, err := g.GenerateText(context.Background(), TextRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, apperr.UpstreamAuthError, apperr.KindOf(err))
	assert.Zero(t, calls.Load())
}

func TestGeminiMalformedEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, "<html>oops</html>")
	g := NewGemini("k", WithBaseURL(srv.URL))
	_, err := g.GenerateText(context.Background(), TextRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, apperr.UpstreamMalformedOutput, apperr.KindOf(err))
	assert.False(t, strings.Contains(err.Error(), "oops"))
}
