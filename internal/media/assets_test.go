package media

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/plan"
)

// echoSpeech returns the requested text as the PCM payload.
type echoSpeech struct {
	mu    sync.Mutex
	texts []string
	fail  string
}

func (e *echoSpeech) Synthesize(_ context.Context, req genai.SpeechRequest) (*genai.Blob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, req.Text)
	if req.Text == e.fail {
		return nil, apperr.Wrap(apperr.UpstreamQuotaExceeded, errors.New("429"))
	}
	return &genai.Blob{Data: []byte(req.Text)}, nil
}

func sampleResult() *plan.Result {
	return &plan.Result{
		VideoPlans: []plan.VideoPlan{samplePlan(), samplePlan()},
		VoiceoverScripts: []plan.VoiceoverScript{
			{SegmentIndex: 1, Lines: []plan.VoiceoverLine{{Text: "first"}}},
			{SegmentIndex: 2, Lines: []plan.VoiceoverLine{{Text: "second"}, {T: 3, Text: "part"}}},
		},
	}
}

func TestRenderAssets(t *testing.T) {
	svc := &Service{
		Images: &fakeImages{blob: &genai.Blob{MIMEType: "image/png", Data: []byte{1}}},
		Speech: &echoSpeech{},
	}
	assets, err := svc.RenderAssets(context.Background(), sampleResult(), 3)
	require.NoError(t, err)
	assert.Equal(t, DataURI("data:image/png;base64,AQ=="), assets.HookImage)
	require.Len(t, assets.Audio, 2)
	assert.Equal(t, "first", string(assets.Audio[0]))
	assert.Equal(t, "second part", string(assets.Audio[1]))
}

func TestRenderAssetsFailure(t *testing.T) {
	svc := &Service{
		Images: &fakeImages{blob: &genai.Blob{Data: []byte{1}}},
		Speech: &echoSpeech{fail: "second part"},
	}
	assets, err := svc.RenderAssets(context.Background(), sampleResult(), 1)
	require.Error(t, err)
	assert.Nil(t, assets)
	assert.Equal(t, apperr.UpstreamQuotaExceeded, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "segment 2 audio")

	_, err = svc.RenderAssets(context.Background(), &plan.Result{}, 1)
	assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
}
