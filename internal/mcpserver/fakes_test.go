package mcpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/artifacts"
	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/media"
	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/progress"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memJobs is an in-memory job store.
type memJobs struct {
	mu       sync.Mutex
	jobs     map[string]*JobItem
	statuses map[string][]JobStatus
	gets     int
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]*JobItem{}, statuses: map[string][]JobStatus{}}
}

func (m *memJobs) CreateJob(_ context.Context, job JobItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Status = string(JobStatusSubmitted)
	job.CreatedAt = "2026-01-02T03:04:05Z"
	m.jobs[job.JobID] = &job
	return nil
}

func (m *memJobs) UpdateProgress(_ context.Context, id string, status JobStatus, percent float64, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status, j.ProgressPercent, j.StageMessage = string(status), percent, message
	m.statuses[id] = append(m.statuses[id], status)
	return nil
}

func (m *memJobs) CompleteJob(_ context.Context, id string, out JobOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status = string(JobStatusComplete)
	j.Title, j.ResultKey, j.ResultURL, j.AssetURLs = out.Title, out.ResultKey, out.ResultURL, out.AssetURLs
	j.Segments, j.NormalizedDuration = out.Segments, out.NormalizedDuration
	return nil
}

func (m *memJobs) FailJob(_ context.Context, id string, kind apperr.Kind, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status, j.ErrorKind, j.ErrorMessage = string(JobStatusFailed), string(kind), msg
	return nil
}

func (m *memJobs) GetJob(_ context.Context, id string) (*JobItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) ListJobs(_ context.Context, limit int, cursor string) ([]JobItem, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		if cursor == "" || id < cursor {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	var next string
	if len(ids) > limit {
		ids = ids[:limit]
		next = ids[limit-1]
	}
	out := make([]JobItem, len(ids))
	for i, id := range ids {
		out[i] = *m.jobs[id]
	}
	return out, next, nil
}

func (m *memJobs) get(id string) JobItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[id]
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *memBlobs) Put(_ context.Context, key, contentType string, body []byte) (artifacts.Object, error) {
	if b.err != nil {
		return artifacts.Object{}, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = body
	b.types[key] = contentType
	return artifacts.Object{Key: key, URL: "https://cdn.test/" + key, Size: int64(len(body))}, nil
}

func (b *memBlobs) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects))
	for k := range b.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// fakePlanner emits a couple of progress events and returns res or err.
type fakePlanner struct {
	onProgress progress.Callback
	res        *plan.Result
	err        error
	block      chan struct{}
}

func (p *fakePlanner) Run(ctx context.Context, req plan.Request) (*plan.Result, error) {
	p.onProgress(progress.Event{Stage: progress.StageSegment, Message: "Segment 1/2", Percent: 0.2})
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	p.onProgress(progress.Event{Stage: progress.StagePublishing, Message: "Publishing", Percent: 0.9})
	return p.res, nil
}

type fakeImages struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeImages) GenerateImage(context.Context, genai.ImageRequest) (*genai.Blob, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &genai.Blob{MIMEType: "image/png", Data: []byte("png-bytes")}, nil
}

type fakeSpeech struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSpeech) Synthesize(_ context.Context, req genai.SpeechRequest) (*genai.Blob, error) {
	f.mu.Lock()
	f.texts = append(f.texts, req.Text)
	f.mu.Unlock()
	return &genai.Blob{Data: []byte("pcm:" + req.Text)}, nil
}

type fakeEngine struct {
	mu       sync.Mutex
	requests []GenerateRequest
	res      *plan.Result
	runErr   error
	buildErr error
	block    chan struct{}
	images   *fakeImages
	speech   *fakeSpeech
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{res: sampleResult(), images: &fakeImages{}, speech: &fakeSpeech{}}
}

func (e *fakeEngine) Planner(_ context.Context, req GenerateRequest, onProgress progress.Callback) (Planner, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
	if e.buildErr != nil {
		return nil, e.buildErr
	}
	return &fakePlanner{onProgress: onProgress, res: e.res, err: e.runErr, block: e.block}, nil
}

func (e *fakeEngine) Media(_ context.Context, req GenerateRequest) (*media.Service, func() error, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
	if e.buildErr != nil {
		return nil, nil, e.buildErr
	}
	return &media.Service{Images: e.images, Speech: e.speech}, func() error { return nil }, nil
}

func sampleResult() *plan.Result {
	res := &plan.Result{
		RunID:              "run-1",
		Platform:           "shorts",
		RequestedDuration:  16,
		NormalizedDuration: 16,
		Segments:           2,
		PublishingInfo:     plan.PublishingInfo{Title: "Night market bites", Hashtags: "#shorts #food #market"},
	}
	for i := 1; i <= 2; i++ {
		res.VideoPlans = append(res.VideoPlans, plan.VideoPlan{
			AspectRatio: "9:16",
			Topic:       "night market",
			Shots:       []plan.Shot{{Shot: 1, Visual: fmt.Sprintf("segment %d wide shot", i)}},
		})
		res.VoiceoverScripts = append(res.VoiceoverScripts, plan.VoiceoverScript{
			SegmentIndex: i,
			Lines:        []plan.VoiceoverLine{{T: 0, Text: fmt.Sprintf("line %d", i)}},
		})
	}
	return res
}
