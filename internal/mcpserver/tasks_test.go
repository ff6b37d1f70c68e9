package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/progress"
)

func newTestManager(t *testing.T, engine *fakeEngine, maxTasks int) (*TaskManager, *memJobs, *memBlobs) {
	t.Helper()
	jobs, blobs := newMemJobs(), newMemBlobs()
	tm := NewTaskManager(context.Background(), jobs, blobs, engine, maxTasks, quietLogger())
	tm.progressInterval = 0
	return tm, jobs, blobs
}

func validRequest() GenerateRequest {
	r := plan.DefaultRequest()
	r.Topic = "night market"
	return GenerateRequest{Request: r, Owner: "test", UserID: "u-1"}
}

func TestStartTaskCompletes(t *testing.T) {
	tm, jobs, blobs := newTestManager(t, newFakeEngine(), 2)

	id, err := tm.StartTask(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	tm.Wait()

	job := jobs.get(id)
	assert.Equal(t, string(JobStatusComplete), job.Status)
	assert.Equal(t, "u-1", job.UserID)
	assert.Equal(t, "Night market bites", job.Title)
	assert.Equal(t, "plans/"+id+".json", job.ResultKey)
	assert.Equal(t, "https://cdn.test/plans/"+id+".json", job.ResultURL)
	assert.Equal(t, 2, job.Segments)
	assert.Equal(t, 16, job.NormalizedDuration)
	assert.Empty(t, job.AssetURLs)

	var saved plan.Result
	require.NoError(t, json.Unmarshal(blobs.objects["plans/"+id+".json"], &saved))
	assert.Equal(t, "run-1", saved.RunID)
	assert.Equal(t, []JobStatus{JobStatusGenerating, JobStatusPublishing, JobStatusUploading}, jobs.statuses[id])
	assert.Equal(t, 0, tm.Running())
}

func TestStartTaskRendersAssets(t *testing.T) {
	engine := newFakeEngine()
	tm, jobs, blobs := newTestManager(t, engine, 2)

	req := validRequest()
	req.RenderAssets = true
	id, err := tm.StartTask(context.Background(), req)
	require.NoError(t, err)
	tm.Wait()

	job := jobs.get(id)
	require.Equal(t, string(JobStatusComplete), job.Status)
	assert.Equal(t, []string{
		"audio/" + id + "-seg1.pcm",
		"audio/" + id + "-seg2.pcm",
		"images/" + id + ".png",
		"plans/" + id + ".json",
	}, blobs.keys())
	assert.Len(t, job.AssetURLs, 3)
	assert.Equal(t, "https://cdn.test/images/"+id+".png", job.AssetURLs[0])
	assert.Equal(t, []byte("pcm:line 2"), blobs.objects["audio/"+id+"-seg2.pcm"])
	assert.Contains(t, jobs.statuses[id], JobStatusRendering)
}

func TestStartTaskRecordsFailureKind(t *testing.T) {
	tests := []struct {
		name     string
		engine   func(*fakeEngine)
		blobErr  error
		wantKind apperr.Kind
		wantMsg  string
	}{
		{
			name:     "quota",
			engine:   func(e *fakeEngine) { e.runErr = apperr.WithOp("segment 1/2 visual", apperr.Wrap(apperr.UpstreamQuotaExceeded, errors.New("429 body secret"))) },
			wantKind: apperr.UpstreamQuotaExceeded,
			wantMsg:  "[segment 1/2 visual] " + apperr.MsgQuota,
		},
		{
			name:     "unknown backend",
			engine:   func(e *fakeEngine) { e.buildErr = apperr.Invalid("unknown backend %q", "gpt") },
			wantKind: apperr.InvalidRequest,
			wantMsg:  `unknown backend "gpt"`,
		},
		{
			name:     "upload",
			engine:   func(*fakeEngine) {},
			blobErr:  errors.New("s3 down"),
			wantKind: apperr.UpstreamGenericFailure,
			wantMsg:  "s3 down",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine()
			tt.engine(engine)
			tm, jobs, blobs := newTestManager(t, engine, 2)
			blobs.err = tt.blobErr

			id, err := tm.StartTask(context.Background(), validRequest())
			require.NoError(t, err)
			tm.Wait()

			job := jobs.get(id)
			assert.Equal(t, string(JobStatusFailed), job.Status)
			assert.Equal(t, string(tt.wantKind), job.ErrorKind)
			assert.Equal(t, tt.wantMsg, job.ErrorMessage)
			assert.NotContains(t, job.ErrorMessage, "secret")
			assert.Empty(t, job.ResultURL)
		})
	}
}

func TestStartTaskRejectsInvalidRequest(t *testing.T) {
	engine := newFakeEngine()
	tm, jobs, _ := newTestManager(t, engine, 2)

	req := validRequest()
	req.Request.Topic = " "
	_, err := tm.StartTask(context.Background(), req)
	assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
	assert.Empty(t, jobs.jobs)
	assert.Empty(t, engine.requests)
}

func TestStartTaskCapsConcurrency(t *testing.T) {
	engine := newFakeEngine()
	engine.block = make(chan struct{})
	tm, _, _ := newTestManager(t, engine, 1)

	_, err := tm.StartTask(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = tm.StartTask(context.Background(), validRequest())
	assert.EqualError(t, err, "max concurrent tasks reached (1)")

	close(engine.block)
	tm.Wait()
	assert.Equal(t, 0, tm.Running())
}

func TestCancelTaskMarksJobFailed(t *testing.T) {
	engine := newFakeEngine()
	engine.block = make(chan struct{})
	tm, jobs, _ := newTestManager(t, engine, 2)

	id, err := tm.StartTask(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, tm.CancelTask(id))
	tm.Wait()

	assert.Equal(t, string(JobStatusFailed), jobs.get(id).Status)
	assert.False(t, tm.CancelTask(id))
}

func TestMapStage(t *testing.T) {
	assert.Equal(t, JobStatusGenerating, mapStage(progress.StageValidate))
	assert.Equal(t, JobStatusGenerating, mapStage(progress.StageSegment))
	assert.Equal(t, JobStatusPublishing, mapStage(progress.StagePublishing))
	assert.Equal(t, JobStatusRendering, mapStage(progress.StageAssets))
	assert.Equal(t, JobStatusUploading, mapStage(progress.StageComplete))
}

func TestJobStatusTerminal(t *testing.T) {
	assert.True(t, JobStatusComplete.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.False(t, JobStatusGenerating.Terminal())
}
