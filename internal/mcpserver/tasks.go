package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/artifacts"
	"github.com/apresai/shortsmith/internal/media"
	"github.com/apresai/shortsmith/internal/observability"
	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/progress"
)

// GenerateRequest holds parameters for a plan generation task.
type GenerateRequest struct {
	Request      plan.Request
	RenderAssets bool
	Backend      string
	Model        string
	Owner        string
	UserID       string // authenticated user ID (empty for anonymous)

	// Per-request API key overrides (BYOK). Empty = use server defaults.
	GeminiAPIKey    string
	AnthropicAPIKey string
}

// Planner runs one generation. *pipeline.Pipeline implements it.
type Planner interface {
	Run(ctx context.Context, req plan.Request) (*plan.Result, error)
}

// Engine builds the per-request generation clients.
type Engine interface {
	Planner(ctx context.Context, req GenerateRequest, onProgress progress.Callback) (Planner, error)
	Media(ctx context.Context, req GenerateRequest) (*media.Service, func() error, error)
}

type jobWriter interface {
	CreateJob(ctx context.Context, job JobItem) error
	UpdateProgress(ctx context.Context, id string, status JobStatus, percent float64, message string) error
	CompleteJob(ctx context.Context, id string, out JobOutcome) error
	FailJob(ctx context.Context, id string, kind apperr.Kind, errMsg string) error
}

type blobStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (artifacts.Object, error)
}

// TaskManager manages async plan generation tasks.
type TaskManager struct {
	jobs    jobWriter
	blobs   blobStore
	engine  Engine
	log     *slog.Logger
	baseCtx context.Context // cancelled on SIGTERM for graceful shutdown

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	maxTasks int
	running  int
	wg       sync.WaitGroup

	// progressInterval throttles store writes within one stage.
	progressInterval time.Duration
}

// NewTaskManager creates a task manager.
// baseCtx should be cancelled on SIGTERM so job goroutines can clean up.
func NewTaskManager(baseCtx context.Context, jobs jobWriter, blobs blobStore, engine Engine, maxTasks int, logger *slog.Logger) *TaskManager {
	if maxTasks <= 0 {
		maxTasks = 5
	}
	return &TaskManager{
		jobs:             jobs,
		blobs:            blobs,
		engine:           engine,
		log:              logger,
		baseCtx:          baseCtx,
		cancels:          make(map[string]context.CancelFunc),
		maxTasks:         maxTasks,
		progressInterval: 2 * time.Second,
	}
}

// StartTask validates the request, records the job and starts it in a
// goroutine. It returns the job ID immediately.
func (tm *TaskManager) StartTask(ctx context.Context, req GenerateRequest) (string, error) {
	if err := req.Request.Validate(); err != nil {
		return "", err
	}

	id, err := NewJobID()
	if err != nil {
		return "", err
	}

	tm.mu.Lock()
	if tm.running >= tm.maxTasks {
		tm.mu.Unlock()
		return "", fmt.Errorf("max concurrent tasks reached (%d)", tm.maxTasks)
	}
	tm.running++

	// The job outlives the tool call: derive from baseCtx and keep only the
	// request's trace.
	taskCtx := observability.DetachTraceContextFrom(ctx, tm.baseCtx)
	taskCtx, cancel := context.WithCancel(taskCtx)
	tm.cancels[id] = cancel
	tm.mu.Unlock()

	err = tm.jobs.CreateJob(ctx, JobItem{
		JobID:             id,
		Owner:             req.Owner,
		UserID:            req.UserID,
		Platform:          string(req.Request.Platform),
		Topic:             req.Request.Topic,
		Backend:           req.Backend,
		RequestedDuration: req.Request.DurationSec,
	})
	if err != nil {
		cancel()
		tm.release(id)
		return "", fmt.Errorf("create job: %w", err)
	}

	tm.wg.Add(1)
	go tm.runJob(taskCtx, id, req)
	return id, nil
}

// CancelTask cancels a running task.
func (tm *TaskManager) CancelTask(id string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	cancel, ok := tm.cancels[id]
	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until every started job has finished.
func (tm *TaskManager) Wait() { tm.wg.Wait() }

// Running returns the number of jobs in flight.
func (tm *TaskManager) Running() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.running
}

func (tm *TaskManager) release(id string) {
	tm.mu.Lock()
	if cancel, ok := tm.cancels[id]; ok {
		cancel()
		delete(tm.cancels, id)
	}
	tm.running--
	tm.mu.Unlock()
}

func (tm *TaskManager) runJob(ctx context.Context, id string, req GenerateRequest) {
	defer tm.wg.Done()
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("job_id", id),
		attribute.String("platform", string(req.Request.Platform)),
	))
	defer span.End()

	log := tm.log.With("job_id", id)

	defer func() {
		// On shutdown (SIGTERM), mark the job failed so it doesn't appear stuck.
		if ctx.Err() != nil {
			failCtx, failCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer failCancel()
			if err := tm.jobs.FailJob(failCtx, id, apperr.UpstreamGenericFailure, "server shutdown during processing"); err != nil {
				log.Warn("Mark job failed on shutdown", "error", err)
			}
		}
		tm.release(id)
	}()

	fail := func(stage string, err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		log.ErrorContext(ctx, "Job failed", "stage", stage, "kind", apperr.KindOf(err), "error", err)
		if ferr := tm.jobs.FailJob(ctx, id, apperr.KindOf(err), err.Error()); ferr != nil {
			log.WarnContext(ctx, "Fail job write failed", "error", ferr)
		}
	}

	planner, err := tm.engine.Planner(ctx, req, tm.progressWriter(ctx, id, span, log))
	if err != nil {
		fail("configure backend", err)
		return
	}

	start := time.Now()
	log.InfoContext(ctx, "Job starting", "platform", req.Request.Platform, "duration", req.Request.DurationSec, "backend", req.Backend)
	res, err := planner.Run(ctx, req.Request)
	if err != nil {
		fail("generate", err)
		return
	}

	var assetURLs []string
	if req.RenderAssets {
		_ = tm.jobs.UpdateProgress(ctx, id, JobStatusRendering, 0.96, "Rendering hook image and voiceover")
		assetURLs, err = tm.renderAssets(ctx, id, req, res)
		if err != nil {
			fail("render assets", err)
			return
		}
	}

	_ = tm.jobs.UpdateProgress(ctx, id, JobStatusUploading, 0.98, "Uploading result")
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fail("marshal result", err)
		return
	}
	obj, err := tm.blobs.Put(ctx, artifacts.PlanKey(id), "application/json", data)
	if err != nil {
		fail("upload", err)
		return
	}

	out := JobOutcome{
		Title:              res.PublishingInfo.Title,
		ResultKey:          obj.Key,
		ResultURL:          obj.URL,
		AssetURLs:          assetURLs,
		NormalizedDuration: res.NormalizedDuration,
		Segments:           res.Segments,
	}
	if err := tm.jobs.CompleteJob(ctx, id, out); err != nil {
		log.ErrorContext(ctx, "Complete job failed", "error", err)
	}

	span.SetAttributes(
		attribute.String("run_id", res.RunID),
		attribute.Int("segments", res.Segments),
		attribute.String("result_url", obj.URL),
	)
	span.SetStatus(codes.Ok, "complete")
	log.InfoContext(ctx, "Job complete", "run_id", res.RunID, "segments", res.Segments,
		"result_url", obj.URL, "elapsed", time.Since(start).Round(time.Millisecond))
}

func (tm *TaskManager) renderAssets(ctx context.Context, id string, req GenerateRequest, res *plan.Result) ([]string, error) {
	svc, closeFn, err := tm.engine.Media(ctx, req)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	assets, err := svc.RenderAssets(ctx, res, 3)
	if err != nil {
		return nil, err
	}

	img, err := media.ParseDataURI(assets.HookImage)
	if err != nil {
		return nil, err
	}
	obj, err := tm.blobs.Put(ctx, artifacts.ImageKey(id), img.MIMEType, img.Data)
	if err != nil {
		return nil, err
	}
	urls := []string{obj.URL}
	for i, pcm := range assets.Audio {
		obj, err := tm.blobs.Put(ctx, artifacts.AudioKey(fmt.Sprintf("%s-seg%d", id, i+1), "pcm"), artifacts.PCMContentType, pcm)
		if err != nil {
			return nil, err
		}
		urls = append(urls, obj.URL)
	}
	return urls, nil
}

// progressWriter forwards pipeline events to the store, at most one write
// per progressInterval except on stage transitions.
func (tm *TaskManager) progressWriter(ctx context.Context, id string, span trace.Span, log *slog.Logger) progress.Callback {
	var lastWrite time.Time
	var lastStage progress.Stage

	return func(evt progress.Event) {
		if evt.Error != nil {
			return
		}
		now := time.Now()
		stageChanged := evt.Stage != lastStage
		if !stageChanged && now.Sub(lastWrite) < tm.progressInterval {
			return
		}
		if stageChanged {
			span.AddEvent("stage_transition", trace.WithAttributes(
				attribute.String("stage", string(evt.Stage)),
				attribute.Float64("percent", evt.Percent),
			))
		}
		if err := tm.jobs.UpdateProgress(ctx, id, mapStage(evt.Stage), evt.Percent*0.95, evt.Message); err != nil {
			log.WarnContext(ctx, "Update progress failed", "error", err)
		}
		lastWrite = now
		lastStage = evt.Stage
	}
}

// mapStage maps a pipeline progress stage to a job status.
func mapStage(stage progress.Stage) JobStatus {
	switch stage {
	case progress.StageValidate, progress.StageSegment:
		return JobStatusGenerating
	case progress.StagePublishing:
		return JobStatusPublishing
	case progress.StageAssets:
		return JobStatusRendering
	case progress.StageComplete:
		return JobStatusUploading
	default:
		return JobStatusSubmitted
	}
}
