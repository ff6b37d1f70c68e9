package progress

import "time"

// Stage identifies which pipeline stage is active.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageSegment    Stage = "segment"
	StagePublishing Stage = "publishing"
	StageAssets     Stage = "assets"
	StageComplete   Stage = "complete"
)

// Call names the generation request a segment event is about.
type Call string

const (
	CallVisual    Call = "visual"
	CallVoiceover Call = "voiceover"
)

// Event carries progress information from the pipeline to the renderer.
type Event struct {
	Stage        Stage
	Message      string
	Percent      float64 // 0.0–1.0
	SegmentNum   int
	SegmentTotal int
	Call         Call
	Elapsed      time.Duration
	Error        error
	// OutputFile is set on StageComplete with the result path.
	OutputFile string
	// Assets lists the rendered asset paths, set on StageComplete.
	Assets []string
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// CallPercent places call number done (0-based) out of total on the 0.05–0.95
// band reserved for generation calls.
func CallPercent(done, total int) float64 {
	if total <= 0 {
		return 0.05
	}
	return 0.05 + 0.9*float64(done)/float64(total)
}
