package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// BarRenderer shows run progress. On a terminal it redraws a status line and
// a bar with a segment track in place; otherwise it appends one line per event.
type BarRenderer struct {
	out     io.Writer
	start   time.Time
	live    bool
	columns int
	last    Event
	drawn   int // lines drawn by the previous redraw
}

// NewBarRenderer returns a renderer for out, sized to the terminal when out is one.
func NewBarRenderer(out *os.File) *BarRenderer {
	fd := out.Fd()
	live := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	columns := 80
	if live {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			columns = w
		}
	}
	return newBarRenderer(out, live, columns)
}

func newBarRenderer(out io.Writer, live bool, columns int) *BarRenderer {
	return &BarRenderer{out: out, start: time.Now(), live: live, columns: columns}
}

// Handle is a Callback.
func (r *BarRenderer) Handle(e Event) {
	e.Elapsed = time.Since(r.start)
	if e.Stage == StageComplete {
		e.Percent = 1
	}
	if e.SegmentTotal == 0 {
		// Keep the track visible through the publishing and asset stages.
		e.SegmentTotal = r.last.SegmentTotal
		if e.Stage != StageSegment {
			e.SegmentNum = e.SegmentTotal
		}
	}
	r.last = e

	if r.live {
		r.redraw(e)
		return
	}
	r.appendLine(e)
}

// Finish removes the live display and prints where the plan and assets went.
func (r *BarRenderer) Finish() {
	if r.live {
		r.erase()
	}
	e := r.last
	switch {
	case e.Error != nil:
		fmt.Fprintf(r.out, "\n  Error: %v\n", e.Error)
	case e.Stage != StageComplete:
	case e.OutputFile != "":
		fmt.Fprintf(r.out, "\n  Plan saved to %s (%s)\n", e.OutputFile, clock(e.Elapsed))
		for _, a := range e.Assets {
			fmt.Fprintf(r.out, "  Asset: %s\n", a)
		}
	default:
		fmt.Fprintf(r.out, "\n  %s (%s)\n", e.Message, clock(e.Elapsed))
	}
}

func (r *BarRenderer) redraw(e Event) {
	r.erase()
	status := "  " + e.Message
	if e.Stage == StageSegment && e.SegmentTotal > 0 {
		status = fmt.Sprintf("  Segment %d/%d · %s  %s", e.SegmentNum, e.SegmentTotal, e.Call, e.Message)
	}
	bar := fmt.Sprintf("  %s %3d%%  %s", renderBar(e.Percent, r.barWidth()), int(e.Percent*100), clock(e.Elapsed))
	if track := renderTrack(e); track != "" {
		bar += "  " + track
	}
	fmt.Fprintf(r.out, "%s\n%s", status, bar)
	r.drawn = 2
}

func (r *BarRenderer) appendLine(e Event) {
	prefix := "[" + clock(e.Elapsed) + "]"
	if e.Stage == StageSegment && e.SegmentTotal > 0 {
		prefix += fmt.Sprintf(" [%d/%d %s]", e.SegmentNum, e.SegmentTotal, e.Call)
	}
	fmt.Fprintf(r.out, "%s %s\n", prefix, e.Message)
}

// erase clears the lines of the previous redraw and returns the cursor to
// the start of the first one.
func (r *BarRenderer) erase() {
	if r.drawn == 0 {
		return
	}
	fmt.Fprint(r.out, "\r\033[2K")
	for i := 1; i < r.drawn; i++ {
		fmt.Fprint(r.out, "\033[A\033[2K")
	}
	fmt.Fprint(r.out, "\r")
	r.drawn = 0
}

// barWidth leaves room for the percent, clock and a short segment track.
func (r *BarRenderer) barWidth() int {
	return min(max(r.columns-28, 20), 50)
}

// renderBar draws a [####....] bar of width cells.
func renderBar(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	filled := min(int(pct*float64(width)), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// renderTrack marks finished segments with ■, the active one with ▣ and the
// rest with □. Runs longer than 16 segments get a count instead.
func renderTrack(e Event) string {
	total := e.SegmentTotal
	if total == 0 {
		return ""
	}
	done := e.SegmentNum - 1
	if e.Stage != StageSegment {
		done = total
	}
	if total > 16 {
		return fmt.Sprintf("%d/%d segments", max(done, 0), total)
	}
	var b strings.Builder
	for i := 0; i < total; i++ {
		switch {
		case i < done:
			b.WriteString("■")
		case i == done:
			b.WriteString("▣")
		default:
			b.WriteString("□")
		}
	}
	return b.String()
}

// clock formats d as M:SS.
func clock(d time.Duration) string {
	s := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
