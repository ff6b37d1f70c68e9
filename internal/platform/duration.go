package platform

import "math"

// SegmentSeconds is the fixed length of one generated segment.
const SegmentSeconds = 8

// Normalized is the outcome of duration normalization.
type Normalized struct {
	Requested int
	Duration  int
	Segments  int
}

// Normalize snaps requested to the segment grid (never below one segment),
// clamps it into the platform bounds and derives the segment count.
// A clamp may land between grid points; that duration is kept as-is.
func Normalize(requested int, r Rules) Normalized {
	snapped := int(math.Round(float64(requested)/SegmentSeconds)) * SegmentSeconds
	if snapped < SegmentSeconds {
		snapped = SegmentSeconds
	}

	d := snapped
	if d < r.MinSec {
		d = r.MinSec
	}
	if d > r.MaxSec {
		d = r.MaxSec
	}

	segments := int(math.Round(float64(d) / SegmentSeconds))
	if segments < 1 {
		segments = 1
	}

	return Normalized{Requested: requested, Duration: d, Segments: segments}
}
