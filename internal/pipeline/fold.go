package pipeline

import (
	"time"
)

// foldSegments applies step to segment indices 1..n in order, threading the
// accumulator through. The first error stops the fold and the accumulator is
// discarded.
func foldSegments[S any](n int, seed S, step func(acc S, index int) (S, error)) (S, error) {
	acc := seed
	for i := 1; i <= n; i++ {
		next, err := step(acc, i)
		if err != nil {
			var zero S
			return zero, err
		}
		acc = next
	}
	return acc, nil
}

// DefaultPacing is the fixed pause after every generation call within a segment.
const DefaultPacing = 500 * time.Millisecond

// Pacer spaces out consecutive generation calls.
type Pacer interface {
	Pause()
}

// FixedPacer sleeps for a constant duration. The pause ignores cancellation.
type FixedPacer time.Duration

func (d FixedPacer) Pause() { time.Sleep(time.Duration(d)) }

// NoPacer never pauses.
type NoPacer struct{}

func (NoPacer) Pause() {}
