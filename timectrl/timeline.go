package timectrl

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrEmptyTimeline is returned when the requested range holds no frames.
var ErrEmptyTimeline = errors.New("timeline has no frames")

// Timeline is an evenly stepped sequence of frame timestamps.
type Timeline struct {
	Start  time.Time
	Step   time.Duration
	Frames int
}

// NewTimeline builds the frame sequence for durationDays days sampled every
// stepHours hours. The frame count is the whole number of steps that fit in
// the duration; the end instant itself is not a frame.
func NewTimeline(start time.Time, durationDays, stepHours float64) (Timeline, error) {
	if !(durationDays > 0) || math.IsInf(durationDays, 0) {
		return Timeline{}, fmt.Errorf("duration must be positive, got %v days", durationDays)
	}
	if !(stepHours > 0) || math.IsInf(stepHours, 0) {
		return Timeline{}, fmt.Errorf("time step must be positive, got %v hours", stepHours)
	}

	frames := int(durationDays * 24 / stepHours)
	if frames <= 0 {
		return Timeline{}, fmt.Errorf("%w: %v days at %v hour steps", ErrEmptyTimeline, durationDays, stepHours)
	}

	return Timeline{
		Start:  start.UTC(),
		Step:   time.Duration(stepHours * float64(time.Hour)),
		Frames: frames,
	}, nil
}

// At returns the timestamp of frame i.
func (tl Timeline) At(i int) time.Time {
	return tl.Start.Add(time.Duration(i) * tl.Step)
}

// End returns the timestamp of the last frame.
func (tl Timeline) End() time.Time {
	if tl.Frames == 0 {
		return tl.Start
	}
	return tl.At(tl.Frames - 1)
}

// Times returns all frame timestamps in order.
func (tl Timeline) Times() []time.Time {
	out := make([]time.Time, tl.Frames)
	for i := range out {
		out[i] = tl.At(i)
	}
	return out
}

// StepHours returns the step length in hours.
func (tl Timeline) StepHours() float64 {
	return tl.Step.Hours()
}
