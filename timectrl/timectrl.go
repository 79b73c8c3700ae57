package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the FrameClock paces frames.
type Mode int

const (
	// RealTime delivers one frame per Interval of wall-clock time.
	RealTime Mode = iota
	// Accelerated delivers frames as quickly as the listeners return.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// FrameListener is invoked once per frame with the frame index and its
// simulation timestamp.
type FrameListener func(frame int, simTime time.Time)

// FrameClock steps through a Timeline frame by frame and notifies registered
// listeners. Listeners run on the goroutine that calls Run.
type FrameClock struct {
	mu       sync.RWMutex
	Timeline Timeline
	Interval time.Duration
	Mode     Mode

	frame       int
	currentTime time.Time

	listeners []FrameListener
}

// NewFrameClock constructs a clock positioned before the first frame.
func NewFrameClock(tl Timeline, interval time.Duration, mode Mode) *FrameClock {
	return &FrameClock{
		Timeline:    tl,
		Interval:    interval,
		Mode:        mode,
		frame:       -1,
		currentTime: tl.Start,
	}
}

// Now returns the simulation time of the last delivered frame.
func (fc *FrameClock) Now() time.Time {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.currentTime
}

// Frame returns the index of the last delivered frame, or -1 before Run.
func (fc *FrameClock) Frame() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.frame
}

// AddListener registers a callback invoked on every frame.
func (fc *FrameClock) AddListener(fn FrameListener) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.listeners = append(fc.listeners, fn)
}

// Run delivers every frame of the timeline in order. It returns the number of
// frames delivered and ctx.Err() when the context ends the run early.
func (fc *FrameClock) Run(ctx context.Context) (int, error) {
	fc.mu.RLock()
	tl := fc.Timeline
	listeners := append([]FrameListener(nil), fc.listeners...)
	pace := fc.Mode == RealTime && fc.Interval > 0
	interval := fc.Interval
	fc.mu.RUnlock()

	var ticker *time.Ticker
	if pace {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	delivered := 0
	for frame := 0; frame < tl.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if ticker != nil && frame > 0 {
			select {
			case <-ctx.Done():
				return delivered, ctx.Err()
			case <-ticker.C:
			}
		}

		simTime := tl.At(frame)
		fc.mu.Lock()
		fc.frame = frame
		fc.currentTime = simTime
		fc.mu.Unlock()

		for _, fn := range listeners {
			fn(frame, simTime)
		}
		delivered++
	}
	return delivered, nil
}
