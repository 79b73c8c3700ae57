// Package core maps frame indices to what an animation frame shows: the
// phase, the visible bodies, trail windows, camera box and viewing angle.
// Everything here is a pure function of the frame index and the position
// tables.
package core

import "fmt"

// Phase is one stage of the animation.
type Phase int

const (
	// PhaseSun shows the Sun alone.
	PhaseSun Phase = iota + 1
	// PhaseSunEarth adds Earth and its orbit trail.
	PhaseSunEarth
	// PhaseAll is the final stage. In the enhanced profile the camera
	// follows Earth and the Moon comes into view.
	PhaseAll
)

var phaseNames = map[Phase]string{
	PhaseSun:      "sun",
	PhaseSunEarth: "sun-earth",
	PhaseAll:      "earth-moon",
}

// Phases returns every phase in order.
func Phases() []Phase { return []Phase{PhaseSun, PhaseSunEarth, PhaseAll} }

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Share is an integer fraction applied with floor division.
type Share struct {
	Num, Den int
}

// Of returns floor(n*Num/Den), or 0 for a zero denominator.
func (s Share) Of(n int) int {
	if s.Den <= 0 || s.Num <= 0 || n <= 0 {
		return 0
	}
	return n * s.Num / s.Den
}

// PhasePolicy decides where each phase ends for a given frame count.
type PhasePolicy struct {
	Phase1Min   int
	Phase1Share Share
	Phase2Min   int
	Phase2Share Share
}

// EnhancedPolicy gives the Sun a short solo phase and Earth the longest one.
var EnhancedPolicy = PhasePolicy{
	Phase1Min:   50,
	Phase1Share: Share{1, 6},
	Phase2Min:   100,
	Phase2Share: Share{1, 2},
}

// ClassicPolicy splits the animation into thirds.
var ClassicPolicy = PhasePolicy{
	Phase1Share: Share{1, 3},
	Phase2Share: Share{2, 3},
}

// SinglePhasePolicy puts every frame in PhaseAll.
var SinglePhasePolicy = PhasePolicy{}

// Boundaries are the exclusive end frames of each phase.
// Invariant: 0 <= SunEnd <= SunEarthEnd <= Total.
type Boundaries struct {
	SunEnd      int
	SunEarthEnd int
	Total       int
}

// Boundaries computes the phase ends for total frames.
func (p PhasePolicy) Boundaries(total int) Boundaries {
	if total < 0 {
		total = 0
	}
	b1 := min(max(p.Phase1Min, p.Phase1Share.Of(total)), total)
	b2 := min(max(p.Phase2Min, p.Phase2Share.Of(total)), total)
	b1 = max(b1, 0)
	b2 = max(b2, b1)
	return Boundaries{SunEnd: b1, SunEarthEnd: b2, Total: total}
}

// PhaseOf returns the phase frame belongs to. Frames past the end report
// PhaseAll; callers validate the range.
func (b Boundaries) PhaseOf(frame int) Phase {
	switch {
	case frame < b.SunEnd:
		return PhaseSun
	case frame < b.SunEarthEnd:
		return PhaseSunEarth
	default:
		return PhaseAll
	}
}

// Range returns the frames [lo, hi) covered by phase. Skipped phases have
// lo == hi.
func (b Boundaries) Range(p Phase) (lo, hi int) {
	switch p {
	case PhaseSun:
		return 0, b.SunEnd
	case PhaseSunEarth:
		return b.SunEnd, b.SunEarthEnd
	case PhaseAll:
		return b.SunEarthEnd, b.Total
	default:
		return 0, 0
	}
}

func (b Boundaries) String() string {
	return fmt.Sprintf("sun [0,%d) sun-earth [%d,%d) earth-moon [%d,%d)",
		b.SunEnd, b.SunEnd, b.SunEarthEnd, b.SunEarthEnd, b.Total)
}
