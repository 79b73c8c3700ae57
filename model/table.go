package model

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// PositionTable holds one star-centred position (AU) per frame for a body.
// The fetcher fills it once; afterwards callers only read it.
type PositionTable struct {
	Body      Body
	Positions []r3.Vec
}

// NewPositionTable allocates a zeroed table with one entry per frame.
func NewPositionTable(b Body, frames int) *PositionTable {
	if frames < 0 {
		frames = 0
	}
	return &PositionTable{Body: b, Positions: make([]r3.Vec, frames)}
}

// Len returns the number of frames in the table.
func (t *PositionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Positions)
}

// At returns the position for frame i.
func (t *PositionTable) At(i int) (r3.Vec, error) {
	if t == nil {
		return r3.Vec{}, fmt.Errorf("nil position table: frame %d", i)
	}
	if i < 0 || i >= t.Len() {
		return r3.Vec{}, fmt.Errorf("%s table: frame %d out of range [0,%d)", t.Body, i, t.Len())
	}
	return t.Positions[i], nil
}

// Slice returns the positions in [lo, hi), clamped to the table bounds. The
// result shares the table's backing array.
func (t *PositionTable) Slice(lo, hi int) []r3.Vec {
	n := t.Len()
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return nil
	}
	return t.Positions[lo:hi:hi]
}
