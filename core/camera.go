package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// CameraPreset selects how the camera box is chosen for a frame.
type CameraPreset int

const (
	// CameraWide is the fixed box around the Sun and Earth's orbit.
	CameraWide CameraPreset = iota
	// CameraFollow is a small box recentred on a body every frame.
	CameraFollow
)

func (c CameraPreset) String() string {
	switch c {
	case CameraWide:
		return "wide"
	case CameraFollow:
		return "follow"
	default:
		return fmt.Sprintf("camera(%d)", int(c))
	}
}

// Range is a closed interval on one axis.
type Range struct {
	Min, Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Span returns Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Mid returns the range midpoint.
func (r Range) Mid() float64 { return (r.Min + r.Max) / 2 }

// CameraBox is the axis-aligned region of space shown in a frame (AU).
type CameraBox struct {
	X, Y, Z Range
}

// Wide camera extents (AU).
const (
	WideHalfXY = 2.0
	WideHalfZ  = 0.5
)

// WideBox returns the fixed heliocentric view: x,y in [-2, 2] and z in
// [-0.5, 0.5] AU.
func WideBox() CameraBox {
	return CameraBox{
		X: Range{-WideHalfXY, WideHalfXY},
		Y: Range{-WideHalfXY, WideHalfXY},
		Z: Range{-WideHalfZ, WideHalfZ},
	}
}

// CenteredBox returns a box of half-width scale around center on x and y,
// and scale*zRatio on z.
func CenteredBox(center r3.Vec, scale, zRatio float64) CameraBox {
	scale = math.Abs(scale)
	hz := scale * math.Abs(zRatio)
	return CameraBox{
		X: Range{center.X - scale, center.X + scale},
		Y: Range{center.Y - scale, center.Y + scale},
		Z: Range{center.Z - hz, center.Z + hz},
	}
}

// Contains reports whether p lies inside the box.
func (b CameraBox) Contains(p r3.Vec) bool {
	return b.X.Contains(p.X) && b.Y.Contains(p.Y) && b.Z.Contains(p.Z)
}

// Center returns the box centre.
func (b CameraBox) Center() r3.Vec {
	return r3.Vec{X: b.X.Mid(), Y: b.Y.Mid(), Z: b.Z.Mid()}
}

// Corners returns the eight box vertices. Index bit 0 selects X.Max, bit 1
// Y.Max and bit 2 Z.Max.
func (b CameraBox) Corners() [8]r3.Vec {
	var out [8]r3.Vec
	for i := range out {
		p := r3.Vec{X: b.X.Min, Y: b.Y.Min, Z: b.Z.Min}
		if i&1 != 0 {
			p.X = b.X.Max
		}
		if i&2 != 0 {
			p.Y = b.Y.Max
		}
		if i&4 != 0 {
			p.Z = b.Z.Max
		}
		out[i] = p
	}
	return out
}

// View is the camera orientation in degrees.
type View struct {
	Elevation float64
	Azimuth   float64
}

// ViewAt returns the view for frame with the azimuth advancing rate degrees
// per frame from offset, wrapped into [0, 360).
func ViewAt(frame int, elevation, offset, rate float64) View {
	az := math.Mod(offset+float64(frame)*rate, 360)
	if az < 0 {
		az += 360
	}
	return View{Elevation: elevation, Azimuth: az}
}
