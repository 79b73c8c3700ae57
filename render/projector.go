// Package render turns frame descriptors into PNG frames, MP4 video and an
// HTML trajectory overview.
package render

import (
	"math"

	"github.com/signalsfoundry/orrery/core"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultAspect is the on-screen x:y:z box proportion.
var DefaultAspect = r3.Vec{X: 4, Y: 4, Z: 3}

// Projector maps points inside a camera box to 2D screen coordinates under an
// orthographic view. The box is first scaled to Aspect, so unequal axis
// ranges are stretched the way a 3D axes box is.
type Projector struct {
	Box    core.CameraBox
	View   core.View
	Aspect r3.Vec

	sinAz, cosAz float64
	sinEl, cosEl float64
}

// NewProjector returns a projector for box seen from view.
func NewProjector(box core.CameraBox, view core.View) *Projector {
	p := &Projector{Box: box, View: view, Aspect: DefaultAspect}
	az := view.Azimuth * math.Pi / 180
	el := view.Elevation * math.Pi / 180
	p.sinAz, p.cosAz = math.Sincos(az)
	p.sinEl, p.cosEl = math.Sincos(el)
	return p
}

// Normalize scales p into the aspect box centred on the origin.
func (p *Projector) Normalize(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: scaleAxis(v.X, p.Box.X, p.Aspect.X),
		Y: scaleAxis(v.Y, p.Box.Y, p.Aspect.Y),
		Z: scaleAxis(v.Z, p.Box.Z, p.Aspect.Z),
	}
}

// Project returns the screen position (u right, v up) and the depth towards
// the viewer.
func (p *Projector) Project(v r3.Vec) (u, w, depth float64) {
	n := p.Normalize(v)
	u = -n.X*p.sinAz + n.Y*p.cosAz
	w = -n.X*p.cosAz*p.sinEl - n.Y*p.sinAz*p.sinEl + n.Z*p.cosEl
	depth = n.X*p.cosAz*p.cosEl + n.Y*p.sinAz*p.cosEl + n.Z*p.sinEl
	return u, w, depth
}

// Extent is the half-size of the square that holds every projected box
// point for any view.
func (p *Projector) Extent() float64 {
	return r3.Norm(p.Aspect) / 2
}

// boxEdges lists the 12 edges of a box as pairs of Corners indices.
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // along X
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // along Y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // along Z
}

func scaleAxis(v float64, r core.Range, size float64) float64 {
	span := r.Span()
	if span == 0 {
		return 0
	}
	return (v - r.Mid()) / span * size
}
