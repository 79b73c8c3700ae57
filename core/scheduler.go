package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrFrameOutOfRange is returned for frames outside [0, total).
var ErrFrameOutOfRange = errors.New("frame out of range")

// TableSource supplies one position table per body.
type TableSource interface {
	Table(body model.Body) *model.PositionTable
}

// BodyState is a body drawn in a frame.
type BodyState struct {
	Body     model.Body
	Position r3.Vec
}

// Trail is the recent path of a body.
type Trail struct {
	Body   model.Body
	Window Window
	Points []r3.Vec
}

// Drawable reports whether the trail holds at least two points.
func (t Trail) Drawable() bool { return len(t.Points) >= 2 }

// FrameDescriptor is everything a renderer needs for one frame.
type FrameDescriptor struct {
	Frame int
	Total int
	Time  time.Time
	Phase Phase
	Label string

	Bodies []BodyState
	Trails []Trail

	Camera CameraPreset
	Box    CameraBox
	View   View
}

// Shows reports whether body is drawn in the frame.
func (d FrameDescriptor) Shows(body model.Body) bool {
	for _, b := range d.Bodies {
		if b.Body == body {
			return true
		}
	}
	return false
}

// Scheduler describes the frames of one run under a profile.
type Scheduler struct {
	profile  Profile
	timeline timectrl.Timeline
	bounds   Boundaries
	tables   map[model.Body]*model.PositionTable
}

// NewScheduler validates that src holds a table of timeline length for every
// body and that the profile covers every phase it produces.
func NewScheduler(p Profile, tl timectrl.Timeline, src TableSource) (*Scheduler, error) {
	if src == nil {
		return nil, errors.New("scheduler: nil table source")
	}
	if err := p.Validate(tl.Frames); err != nil {
		return nil, err
	}
	tables := make(map[model.Body]*model.PositionTable, 3)
	for _, b := range model.Bodies() {
		t := src.Table(b)
		if t == nil {
			return nil, fmt.Errorf("scheduler: no %s table", b)
		}
		if t.Len() != tl.Frames {
			return nil, fmt.Errorf("scheduler: %s table has %d frames, timeline has %d", b, t.Len(), tl.Frames)
		}
		tables[b] = t
	}
	return &Scheduler{
		profile:  p,
		timeline: tl,
		bounds:   p.Policy.Boundaries(tl.Frames),
		tables:   tables,
	}, nil
}

// Profile returns the scheduler's profile.
func (s *Scheduler) Profile() Profile { return s.profile }

// Boundaries returns the phase boundaries for the run.
func (s *Scheduler) Boundaries() Boundaries { return s.bounds }

// Total returns the frame count.
func (s *Scheduler) Total() int { return s.timeline.Frames }

// Describe returns the descriptor for frame.
func (s *Scheduler) Describe(frame int) (FrameDescriptor, error) {
	total := s.timeline.Frames
	if frame < 0 || frame >= total {
		return FrameDescriptor{}, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameOutOfRange, frame, total)
	}
	phase := s.bounds.PhaseOf(frame)
	stage, ok := s.profile.Stage(phase)
	if !ok {
		return FrameDescriptor{}, fmt.Errorf("profile %q has no stage for phase %s", s.profile.Name, phase)
	}

	d := FrameDescriptor{
		Frame:  frame,
		Total:  total,
		Time:   s.timeline.At(frame),
		Phase:  phase,
		Label:  stage.Label,
		Camera: stage.Camera,
		View:   ViewAt(frame, stage.Elevation, s.profile.AzimuthOffset, s.profile.RotationDegPerFrame),
	}

	for _, b := range stage.Bodies {
		d.Bodies = append(d.Bodies, BodyState{Body: b, Position: s.tables[b].Positions[frame]})
	}

	if stage.TrailsAfter < 0 || frame > stage.TrailsAfter {
		for _, ts := range stage.Trails {
			w := TrailWindow(frame, ts.Points)
			d.Trails = append(d.Trails, Trail{
				Body:   ts.Body,
				Window: w,
				Points: s.tables[ts.Body].Slice(w.Lo, w.Hi),
			})
		}
	}

	switch stage.Camera {
	case CameraFollow:
		d.Box = CenteredBox(s.tables[s.profile.FollowBody].Positions[frame], s.profile.FollowScale, s.profile.FollowZRatio)
	default:
		d.Box = WideBox()
	}
	return d, nil
}

// Caption is the text overlay of a frame.
type Caption struct {
	Title string
	Date  string
	Phase string
	Info  []string
}

// Lines returns the non-empty caption lines top to bottom.
func (c Caption) Lines() []string {
	out := make([]string, 0, 3+len(c.Info))
	for _, l := range append([]string{c.Title, c.Date, c.Phase}, c.Info...) {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (c Caption) String() string { return strings.Join(c.Lines(), "\n") }

// Caption builds the overlay text for d.
func (s *Scheduler) Caption(d FrameDescriptor) Caption {
	c := Caption{
		Title: fmt.Sprintf(s.profile.TitleFormat, s.timeline.Start.Format("2006-01-02")),
		Date:  d.Time.UTC().Format(s.profile.DateLayout),
	}
	stage, _ := s.profile.Stage(d.Phase)
	if stage.Label != "" {
		c.Phase = stage.Label
		if stage.FrameCounter {
			c.Phase += fmt.Sprintf(" (Frame: %d/%d)", d.Frame+1, d.Total)
		}
	}

	earth := s.tables[model.Earth].Positions[d.Frame]
	moon := s.tables[model.Moon].Positions[d.Frame]
	for _, kind := range stage.Info {
		switch kind {
		case InfoReferenceFrame:
			c.Info = append(c.Info, "Establishing heliocentric reference frame")
		case InfoEarthDistance:
			c.Info = append(c.Info, fmt.Sprintf("Earth distance: %.3f AU", r3.Norm(earth)))
		case InfoMoonEarthDistance:
			c.Info = append(c.Info, fmt.Sprintf("Moon-Earth distance: %.6f AU", r3.Norm(r3.Sub(moon, earth))))
		case InfoFrameAngle:
			c.Info = append(c.Info, fmt.Sprintf("Frame: %d/%d | View Angle: %.1f°", d.Frame+1, d.Total, d.View.Azimuth))
		case InfoDistances:
			c.Info = append(c.Info, fmt.Sprintf("Earth dist: %.3f AU | Moon-Earth: %.6f AU", r3.Norm(earth), r3.Norm(r3.Sub(moon, earth))))
		}
	}
	return c
}
