package core

import (
	"fmt"
	"strings"

	"github.com/signalsfoundry/orrery/model"
)

// InfoKind selects an informational caption line.
type InfoKind int

const (
	InfoReferenceFrame InfoKind = iota + 1
	InfoEarthDistance
	InfoMoonEarthDistance
	InfoFrameAngle
	InfoDistances
)

// TrailSpec asks for a trail of up to Points previous positions of Body.
type TrailSpec struct {
	Body   model.Body
	Points int
}

// Stage describes how frames of one phase are drawn.
type Stage struct {
	// Label is the phase caption line. Empty omits the line.
	Label string
	// FrameCounter appends "(Frame: i/N)" to the label.
	FrameCounter bool
	Bodies       []model.Body
	Trails       []TrailSpec
	// TrailsAfter suppresses trails on frames <= TrailsAfter. Negative
	// values never suppress.
	TrailsAfter int
	Camera      CameraPreset
	Elevation   float64
	Info        []InfoKind
}

// Profile is a complete animation recipe: phase policy, per-phase stages,
// camera parameters and caption formats.
type Profile struct {
	Name   string
	Policy PhasePolicy
	Stages map[Phase]Stage

	// Follow camera parameters.
	FollowBody   model.Body
	FollowScale  float64
	FollowZRatio float64

	AzimuthOffset       float64
	RotationDegPerFrame float64

	// TitleFormat receives the start date (YYYY-MM-DD).
	TitleFormat string
	// DateLayout is a time layout applied to the frame's UTC time.
	DateLayout string
}

// Stage returns the stage for phase p.
func (p Profile) Stage(phase Phase) (Stage, bool) {
	s, ok := p.Stages[phase]
	return s, ok
}

// Trail lengths of the enhanced profile.
const (
	MaxTrailPoints   = 200
	CloseTrailPoints = 100
)

// EnhancedProfile is the default animation: a rotating wide view of the Sun,
// then Earth's orbit, then a close follow view of the Earth-Moon pair.
func EnhancedProfile() Profile {
	closeTrail := min(MaxTrailPoints, CloseTrailPoints)
	return Profile{
		Name:   "enhanced",
		Policy: EnhancedPolicy,
		Stages: map[Phase]Stage{
			PhaseSun: {
				Label:        "Phase 1: Sun Only",
				FrameCounter: true,
				Bodies:       []model.Body{model.Sun},
				TrailsAfter:  -1,
				Camera:       CameraWide,
				Elevation:    20,
				Info:         []InfoKind{InfoReferenceFrame},
			},
			PhaseSunEarth: {
				Label:        "Phase 2: Sun + Earth Orbit",
				FrameCounter: true,
				Bodies:       []model.Body{model.Sun, model.Earth},
				Trails:       []TrailSpec{{model.Earth, MaxTrailPoints}},
				TrailsAfter:  -1,
				Camera:       CameraWide,
				Elevation:    20,
				Info:         []InfoKind{InfoEarthDistance},
			},
			PhaseAll: {
				Label:        "Phase 3: Earth-Moon System",
				FrameCounter: true,
				Bodies:       []model.Body{model.Earth, model.Moon},
				Trails:       []TrailSpec{{model.Earth, closeTrail}, {model.Moon, closeTrail}},
				TrailsAfter:  -1,
				Camera:       CameraFollow,
				Elevation:    15,
				Info:         []InfoKind{InfoMoonEarthDistance},
			},
		},
		FollowBody:          model.Earth,
		FollowScale:         0.003,
		FollowZRatio:        0.2,
		RotationDegPerFrame: 0.5,
		TitleFormat:         "Enhanced Sun-Earth-Moon System (Start: %s)",
		DateLayout:          "Date: 2006-01-02 15:04:05 UTC",
	}
}

// ClassicProfile splits the run into thirds with a fixed view and a wider
// Earth-centred box in the last phase.
func ClassicProfile() Profile {
	return Profile{
		Name:   "classic",
		Policy: ClassicPolicy,
		Stages: map[Phase]Stage{
			PhaseSun: {
				Label:       "Phase 1: Sun Only",
				Bodies:      []model.Body{model.Sun},
				TrailsAfter: -1,
				Camera:      CameraWide,
				Elevation:   20,
			},
			PhaseSunEarth: {
				Label:       "Phase 2: Sun + Earth Orbit",
				Bodies:      []model.Body{model.Sun, model.Earth},
				Trails:      []TrailSpec{{model.Earth, 100}},
				TrailsAfter: -1,
				Camera:      CameraWide,
				Elevation:   20,
			},
			PhaseAll: {
				Label:       "Phase 3: Earth-Moon System (Zoomed)",
				Bodies:      []model.Body{model.Earth, model.Moon},
				Trails:      []TrailSpec{{model.Earth, 50}, {model.Moon, 100}},
				TrailsAfter: -1,
				Camera:      CameraFollow,
				Elevation:   20,
			},
		},
		FollowBody:    model.Earth,
		FollowScale:   0.1,
		FollowZRatio:  0.2,
		AzimuthOffset: 45,
		TitleFormat:   "Sun-Earth-Moon System Simulation (Start: %s)",
		DateLayout:    "Date: 2006-01-02 15:04:05",
	}
}

// AllVisibleProfile shows every body on every frame in the wide view, for
// checking positions without phases.
func AllVisibleProfile() Profile {
	return Profile{
		Name:   "all-visible",
		Policy: SinglePhasePolicy,
		Stages: map[Phase]Stage{
			PhaseAll: {
				Bodies:      model.Bodies(),
				Trails:      []TrailSpec{{model.Earth, 100}, {model.Moon, 100}},
				TrailsAfter: 10,
				Camera:      CameraWide,
				Elevation:   20,
				Info:        []InfoKind{InfoFrameAngle, InfoDistances},
			},
		},
		FollowBody:          model.Earth,
		RotationDegPerFrame: 1,
		TitleFormat:         "TEST MODE: All Bodies Visible (Start: %s)",
		DateLayout:          "Date: 2006-01-02 15:04:05 UTC",
	}
}

// ProfileNames lists the names accepted by ProfileByName.
func ProfileNames() []string { return []string{"enhanced", "classic", "all-visible"} }

// ProfileByName returns the named built-in profile.
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "enhanced":
		return EnhancedProfile(), nil
	case "classic":
		return ClassicProfile(), nil
	case "all-visible", "allvisible", "all":
		return AllVisibleProfile(), nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q (want one of %s)", name, strings.Join(ProfileNames(), ", "))
	}
}

// Validate checks that every phase the policy can produce has a stage.
func (p Profile) Validate(total int) error {
	b := p.Policy.Boundaries(total)
	for _, ph := range Phases() {
		lo, hi := b.Range(ph)
		if lo == hi {
			continue
		}
		if _, ok := p.Stages[ph]; !ok {
			return fmt.Errorf("profile %q: no stage for phase %s", p.Name, ph)
		}
	}
	if !p.FollowBody.Valid() {
		return fmt.Errorf("profile %q: invalid follow body", p.Name)
	}
	return nil
}
