package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r3"
)

// KilometersPerAU is the IAU 2012 astronomical unit.
const KilometersPerAU = 149597870.7

// J2000 mean obliquity of the ecliptic.
var obliquityJ2000 = unit.AngleFromDeg(23.4392911)

// MeeusProvider computes positions analytically from the algorithms in Meeus'
// Astronomical Algorithms. The Sun stands in for the barycentre, so its
// position is always the zero vector.
type MeeusProvider struct {
	earth *planetposition.V87Planet
}

// NewMeeusProvider returns a provider using the low precision solar theory
// for Earth. When vsop87Dir is not empty, Earth is read from the VSOP87B file
// in that directory instead.
func NewMeeusProvider(vsop87Dir string) (*MeeusProvider, error) {
	p := &MeeusProvider{}
	if vsop87Dir == "" {
		return p, nil
	}
	earth, err := planetposition.LoadPlanetPath(planetposition.Earth, vsop87Dir)
	if err != nil {
		return nil, fmt.Errorf("load VSOP87 Earth from %q: %w", vsop87Dir, err)
	}
	p.earth = earth
	return p, nil
}

// Name implements Provider.
func (p *MeeusProvider) Name() string {
	if p.earth != nil {
		return "meeus:vsop87"
	}
	return "meeus"
}

// BarycentricPosition implements Provider.
func (p *MeeusProvider) BarycentricPosition(ctx context.Context, body model.Body, t time.Time) (r3.Vec, error) {
	if err := ctx.Err(); err != nil {
		return r3.Vec{}, err
	}
	jde := timectrl.TerrestrialJDE(t)
	switch body {
	case model.Sun:
		return r3.Vec{}, nil
	case model.Earth:
		return p.earthHeliocentric(jde), nil
	case model.Moon:
		λ, β, Δ := moonposition.Position(jde)
		geo := eclipticToEquatorial(λ, β, Δ/KilometersPerAU)
		return r3.Add(p.earthHeliocentric(jde), geo), nil
	default:
		return r3.Vec{}, fmt.Errorf("%w: unsupported body %s", ErrLookup, body)
	}
}

func (p *MeeusProvider) earthHeliocentric(jde float64) r3.Vec {
	if p.earth != nil {
		l, b, r := p.earth.Position2000(jde)
		return eclipticToEquatorial(l, b, r)
	}
	// Geocentric Sun, reversed.
	T := base.J2000Century(jde)
	s, _ := solar.True(T)
	r := solar.Radius(T)
	return r3.Scale(-1, eclipticToEquatorial(s, 0, r))
}

// eclipticToEquatorial converts spherical ecliptic coordinates at distance r
// into rectangular equatorial coordinates.
func eclipticToEquatorial(lon, lat unit.Angle, r float64) r3.Vec {
	sλ, cλ := math.Sincos(lon.Rad())
	sβ, cβ := math.Sincos(lat.Rad())
	sε, cε := math.Sincos(obliquityJ2000.Rad())

	x := r * cβ * cλ
	y := r * cβ * sλ
	z := r * sβ
	return r3.Vec{
		X: x,
		Y: y*cε - z*sε,
		Z: y*sε + z*cε,
	}
}
