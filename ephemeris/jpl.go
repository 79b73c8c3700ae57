package ephemeris

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mshafiee/jpleph"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
	"gonum.org/v1/gonum/spatial/r3"
)

// JPLProvider reads positions from a JPL DE binary ephemeris file.
type JPLProvider struct {
	mu    sync.Mutex
	ephem *jpleph.Ephemeris
	path  string
}

// OpenJPL opens the DE file at path.
func OpenJPL(path string) (*JPLProvider, error) {
	ephem, err := jpleph.NewEphemeris(path, false)
	if err != nil {
		return nil, fmt.Errorf("open ephemeris %q: %w", path, err)
	}
	return &JPLProvider{ephem: ephem, path: path}, nil
}

// Name implements Provider.
func (p *JPLProvider) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ephem == nil {
		return "jpl"
	}
	return "jpl:" + p.ephem.GetEphemName()
}

// Coverage returns the first and last Julian Ephemeris Date in the file.
func (p *JPLProvider) Coverage() (startJD, endJD float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ephem == nil {
		return 0, 0
	}
	return p.ephem.GetEphemerisDouble(jpleph.EphemerisStartJD), p.ephem.GetEphemerisDouble(jpleph.EphemerisEndJD)
}

// BarycentricPosition implements Provider.
func (p *JPLProvider) BarycentricPosition(ctx context.Context, body model.Body, t time.Time) (r3.Vec, error) {
	if err := ctx.Err(); err != nil {
		return r3.Vec{}, err
	}
	target, err := jplTarget(body)
	if err != nil {
		return r3.Vec{}, err
	}

	et := timectrl.TerrestrialJDE(t)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ephem == nil {
		return r3.Vec{}, fmt.Errorf("%w: %s at %s: ephemeris closed", ErrLookup, body, t.Format(time.RFC3339))
	}
	pos, _, err := p.ephem.CalculatePV(et, target, jpleph.CenterSolarSystemBarycenter, false)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("%w: %s at JDE %.5f: %v", ErrLookup, body, et, err)
	}
	return r3.Vec{X: pos.X, Y: pos.Y, Z: pos.Z}, nil
}

// Close releases the underlying file.
func (p *JPLProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ephem == nil {
		return nil
	}
	err := p.ephem.Close()
	p.ephem = nil
	return err
}

func jplTarget(body model.Body) (jpleph.Planet, error) {
	switch body {
	case model.Sun:
		return jpleph.Sun, nil
	case model.Earth:
		return jpleph.Earth, nil
	case model.Moon:
		return jpleph.Moon, nil
	default:
		return 0, fmt.Errorf("%w: unsupported body %s", ErrLookup, body)
	}
}
