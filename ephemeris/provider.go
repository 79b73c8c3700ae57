// Package ephemeris fetches body positions from an ephemeris provider and
// converts them into star-centred position tables.
package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrLookup is wrapped by every provider error for a single body/time query.
var ErrLookup = errors.New("ephemeris lookup failed")

// ErrOutOfCoverage is returned when a timeline reaches past the dates a
// provider can answer for.
var ErrOutOfCoverage = errors.New("timeline outside ephemeris coverage")

// Provider answers position queries for one body at one instant.
//
// Positions are solar-system barycentric, expressed in AU in an equatorial
// (ICRF-aligned) frame.
type Provider interface {
	Name() string
	BarycentricPosition(ctx context.Context, body model.Body, t time.Time) (r3.Vec, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, body model.Body, t time.Time) (r3.Vec, error)

// Name implements Provider.
func (f Func) Name() string { return "func" }

// BarycentricPosition implements Provider.
func (f Func) BarycentricPosition(ctx context.Context, body model.Body, t time.Time) (r3.Vec, error) {
	return f(ctx, body, t)
}

// CoverageProvider is a Provider limited to a span of Julian Ephemeris Dates.
type CoverageProvider interface {
	Provider
	Coverage() (startJD, endJD float64)
}

// CheckCoverage verifies that every frame of tl lies inside the coverage of p.
// Providers without a coverage limit always pass.
func CheckCoverage(p Provider, tl timectrl.Timeline) error {
	cp, ok := p.(CoverageProvider)
	if !ok || tl.Frames == 0 {
		return nil
	}
	startJD, endJD := cp.Coverage()
	first, last := timectrl.TerrestrialJDE(tl.Start), timectrl.TerrestrialJDE(tl.End())
	if first < startJD || last > endJD {
		return fmt.Errorf("%w: %s spans JDE %.1f to %.1f, file covers %.1f to %.1f",
			ErrOutOfCoverage, p.Name(), first, last, startJD, endJD)
	}
	return nil
}
