package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultProgressEvery is the frame interval between progress log lines.
const DefaultProgressEvery = 100

// Result is the output of one fetch pass.
type Result struct {
	Timeline timectrl.Timeline
	Tables   map[model.Body]*model.PositionTable

	// Fallbacks lists the frames whose entries were carried forward from the
	// previous frame after a failed lookup.
	Fallbacks []int
}

// Table returns the table for body, or nil.
func (r *Result) Table(body model.Body) *model.PositionTable {
	if r == nil {
		return nil
	}
	return r.Tables[body]
}

// Frames returns the number of frames actually fetched.
func (r *Result) Frames() int {
	if r == nil {
		return 0
	}
	return r.Tables[model.Sun].Len()
}

// Fetcher turns a Timeline into star-centred position tables for the Sun,
// Earth and Moon.
type Fetcher struct {
	Provider      Provider
	Log           logging.Logger
	Metrics       *observability.SimCollector
	ProgressEvery int
}

// NewFetcher returns a fetcher backed by p. A nil log discards output and a
// nil metrics collector disables instrumentation.
func NewFetcher(p Provider, log logging.Logger, metrics *observability.SimCollector) *Fetcher {
	if log == nil {
		log = logging.Noop()
	}
	return &Fetcher{
		Provider:      p,
		Log:           log,
		Metrics:       metrics,
		ProgressEvery: DefaultProgressEvery,
	}
}

// Fetch queries the provider for every timestamp of tl and returns one table
// per body, each entry being the body's position minus the Sun's.
//
// A timeline outside the provider's coverage is rejected before any lookup.
// Lookup failures never abort the pass: the failed frame repeats the previous
// frame for every body (the zero vector on frame 0). Only context
// cancellation stops early, in which case the frames fetched so far are
// returned together with ctx.Err().
func (f *Fetcher) Fetch(ctx context.Context, tl timectrl.Timeline) (*Result, error) {
	if f.Provider == nil {
		return nil, errors.New("ephemeris: fetcher has no provider")
	}
	if err := CheckCoverage(f.Provider, tl); err != nil {
		return nil, err
	}
	log := f.Log
	if log == nil {
		log = logging.Noop()
	}
	every := f.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	ctx, span := observability.Tracer().Start(ctx, "ephemeris.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", f.Provider.Name()),
		attribute.Int("frames", tl.Frames),
		attribute.Float64("step_hours", tl.StepHours()),
	)

	start := time.Now()
	res := &Result{
		Timeline: tl,
		Tables:   make(map[model.Body]*model.PositionTable, len(model.Bodies())),
	}
	for _, b := range model.Bodies() {
		res.Tables[b] = model.NewPositionTable(b, tl.Frames)
	}

	log.Info(ctx, "fetching ephemeris",
		logging.String("provider", f.Provider.Name()),
		logging.Int("frames", tl.Frames),
		logging.String("start", tl.Start.Format(time.RFC3339)),
		logging.Float("step_hours", tl.StepHours()),
	)

	for i := 0; i < tl.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return abort(ctx, log, res, i, err, span), err
		}
		if i%every == 0 {
			log.Info(ctx, "processing frame", logging.Int("frame", i), logging.Int("frames", tl.Frames))
		}

		t := tl.At(i)
		positions, err := f.lookupFrame(ctx, t)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return abort(ctx, log, res, i, ctxErr, span), ctxErr
			}
			res.Fallbacks = append(res.Fallbacks, i)
			f.Metrics.IncFallbacks()
			log.Warn(ctx, "ephemeris lookup failed; carrying previous frame forward",
				logging.Int("frame", i),
				logging.String("time", t.Format(time.RFC3339)),
				logging.Err(err),
			)
			if i > 0 {
				for _, tbl := range res.Tables {
					tbl.Positions[i] = tbl.Positions[i-1]
				}
			}
			continue
		}
		for b, p := range positions {
			res.Tables[b].Positions[i] = p
		}
	}

	elapsed := time.Since(start)
	f.Metrics.ObserveFetch(elapsed)
	span.SetAttributes(attribute.Int("fallbacks", len(res.Fallbacks)))
	log.Info(ctx, "ephemeris fetch complete",
		logging.Int("frames", tl.Frames),
		logging.Int("fallbacks", len(res.Fallbacks)),
		logging.Duration("elapsed", elapsed),
	)
	return res, nil
}

// lookupFrame queries every body at t and returns star-centred positions. The
// first failing lookup ends the frame.
func (f *Fetcher) lookupFrame(ctx context.Context, t time.Time) (map[model.Body]r3.Vec, error) {
	star, err := f.lookup(ctx, model.Sun, t)
	if err != nil {
		return nil, err
	}
	out := map[model.Body]r3.Vec{model.Sun: {}}
	for _, b := range []model.Body{model.Earth, model.Moon} {
		p, err := f.lookup(ctx, b, t)
		if err != nil {
			return nil, err
		}
		out[b] = r3.Sub(p, star)
	}
	return out, nil
}

func (f *Fetcher) lookup(ctx context.Context, body model.Body, t time.Time) (r3.Vec, error) {
	p, err := f.Provider.BarycentricPosition(ctx, body, t)
	f.Metrics.ObserveLookup(body.String(), err)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("%s: %w", body, err)
	}
	return p, nil
}

// abort truncates the tables to the frames already fetched.
func abort(ctx context.Context, log logging.Logger, res *Result, done int, err error, span trace.Span) *Result {
	for _, t := range res.Tables {
		t.Positions = t.Positions[:done]
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "fetch cancelled")
	log.Warn(ctx, "ephemeris fetch cancelled", logging.Int("frames_fetched", done), logging.Err(err))
	return res
}
