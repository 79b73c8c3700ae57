package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/ephemeris"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/render"
	"github.com/signalsfoundry/orrery/timectrl"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// renderProgressEvery controls how often frame progress is logged.
const renderProgressEvery = 50

// pipeline runs one fetch, schedule, render and encode pass.
type pipeline struct {
	cfg      *config.Config
	log      logging.Logger
	metrics  *observability.SimCollector
	provider ephemeris.Provider
	renderer *render.FrameRenderer
	encoder  *render.Encoder
	overview *render.Overview
	out      io.Writer
}

// summary describes what a run produced.
type summary struct {
	Frames    int
	Fallbacks int
	FramesDir string
	Video     string
	HTML      string
}

func (p *pipeline) run(ctx context.Context) (*summary, error) {
	tl, err := p.cfg.Timeline()
	if err != nil {
		return nil, err
	}
	profile, err := core.ProfileByName(p.cfg.Profile)
	if err != nil {
		return nil, err
	}

	p.log.Info(ctx, "starting simulation",
		logging.String("start", tl.Start.Format(time.RFC3339)),
		logging.Float("days", p.cfg.Days),
		logging.Float("step_hours", tl.StepHours()),
		logging.Int("frames", tl.Frames),
		logging.String("provider", p.provider.Name()),
		logging.String("profile", profile.Name),
	)
	if p.out != nil {
		fps := float64(p.cfg.Video.FPS)
		if fps <= 0 {
			fps = render.DefaultFPS
		}
		if err := core.PhaseReport(profile.Policy, tl.Frames, tl.Step).Write(p.out, fps); err != nil {
			return nil, fmt.Errorf("write phase report: %w", err)
		}
	}

	res, err := ephemeris.NewFetcher(p.provider, p.log, p.metrics).Fetch(ctx, tl)
	if err != nil {
		return nil, fmt.Errorf("fetch ephemeris: %w", err)
	}

	store := kb.NewKnowledgeBase()
	unsubscribe := store.Subscribe(p.observeStore(ctx))
	defer unsubscribe()
	if err := store.SetTimeline(tl); err != nil {
		return nil, err
	}
	for _, b := range model.Bodies() {
		if err := store.PutTable(res.Table(b)); err != nil {
			return nil, fmt.Errorf("store %s table: %w", b, err)
		}
	}
	store.Seal()

	sched, err := core.NewScheduler(profile, tl, store)
	if err != nil {
		return nil, err
	}
	p.log.Info(ctx, "phase boundaries", logging.String("boundaries", sched.Boundaries().String()))

	framesDir := filepath.Join(p.cfg.OutDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}
	stale, err := render.ClearFrames(framesDir)
	if err != nil {
		return nil, err
	}
	if stale > 0 {
		p.log.Info(ctx, "removed frames from a previous run", logging.String("dir", framesDir), logging.Int("frames", stale))
	}
	rendered, err := p.renderFrames(ctx, sched, tl, framesDir)
	if err != nil {
		return nil, err
	}

	sum := &summary{Frames: rendered, Fallbacks: len(res.Fallbacks), FramesDir: framesDir}

	if p.cfg.Video.Enabled {
		name := render.VideoFilename(tl.Start, p.cfg.Video.Name)
		if !filepath.IsAbs(name) {
			name = filepath.Join(p.cfg.OutDir, name)
		}
		if err := p.encoder.Encode(ctx, framesDir, name, rendered); err != nil {
			return sum, fmt.Errorf("encode video: %w", err)
		}
		sum.Video = name
	}

	if p.cfg.HTML != "" {
		if err := p.overview.Save(p.cfg.HTML, store, tl, sched.Boundaries()); err != nil {
			return sum, err
		}
		sum.HTML = p.cfg.HTML
	}

	p.log.Info(ctx, "simulation complete",
		logging.Int("frames", sum.Frames),
		logging.Int("fallbacks", sum.Fallbacks),
		logging.String("frames_dir", sum.FramesDir),
		logging.String("video", sum.Video),
		logging.String("html", sum.HTML),
	)
	return sum, nil
}

// observeStore returns the dataset store listener: it logs stored tables and
// publishes the sealed frame count.
func (p *pipeline) observeStore(ctx context.Context) func(kb.Event) {
	return func(e kb.Event) {
		switch e.Type {
		case kb.EventTableStored:
			p.log.Debug(ctx, "position table stored", logging.String("body", e.Body.String()), logging.Int("frames", e.Frames))
		case kb.EventSealed:
			p.metrics.SetDatasetFrames(e.Frames)
		}
	}
}

func (p *pipeline) renderFrames(ctx context.Context, sched *core.Scheduler, tl timectrl.Timeline, dir string) (int, error) {
	ctx, span := observability.Tracer().Start(ctx, "render.Frames")
	defer span.End()
	span.SetAttributes(
		attribute.Int("frames", tl.Frames),
		attribute.String("profile", sched.Profile().Name),
	)

	mode := timectrl.Accelerated
	if p.cfg.Realtime {
		mode = timectrl.RealTime
	}
	clock := timectrl.NewFrameClock(tl, p.cfg.FrameInterval, mode)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	rendered := 0
	clock.AddListener(func(frame int, _ time.Time) {
		begin := time.Now()
		d, err := sched.Describe(frame)
		if err != nil {
			cancel(err)
			return
		}
		if _, err := p.renderer.SaveFrame(dir, d, sched.Caption(d)); err != nil {
			cancel(err)
			return
		}
		rendered++
		p.metrics.ObserveFrame(d.Phase.String(), time.Since(begin))
		if frame%renderProgressEvery == 0 || frame == tl.Frames-1 {
			p.log.Info(ctx, "rendered frame",
				logging.Int("frame", frame+1),
				logging.Int("total", tl.Frames),
				logging.String("phase", d.Phase.String()),
			)
		}
	})

	_, err := clock.Run(ctx)
	if cause := context.Cause(ctx); cause != nil {
		// A listener failure on the last frame leaves Run error-free.
		err = cause
	}
	if err != nil {
		cause := err
		span.RecordError(cause)
		span.SetStatus(codes.Error, cause.Error())
		if errors.Is(cause, context.Canceled) {
			p.log.Warn(ctx, "rendering interrupted", logging.Int("frames", rendered), logging.Int("total", tl.Frames))
		}
		return rendered, fmt.Errorf("rendered %d of %d frames: %w", rendered, tl.Frames, cause)
	}
	return rendered, nil
}
