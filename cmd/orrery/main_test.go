package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/signalsfoundry/orrery/ephemeris"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/render"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/vg"
)

// circularOrbits places Earth on a unit circle around a drifting Sun and the
// Moon 0.0025 AU from Earth.
func circularOrbits(_ context.Context, body model.Body, t time.Time) (r3.Vec, error) {
	days := t.Sub(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).Hours() / 24
	sun := r3.Vec{X: 0.001 * days}
	a := 2 * math.Pi * days / 365.25
	earth := r3.Add(sun, r3.Vec{X: math.Cos(a), Y: math.Sin(a)})
	switch body {
	case model.Sun:
		return sun, nil
	case model.Earth:
		return earth, nil
	default:
		m := 2 * math.Pi * days / 27.3
		return r3.Add(earth, r3.Vec{X: 0.0025 * math.Cos(m), Y: 0.0025 * math.Sin(m)}), nil
	}
}

type recordingRunner struct {
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return []byte("encoder output"), r.err
}

func testPipeline(t *testing.T, cfg *config.Config, provider ephemeris.Provider, runner render.Runner) (*pipeline, *observability.SimCollector, *bytes.Buffer) {
	t.Helper()
	collector, err := observability.NewSimCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	renderer := render.NewFrameRenderer()
	renderer.Width, renderer.Height = 2*vg.Inch, 1.5*vg.Inch
	enc := render.NewEncoder()
	enc.Runner = runner

	var out bytes.Buffer
	return &pipeline{
		cfg:      cfg,
		log:      logging.Noop(),
		metrics:  collector,
		provider: provider,
		renderer: renderer,
		encoder:  enc,
		overview: render.NewOverview(),
		out:      &out,
	}, collector, &out
}

func TestPipelineRendersEveryPhase(t *testing.T) {
	cfg := config.Default()
	cfg.Days = 0.25
	cfg.Profile = "classic"
	cfg.OutDir = t.TempDir()
	cfg.Video.Enabled = true
	cfg.HTML = filepath.Join(cfg.OutDir, "overview.html")

	runner := &recordingRunner{}
	p, collector, out := testPipeline(t, cfg, ephemeris.Func(circularOrbits), runner)

	sum, err := p.run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Frames != 6 || sum.Fallbacks != 0 {
		t.Fatalf("summary = %+v, want 6 frames and no fallbacks", sum)
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(sum.FramesDir, render.FrameFilename(i))); err != nil {
			t.Fatalf("frame %d missing: %v", i, err)
		}
	}
	for phase, want := range map[string]float64{"sun": 2, "sun-earth": 2, "earth-moon": 2} {
		if got := testutil.ToFloat64(collector.FramesRendered.WithLabelValues(phase)); got != want {
			t.Fatalf("frames rendered for %s = %v, want %v", phase, got, want)
		}
	}
	if got := testutil.ToFloat64(collector.DatasetFrames); got != 6 {
		t.Fatalf("dataset frames = %v, want 6", got)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("encoder calls = %d, want 1", len(runner.calls))
	}
	wantVideo := filepath.Join(cfg.OutDir, "enhanced_sun_earth_moon_2025_08_14.mp4")
	if call := runner.calls[0]; call[len(call)-1] != wantVideo || sum.Video != wantVideo {
		t.Fatalf("video output = %q (summary %q), want %q", call[len(call)-1], sum.Video, wantVideo)
	}

	html, err := os.ReadFile(cfg.HTML)
	if err != nil || !strings.Contains(string(html), "Heliocentric X-Y") {
		t.Fatalf("overview not written: %v", err)
	}
	if !strings.Contains(out.String(), "Total frames") {
		t.Fatalf("phase report missing from output:\n%s", out.String())
	}
}

func TestPipelineRerunReplacesEarlierFrames(t *testing.T) {
	cfg := config.Default()
	cfg.OutDir = t.TempDir()
	cfg.Video.Enabled = true
	runner := &recordingRunner{}

	for _, days := range []float64{0.5, 0.25} {
		cfg.Days = days
		p, _, _ := testPipeline(t, cfg, ephemeris.Func(circularOrbits), runner)
		if _, err := p.run(context.Background()); err != nil {
			t.Fatalf("run(%v days): %v", days, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(cfg.OutDir, "frames"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("frames dir holds %d files after the shorter run, want 6", len(entries))
	}
	if _, err := os.Stat(filepath.Join(cfg.OutDir, "frames", render.FrameFilename(6))); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("frame 6 from the first run still present: %v", err)
	}

	last := strings.Join(runner.calls[len(runner.calls)-1], " ")
	if !strings.Contains(last, "-frames:v 6 ") {
		t.Fatalf("second encode = %q, want -frames:v 6", last)
	}
}

func TestPipelineCarriesForwardFailedLookups(t *testing.T) {
	cfg := config.Default()
	cfg.Days = 0.25
	cfg.OutDir = t.TempDir()

	failing := ephemeris.Func(func(ctx context.Context, body model.Body, ts time.Time) (r3.Vec, error) {
		if ts.Hour() == 3 && body == model.Moon {
			return r3.Vec{}, ephemeris.ErrLookup
		}
		return circularOrbits(ctx, body, ts)
	})
	p, collector, _ := testPipeline(t, cfg, failing, &recordingRunner{})

	sum, err := p.run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Frames != 6 || sum.Fallbacks != 1 {
		t.Fatalf("summary = %+v, want 6 frames and 1 fallback", sum)
	}
	if got := testutil.ToFloat64(collector.Fallbacks); got != 1 {
		t.Fatalf("fallbacks metric = %v, want 1", got)
	}
}

func TestPipelineEncoderFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Days = 0.125
	cfg.OutDir = t.TempDir()
	cfg.Video.Enabled = true

	p, _, _ := testPipeline(t, cfg, ephemeris.Func(circularOrbits), &recordingRunner{err: errors.New("exit status 1")})
	if _, err := p.run(context.Background()); err == nil || !strings.Contains(err.Error(), "encoder output") {
		t.Fatalf("run err = %v, want encoder failure with output", err)
	}
}

func TestPipelineCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.OutDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _, _ := testPipeline(t, cfg, ephemeris.Func(circularOrbits), &recordingRunner{})
	if _, err := p.run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("run err = %v, want context.Canceled", err)
	}
}

func TestPipelineRenderFailureStopsRun(t *testing.T) {
	cfg := config.Default()
	cfg.Days = 0.125
	cfg.OutDir = t.TempDir()

	p, _, _ := testPipeline(t, cfg, ephemeris.Func(circularOrbits), &recordingRunner{})
	// Occupy the frames path with a file so MkdirAll fails.
	if err := os.WriteFile(filepath.Join(cfg.OutDir, "frames"), nil, 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	if _, err := p.run(context.Background()); err == nil {
		t.Fatalf("expected error when frames dir cannot be created")
	}
}

func TestParseArgsOverridesOnlySetFlags(t *testing.T) {
	t.Setenv("ORRERY_DAYS", "12")
	cfg, interactive, err := parseArgs([]string{"-date", "2024-03-01", "-step-hours", "2", "-provider", "JPL", "-video", "-interactive"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.Date != "2024-03-01" || cfg.StepHours != 2 || cfg.Provider != config.ProviderJPL || !cfg.Video.Enabled {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Days != 12 {
		t.Fatalf("Days = %v, want env value 12 kept", cfg.Days)
	}
	if !interactive {
		t.Fatalf("interactive flag not reported")
	}
	if _, _, err := parseArgs([]string{"-no-such-flag"}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}

func TestOpenProvider(t *testing.T) {
	cfg := config.Default()
	p, closeFn, err := openProvider(cfg)
	if err != nil {
		t.Fatalf("openProvider(meeus): %v", err)
	}
	defer closeFn()
	if p.Name() != "meeus" {
		t.Fatalf("provider name = %q, want meeus", p.Name())
	}

	cfg.Provider = config.ProviderJPL
	cfg.Ephemeris = filepath.Join(t.TempDir(), "missing.bin")
	if _, _, err := openProvider(cfg); err == nil {
		t.Fatalf("expected error for missing JPL ephemeris")
	}
}

func TestRealMainRejectsInvalidConfig(t *testing.T) {
	var out bytes.Buffer
	if code := realMain([]string{"-days", "-1"}, strings.NewReader(""), &out); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
