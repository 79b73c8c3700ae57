package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/ephemeris"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/render"
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdin, os.Stdout))
}

func realMain(args []string, stdin io.Reader, stdout io.Writer) int {
	cfg, interactive, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if interactive {
		if err := promptConfig(cfg, stdin, stdout); err != nil {
			fmt.Fprintf(os.Stderr, "interactive input: %v\n", err)
			return 1
		}
	}

	base := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		base.Error(context.Background(), "invalid configuration", logging.Err(err))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, log := logging.WithRunLogger(ctx, base)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		return 1
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		return 1
	}
	if metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log); metricsSrv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	provider, closeProvider, err := openProvider(cfg)
	if err != nil {
		log.Error(ctx, "failed to open ephemeris", logging.String("provider", cfg.Provider), logging.Err(err))
		return 1
	}
	defer closeProvider()

	enc := render.NewEncoder()
	enc.FFmpeg = cfg.Video.FFmpeg
	enc.FPS = cfg.Video.FPS
	enc.BitrateKbps = cfg.Video.Bitrate
	enc.Artist = cfg.Video.Artist
	enc.Log = log

	p := &pipeline{
		cfg:      cfg,
		log:      log,
		metrics:  collector,
		provider: provider,
		renderer: render.NewFrameRenderer(),
		encoder:  enc,
		overview: render.NewOverview(),
		out:      stdout,
	}
	sum, err := p.run(ctx)
	if err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		return 1
	}

	fmt.Fprintf(stdout, "Rendered %d frames to %s\n", sum.Frames, sum.FramesDir)
	if sum.Fallbacks > 0 {
		fmt.Fprintf(stdout, "%d frames reused the previous positions after lookup failures\n", sum.Fallbacks)
	}
	if sum.Video != "" {
		fmt.Fprintf(stdout, "Video saved as %s\n", sum.Video)
	}
	if sum.HTML != "" {
		fmt.Fprintf(stdout, "Trajectory overview saved as %s\n", sum.HTML)
	}
	return 0
}

// parseArgs loads the config file and environment, then applies only the
// flags that were set on the command line.
func parseArgs(args []string) (*config.Config, bool, error) {
	fs := flag.NewFlagSet("orrery", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a JSON, YAML or TOML config file")
	date := fs.String("date", "", "Start date (YYYY-MM-DD, UTC)")
	days := fs.Float64("days", 0, "Simulation length in days")
	step := fs.Float64("step-hours", 0, "Time step in hours")
	provider := fs.String("provider", "", "Ephemeris provider: meeus or jpl")
	ephem := fs.String("ephemeris", "", "Path to a JPL DE binary ephemeris (provider jpl)")
	vsop := fs.String("vsop87", "", "Directory holding VSOP87B files (provider meeus)")
	profile := fs.String("profile", "", "Visualisation profile: "+strings.Join(core.ProfileNames(), ", "))
	out := fs.String("out", "", "Output directory")
	video := fs.Bool("video", false, "Encode the frames into an MP4 with ffmpeg")
	videoName := fs.String("video-name", "", "MP4 file name")
	html := fs.String("html", "", "Write an HTML trajectory overview to this path")
	interactive := fs.Bool("interactive", false, "Prompt for the run parameters")
	realtime := fs.Bool("realtime", false, "Pace frames at the configured frame interval")
	metricsAddr := fs.String("metrics-addr", "", "HTTP address for Prometheus /metrics (disabled when empty)")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, false, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "date":
			cfg.Date = *date
		case "days":
			cfg.Days = *days
		case "step-hours":
			cfg.StepHours = *step
		case "provider":
			cfg.Provider = strings.ToLower(*provider)
		case "ephemeris":
			cfg.Ephemeris = *ephem
		case "vsop87":
			cfg.VSOP87Dir = *vsop
		case "profile":
			cfg.Profile = *profile
		case "out":
			cfg.OutDir = *out
		case "video":
			cfg.Video.Enabled = *video
		case "video-name":
			cfg.Video.Name = *videoName
		case "html":
			cfg.HTML = *html
		case "realtime":
			cfg.Realtime = *realtime
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		}
	})
	return cfg, *interactive, nil
}

func openProvider(cfg *config.Config) (ephemeris.Provider, func(), error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderJPL:
		p, err := ephemeris.OpenJPL(cfg.Ephemeris)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	case config.ProviderMeeus, "":
		p, err := ephemeris.NewMeeusProvider(cfg.VSOP87Dir)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
