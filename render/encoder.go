package render

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/orrery/internal/logging"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Video defaults.
const (
	DefaultFPS         = 10
	DefaultBitrateKbps = 1800
	DefaultArtist      = "Sun-Earth-Moon Simulation"
)

// ErrNoFFmpeg is returned when the encoder binary cannot be found.
var ErrNoFFmpeg = errors.New("ffmpeg not found")

// Encoder assembles rendered frames into an H.264 MP4 with ffmpeg.
type Encoder struct {
	FFmpeg      string
	FPS         int
	BitrateKbps int
	Artist      string
	Runner      Runner
	Log         logging.Logger
}

// NewEncoder returns an encoder with the default settings.
func NewEncoder() *Encoder {
	return &Encoder{
		FFmpeg:      "ffmpeg",
		FPS:         DefaultFPS,
		BitrateKbps: DefaultBitrateKbps,
		Artist:      DefaultArtist,
		Runner:      ExecRunner{},
		Log:         logging.Noop(),
	}
}

// Args returns the ffmpeg arguments for encoding the first frames images of
// framesDir into output.
func (e *Encoder) Args(framesDir, output string, frames int) []string {
	return []string{
		"-y",
		"-framerate", strconv.Itoa(e.FPS),
		"-i", filepath.Join(framesDir, FramePattern),
		"-frames:v", strconv.Itoa(frames),
		"-c:v", "libx264",
		"-b:v", strconv.Itoa(e.BitrateKbps) + "k",
		"-pix_fmt", "yuv420p",
		"-metadata", "artist=" + e.Artist,
		output,
	}
}

// Encode runs ffmpeg over frame_00000.png to frame_<frames-1>.png in
// framesDir. Higher-numbered files are ignored.
func (e *Encoder) Encode(ctx context.Context, framesDir, output string, frames int) error {
	if e.FPS <= 0 || e.BitrateKbps <= 0 {
		return fmt.Errorf("encoder: fps %d and bitrate %d must be positive", e.FPS, e.BitrateKbps)
	}
	if frames <= 0 {
		return fmt.Errorf("encoder: no frames to encode in %s", framesDir)
	}
	runner := e.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	log := e.Log
	if log == nil {
		log = logging.Noop()
	}
	bin := e.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, ok := runner.(ExecRunner); ok {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrNoFFmpeg, bin, err)
		}
	}

	start := time.Now()
	log.Info(ctx, "encoding video",
		logging.String("output", output),
		logging.Int("frames", frames),
		logging.Int("fps", e.FPS),
		logging.Int("bitrate_kbps", e.BitrateKbps),
	)
	out, err := runner.Run(ctx, bin, e.Args(framesDir, output, frames)...)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}
	log.Info(ctx, "video saved",
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// VideoFilename returns the output name for a run starting at date. A custom
// name gets .mp4 appended when it lacks it.
func VideoFilename(date time.Time, custom string) string {
	custom = strings.TrimSpace(custom)
	if custom != "" {
		if !strings.HasSuffix(strings.ToLower(custom), ".mp4") {
			custom += ".mp4"
		}
		return custom
	}
	return "enhanced_sun_earth_moon_" + date.UTC().Format("2006_01_02") + ".mp4"
}
