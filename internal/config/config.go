package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/timectrl"
	"github.com/spf13/viper"
)

// Input validation errors. Each is wrapped with the offending value.
var (
	ErrInvalidDate     = errors.New("invalid start date")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidStep     = errors.New("invalid time step")
)

// EnvPrefix prefixes every environment override, e.g. ORRERY_DAYS.
const EnvPrefix = "ORRERY"

// Provider names.
const (
	ProviderMeeus = "meeus"
	ProviderJPL   = "jpl"
)

// VideoConfig holds MP4 encoding settings.
type VideoConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"`
	FPS     int    `mapstructure:"fps"`
	Bitrate int    `mapstructure:"bitrate"` // kbit/s
	Artist  string `mapstructure:"artist"`
	FFmpeg  string `mapstructure:"ffmpeg"`
}

// Config is the complete run configuration.
type Config struct {
	Date      string  `mapstructure:"date"`
	Days      float64 `mapstructure:"days"`
	StepHours float64 `mapstructure:"step_hours"`

	Provider  string `mapstructure:"provider"`
	Ephemeris string `mapstructure:"ephemeris"`
	VSOP87Dir string `mapstructure:"vsop87"`

	Profile string `mapstructure:"profile"`
	OutDir  string `mapstructure:"out"`
	HTML    string `mapstructure:"html"`

	Video VideoConfig `mapstructure:"video"`

	Realtime      bool          `mapstructure:"realtime"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`

	MetricsAddr string                      `mapstructure:"metrics_addr"`
	Tracing     observability.TracingConfig `mapstructure:"tracing"`
	LogLevel    string                      `mapstructure:"log_level"`
	LogFormat   string                      `mapstructure:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("date", "2025-08-14")
	v.SetDefault("days", 30.0)
	v.SetDefault("step_hours", 1.0)

	v.SetDefault("provider", ProviderMeeus)
	v.SetDefault("ephemeris", "")
	v.SetDefault("vsop87", "")

	v.SetDefault("profile", "enhanced")
	v.SetDefault("out", "./orrery-out")
	v.SetDefault("html", "")

	v.SetDefault("video.enabled", false)
	v.SetDefault("video.name", "")
	v.SetDefault("video.fps", 10)
	v.SetDefault("video.bitrate", 1800)
	v.SetDefault("video.artist", "Sun-Earth-Moon Simulation")
	v.SetDefault("video.ffmpeg", "ffmpeg")

	v.SetDefault("realtime", false)
	v.SetDefault("frame_interval", 50*time.Millisecond)

	v.SetDefault("metrics_addr", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "orrery")
	v.SetDefault("tracing.exporter", observability.ExporterStdout)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads defaults, then the optional config file at path (JSON, YAML or
// TOML by extension), then ORRERY_* environment overrides. Nested keys map to
// underscores, e.g. ORRERY_TRACING_SAMPLE_RATIO.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with only defaults applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := ParseDate(c.Date); err != nil {
		return err
	}
	if err := checkDuration(c.Days); err != nil {
		return err
	}
	if err := checkStep(c.StepHours); err != nil {
		return err
	}
	if _, err := c.Timeline(); err != nil {
		return err
	}

	switch strings.ToLower(c.Provider) {
	case ProviderMeeus:
	case ProviderJPL:
		if c.Ephemeris == "" {
			return errors.New("provider jpl requires an ephemeris file")
		}
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderMeeus, ProviderJPL)
	}

	if _, err := core.ProfileByName(c.Profile); err != nil {
		return err
	}
	if c.OutDir == "" {
		return errors.New("output directory must not be empty")
	}
	if c.Video.Enabled {
		if c.Video.FPS <= 0 {
			return fmt.Errorf("video fps must be positive, got %d", c.Video.FPS)
		}
		if c.Video.Bitrate <= 0 {
			return fmt.Errorf("video bitrate must be positive, got %d", c.Video.Bitrate)
		}
	}
	if c.Realtime && c.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive in realtime mode, got %s", c.FrameInterval)
	}
	return c.Tracing.Validate()
}

// Timeline builds the run's frame timeline.
func (c *Config) Timeline() (timectrl.Timeline, error) {
	start, err := ParseDate(c.Date)
	if err != nil {
		return timectrl.Timeline{}, err
	}
	return NewTimeline(start, c.Days, c.StepHours)
}

// NewTimeline builds a timeline, wrapping failures in the sentinel of the
// field at fault. A duration shorter than one step is ErrInvalidDuration.
func NewTimeline(start time.Time, days, stepHours float64) (timectrl.Timeline, error) {
	if err := checkDuration(days); err != nil {
		return timectrl.Timeline{}, err
	}
	if err := checkStep(stepHours); err != nil {
		return timectrl.Timeline{}, err
	}
	tl, err := timectrl.NewTimeline(start, days, stepHours)
	if err != nil {
		return timectrl.Timeline{}, fmt.Errorf("%w: %w", ErrInvalidDuration, err)
	}
	return tl, nil
}

// DateLayout is the only accepted start date format.
const DateLayout = "2006-01-02"

// ParseDate parses a UTC start date such as 2025-08-14.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (use YYYY-MM-DD)", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseDuration parses a positive duration in days.
func ParseDuration(s string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidDuration, s)
	}
	return d, checkDuration(d)
}

// ParseStep parses a positive time step in hours.
func ParseStep(s string) (float64, error) {
	h, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidStep, s)
	}
	return h, checkStep(h)
}

func checkDuration(days float64) error {
	if !(days > 0) || math.IsInf(days, 0) {
		return fmt.Errorf("%w: %v days (must be positive)", ErrInvalidDuration, days)
	}
	return nil
}

func checkStep(hours float64) error {
	if !(hours > 0) || math.IsInf(hours, 0) {
		return fmt.Errorf("%w: %v hours (must be positive)", ErrInvalidStep, hours)
	}
	return nil
}
