package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes used as the "outcome" label on orrery_ephemeris_lookups_total.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// SimCollector bundles Prometheus metrics for one ephemeris fetch and render
// pipeline.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Lookups       *prometheus.CounterVec
	Fallbacks     prometheus.Counter
	FetchDuration prometheus.Histogram

	FramesRendered *prometheus.CounterVec
	RenderDuration prometheus.Histogram
	DatasetFrames  prometheus.Gauge
}

// NewSimCollector registers the pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	lookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_ephemeris_lookups_total",
		Help: "Ephemeris provider lookups, labeled by body and outcome.",
	}, []string{"body", "outcome"}), "orrery_ephemeris_lookups_total")
	if err != nil {
		return nil, err
	}

	fallbacks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orrery_ephemeris_fallbacks_total",
		Help: "Frames whose positions were carried forward after a failed lookup.",
	}), "orrery_ephemeris_fallbacks_total")
	if err != nil {
		return nil, err
	}

	fetchDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orrery_fetch_duration_seconds",
		Help:    "Duration of a complete ephemeris fetch pass.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}), "orrery_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	frames, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_frames_rendered_total",
		Help: "Rendered animation frames, labeled by phase.",
	}, []string{"phase"}), "orrery_frames_rendered_total")
	if err != nil {
		return nil, err
	}

	renderDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orrery_frame_render_duration_seconds",
		Help:    "Duration of rendering a single frame to PNG.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}), "orrery_frame_render_duration_seconds")
	if err != nil {
		return nil, err
	}

	datasetFrames, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_dataset_frames",
		Help: "Number of frames in the current run's position tables.",
	}), "orrery_dataset_frames")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:       gatherer,
		Lookups:        lookups,
		Fallbacks:      fallbacks,
		FetchDuration:  fetchDuration,
		FramesRendered: frames,
		RenderDuration: renderDuration,
		DatasetFrames:  datasetFrames,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveLookup counts one provider lookup for body.
func (c *SimCollector) ObserveLookup(body string, err error) {
	if c == nil || c.Lookups == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	c.Lookups.WithLabelValues(body, outcome).Inc()
}

// IncFallbacks counts one carried-forward frame.
func (c *SimCollector) IncFallbacks() {
	if c == nil || c.Fallbacks == nil {
		return
	}
	c.Fallbacks.Inc()
}

// ObserveFetch records the duration of a fetch pass.
func (c *SimCollector) ObserveFetch(d time.Duration) {
	if c == nil || c.FetchDuration == nil {
		return
	}
	c.FetchDuration.Observe(d.Seconds())
}

// ObserveFrame records one rendered frame in phase.
func (c *SimCollector) ObserveFrame(phase string, d time.Duration) {
	if c == nil {
		return
	}
	if c.FramesRendered != nil {
		c.FramesRendered.WithLabelValues(phase).Inc()
	}
	if c.RenderDuration != nil {
		c.RenderDuration.Observe(d.Seconds())
	}
}

// SetDatasetFrames updates the dataset size gauge.
func (c *SimCollector) SetDatasetFrames(n int) {
	if c == nil || c.DatasetFrames == nil {
		return
	}
	c.DatasetFrames.Set(float64(n))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
