package core

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// PhaseSpan is one row of a PhaseReport.
type PhaseSpan struct {
	Phase    Phase
	From, To int
	Frames   int
	Duration time.Duration
	Percent  float64
}

// Report summarises how a run's frames are split across phases.
type Report struct {
	Total      int
	Step       time.Duration
	Boundaries Boundaries
	Spans      []PhaseSpan
}

// PhaseReport computes the phase split of total frames spaced step apart.
func PhaseReport(policy PhasePolicy, total int, step time.Duration) Report {
	b := policy.Boundaries(total)
	r := Report{Total: b.Total, Step: step, Boundaries: b}
	for _, p := range Phases() {
		lo, hi := b.Range(p)
		span := PhaseSpan{Phase: p, From: lo, To: hi, Frames: hi - lo}
		span.Duration = time.Duration(span.Frames) * step
		if b.Total > 0 {
			span.Percent = float64(span.Frames) / float64(b.Total) * 100
		}
		r.Spans = append(r.Spans, span)
	}
	return r
}

// ViewingTime returns how long the phase lasts when played at fps.
func (s PhaseSpan) ViewingTime(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(s.Frames) / fps * float64(time.Second))
}

var spanTitles = map[Phase]string{
	PhaseSun:      "Phase 1 (Sun only)",
	PhaseSunEarth: "Phase 2 (Sun+Earth)",
	PhaseAll:      "Phase 3 (All bodies)",
}

// Write prints the report as a table, including viewing times at fps.
func (r Report) Write(w io.Writer, fps float64) error {
	fmt.Fprintf(w, "Total frames: %d\n", r.Total)
	fmt.Fprintf(w, "Total hours: %g\n\n", (time.Duration(r.Total) * r.Step).Hours())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PHASE\tFRAMES\tDAYS\tSHARE\tAT %g FPS\n", fps)
	var total time.Duration
	for _, s := range r.Spans {
		vt := s.ViewingTime(fps)
		total += vt
		fmt.Fprintf(tw, "%s\t%d to %d\t%.1f\t%.1f%%\t%.1fs\n",
			spanTitles[s.Phase], s.From, s.To, s.Duration.Hours()/24, s.Percent, vt.Seconds())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal animation: %.1f minutes\n", total.Minutes())
	return err
}
