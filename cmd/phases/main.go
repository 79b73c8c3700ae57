// Command phases prints how a run's frames split across the three
// visualisation phases and how long each phase plays.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/timectrl"
)

type sweepCase struct {
	days, stepHours float64
}

// defaultSweep is reported when no duration is given.
var defaultSweep = []sweepCase{
	{30, 1},
	{40, 1},
	{10, 1},
	{7, 0.5},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("phases", flag.ContinueOnError)
	fs.SetOutput(out)
	days := fs.String("days", "", "Simulation length in days (default: sweep of common durations)")
	step := fs.String("step-hours", "1", "Time step in hours")
	profile := fs.String("profile", "enhanced", "Profile whose phase policy is reported: "+strings.Join(core.ProfileNames(), ", "))
	fps := fs.Float64("fps", 20, "Playback rate used for viewing times")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fps <= 0 {
		return fmt.Errorf("fps must be positive, got %v", *fps)
	}

	p, err := core.ProfileByName(*profile)
	if err != nil {
		return err
	}

	cases := defaultSweep
	if *days != "" {
		d, err := config.ParseDuration(*days)
		if err != nil {
			return err
		}
		h, err := config.ParseStep(*step)
		if err != nil {
			return err
		}
		cases = []sweepCase{{d, h}}
	}

	for i, c := range cases {
		if i > 0 {
			fmt.Fprintln(out, strings.Repeat("-", 60))
			fmt.Fprintln(out)
		}
		tl, err := timectrl.NewTimeline(time.Time{}, c.days, c.stepHours)
		if err != nil {
			return fmt.Errorf("%g days at %gh: %w", c.days, c.stepHours, err)
		}
		fmt.Fprintf(out, "Phase timing for %g days with %gh steps (%s profile)\n", c.days, c.stepHours, p.Name)
		if err := core.PhaseReport(p.Policy, tl.Frames, tl.Step).Write(out, *fps); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}
