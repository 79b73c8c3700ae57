package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/orrery/internal/config"
)

// errInputClosed is returned when stdin ends before the prompts finish.
var errInputClosed = errors.New("input closed")

// promptConfig asks for the run parameters on in, showing the current values
// of cfg as defaults. Invalid answers are reported and asked again.
func promptConfig(cfg *config.Config, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	ask := func(question string) (string, error) {
		fmt.Fprint(out, question)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", errInputClosed
		}
		return strings.TrimSpace(sc.Text()), nil
	}

	fmt.Fprintln(out, "Sun-Earth-Moon System Simulation")
	fmt.Fprintln(out, strings.Repeat("=", 40))

	for {
		answer, err := ask(fmt.Sprintf("Enter start date (YYYY-MM-DD) [%s]: ", cfg.Date))
		if err != nil {
			return err
		}
		if answer == "" {
			answer = cfg.Date
		}
		if _, err := config.ParseDate(answer); err != nil {
			fmt.Fprintf(out, "Invalid date: %v\n", err)
			continue
		}
		cfg.Date = answer
		break
	}

	for {
		answer, err := ask(fmt.Sprintf("Enter duration in days [%s]: ", formatNumber(cfg.Days)))
		if err != nil {
			return err
		}
		if answer == "" {
			break
		}
		days, err := config.ParseDuration(answer)
		if err != nil {
			fmt.Fprintf(out, "Please enter a positive number of days: %v\n", err)
			continue
		}
		cfg.Days = days
		break
	}

	for {
		answer, err := ask(fmt.Sprintf("Enter time step in hours [%s]: ", formatNumber(cfg.StepHours)))
		if err != nil {
			return err
		}
		step := cfg.StepHours
		if answer != "" {
			if step, err = config.ParseStep(answer); err != nil {
				fmt.Fprintf(out, "Please enter a positive number of hours: %v\n", err)
				continue
			}
		}
		if _, err := config.NewTimeline(time.Time{}, cfg.Days, step); err != nil {
			fmt.Fprintf(out, "Time step must fit at least once in %s days: %v\n", formatNumber(cfg.Days), err)
			continue
		}
		cfg.StepHours = step
		break
	}

	answer, err := ask("Save animation as MP4? (y/n) [n]: ")
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		cfg.Video.Enabled = true
	default:
		cfg.Video.Enabled = false
		return nil
	}

	name, err := ask("Enter MP4 filename (Enter for automatic): ")
	if err != nil {
		return err
	}
	if name != "" {
		if !strings.HasSuffix(name, ".mp4") {
			name += ".mp4"
		}
		cfg.Video.Name = name
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
