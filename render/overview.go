package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
	"gonum.org/v1/gonum/spatial/r3"
)

var seriesColors = map[model.Body]string{
	model.Sun:   "#FFD700",
	model.Earth: "#1E64FF",
	model.Moon:  "#B0B0B0",
}

// Overview renders an HTML page with the X-Y trajectories of every body and
// the Moon's path relative to Earth.
type Overview struct {
	// MaxPoints caps the points per series; longer tables are strided.
	MaxPoints int
}

// NewOverview returns an overview capped at 2000 points per series.
func NewOverview() *Overview { return &Overview{MaxPoints: 2000} }

// Render writes the page to w.
func (o *Overview) Render(w io.Writer, src core.TableSource, tl timectrl.Timeline, b core.Boundaries) error {
	if src == nil {
		return fmt.Errorf("overview: nil table source")
	}
	subtitle := fmt.Sprintf("start=%s frames=%d step=%gh phases: %s",
		tl.Start.Format("2006-01-02"), tl.Frames, tl.StepHours(), b)

	page := components.NewPage()
	page.PageTitle = "Sun-Earth-Moon trajectories"
	page.AddCharts(
		o.heliocentric(src, subtitle),
		o.geocentricMoon(src, subtitle),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render overview: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Save writes the page to path.
func (o *Overview) Save(path string, src core.TableSource, tl timectrl.Timeline, b core.Boundaries) error {
	var buf bytes.Buffer
	if err := o.Render(&buf, src, tl, b); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write overview: %w", err)
	}
	return nil
}

func (o *Overview) heliocentric(src core.TableSource, subtitle string) *charts.Scatter {
	// Square plot with symmetric ranges so the orbit is not distorted.
	pad := 0.0
	for _, body := range model.Bodies() {
		if t := src.Table(body); t != nil {
			for _, p := range t.Positions {
				pad = math.Max(pad, math.Max(math.Abs(p.X), math.Abs(p.Y)))
			}
		}
	}
	pad *= 1.05
	if pad == 0 {
		pad = 1
	}

	scatter := newSquareScatter("Heliocentric X-Y", subtitle, pad, "X (AU)", "Y (AU)")
	for _, body := range model.Bodies() {
		t := src.Table(body)
		if t == nil {
			continue
		}
		o.addSeries(scatter, body, t.Positions)
	}
	return scatter
}

func (o *Overview) geocentricMoon(src core.TableSource, subtitle string) *charts.Scatter {
	earth, moon := src.Table(model.Earth), src.Table(model.Moon)
	n := min(earth.Len(), moon.Len())
	rel := make([]r3.Vec, n)
	pad := 0.0
	for i := range n {
		rel[i] = r3.Sub(moon.Positions[i], earth.Positions[i])
		pad = math.Max(pad, math.Max(math.Abs(rel[i].X), math.Abs(rel[i].Y)))
	}
	pad *= 1.05
	if pad == 0 {
		pad = 0.003
	}
	scatter := newSquareScatter("Moon relative to Earth", subtitle, pad, "dX (AU)", "dY (AU)")
	o.addSeries(scatter, model.Moon, rel)
	o.addSeries(scatter, model.Earth, []r3.Vec{{}})
	return scatter
}

func newSquareScatter(title, subtitle string, pad float64, xName, yName string) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: yName, NameLocation: "middle", NameGap: 40}),
	)
	return scatter
}

func (o *Overview) addSeries(scatter *charts.Scatter, body model.Body, pts []r3.Vec) {
	stride := 1
	if o.MaxPoints > 0 && len(pts) > o.MaxPoints {
		stride = (len(pts) + o.MaxPoints - 1) / o.MaxPoints
	}
	data := make([]opts.ScatterData, 0, len(pts)/stride+1)
	for i := 0; i < len(pts); i += stride {
		data = append(data, opts.ScatterData{Value: []interface{}{pts[i].X, pts[i].Y}})
	}
	chartOpts := opts.ScatterChart{SymbolSize: 3}
	if body == model.Sun {
		chartOpts.SymbolSize = 12
	}
	scatter.AddSeries(body.Title(), data,
		charts.WithScatterChartOpts(chartOpts),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: seriesColors[body]}),
	)
}
