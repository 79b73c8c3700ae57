package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/model"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// FramePattern is the file name pattern of rendered frames.
const FramePattern = "frame_%05d.png"

// FrameFilename returns the file name of frame.
func FrameFilename(frame int) string { return fmt.Sprintf(FramePattern, frame) }

// BodyStyle is how a body and its trail are drawn.
type BodyStyle struct {
	Color      color.Color
	Size       float64 // marker area, points squared
	TrailColor color.Color
	TrailWidth vg.Length
}

// Radius returns the marker radius for Size.
func (s BodyStyle) Radius() vg.Length { return vg.Points(math.Sqrt(s.Size) / 2) }

// DefaultStyles returns the standard body styles.
func DefaultStyles() map[model.Body]BodyStyle {
	return map[model.Body]BodyStyle{
		model.Sun: {
			Color:      color.RGBA{R: 255, G: 215, B: 0, A: 255},
			Size:       200,
			TrailColor: color.NRGBA{R: 255, G: 215, B: 0, A: 102},
			TrailWidth: vg.Points(1),
		},
		model.Earth: {
			Color:      color.RGBA{B: 255, A: 255},
			Size:       50,
			TrailColor: color.NRGBA{B: 255, A: 102},
			TrailWidth: vg.Points(1.5),
		},
		model.Moon: {
			Color:      color.RGBA{R: 128, G: 128, B: 128, A: 255},
			Size:       20,
			TrailColor: color.NRGBA{R: 128, G: 128, B: 128, A: 153},
			TrailWidth: vg.Points(1),
		},
	}
}

var boxColor = color.RGBA{R: 190, G: 190, B: 190, A: 255}

// FrameRenderer draws frame descriptors as PNG images.
type FrameRenderer struct {
	Width, Height vg.Length
	Styles        map[model.Body]BodyStyle
}

// NewFrameRenderer returns a renderer producing 10x7.5 inch frames.
func NewFrameRenderer() *FrameRenderer {
	return &FrameRenderer{
		Width:  10 * vg.Inch,
		Height: 7.5 * vg.Inch,
		Styles: DefaultStyles(),
	}
}

// Plot builds the plot for one frame.
func (r *FrameRenderer) Plot(desc core.FrameDescriptor, caption core.Caption) (*plot.Plot, error) {
	proj := NewProjector(desc.Box, desc.View)

	p := plot.New()
	p.Title.Text = strings.Join(caption.Lines(), "\n")
	p.HideAxes()
	ext := proj.Extent()
	p.X.Min, p.X.Max = -ext, ext
	p.Y.Min, p.Y.Max = -ext, ext
	p.Legend.Top = true
	p.Legend.Left = true

	corners := desc.Box.Corners()
	for _, e := range boxEdges {
		l, err := plotter.NewLine(projectAll(proj, corners[e[0]], corners[e[1]]))
		if err != nil {
			return nil, fmt.Errorf("box edge: %w", err)
		}
		l.LineStyle.Color = boxColor
		l.LineStyle.Width = vg.Points(0.5)
		p.Add(l)
	}

	for _, tr := range desc.Trails {
		if !tr.Drawable() {
			continue
		}
		style := r.style(tr.Body)
		for _, run := range visibleRuns(desc.Box, tr.Points) {
			l, err := plotter.NewLine(projectAll(proj, run...))
			if err != nil {
				return nil, fmt.Errorf("%s trail: %w", tr.Body, err)
			}
			l.LineStyle.Color = style.TrailColor
			l.LineStyle.Width = style.TrailWidth
			p.Add(l)
		}
	}

	type marker struct {
		body  model.Body
		xy    plotter.XY
		depth float64
	}
	var markers []marker
	for _, b := range desc.Bodies {
		if !desc.Box.Contains(b.Position) {
			continue
		}
		u, v, depth := proj.Project(b.Position)
		markers = append(markers, marker{body: b.Body, xy: plotter.XY{X: u, Y: v}, depth: depth})
	}
	// Far bodies first so nearer ones are painted over them.
	sort.SliceStable(markers, func(i, j int) bool { return markers[i].depth < markers[j].depth })
	for _, m := range markers {
		s, err := plotter.NewScatter(plotter.XYs{m.xy})
		if err != nil {
			return nil, fmt.Errorf("%s marker: %w", m.body, err)
		}
		style := r.style(m.body)
		s.GlyphStyle = draw.GlyphStyle{Color: style.Color, Radius: style.Radius(), Shape: draw.CircleGlyph{}}
		p.Add(s)
		p.Legend.Add(m.body.Title(), s)
	}
	return p, nil
}

// WritePNG renders one frame as PNG to w.
func (r *FrameRenderer) WritePNG(w io.Writer, desc core.FrameDescriptor, caption core.Caption) error {
	p, err := r.Plot(desc, caption)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write frame %d: %w", desc.Frame, err)
	}
	return nil
}

// SaveFrame writes the frame into dir and returns the file path.
func (r *FrameRenderer) SaveFrame(dir string, desc core.FrameDescriptor, caption core.Caption) (string, error) {
	path := filepath.Join(dir, FrameFilename(desc.Frame))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create frame file: %w", err)
	}
	if err := r.WritePNG(f, desc, caption); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close frame file: %w", err)
	}
	return path, nil
}

// ClearFrames removes frame images left in dir by an earlier run and returns
// how many were deleted. A missing dir is not an error.
func ClearFrames(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return 0, fmt.Errorf("list frames in %s: %w", dir, err)
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("remove stale frame: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (r *FrameRenderer) style(b model.Body) BodyStyle {
	if s, ok := r.Styles[b]; ok {
		return s
	}
	return DefaultStyles()[b]
}

func projectAll(proj *Projector, pts ...r3.Vec) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i].X, xys[i].Y, _ = proj.Project(pt)
	}
	return xys
}

// visibleRuns splits pts into contiguous runs inside box, dropping runs
// shorter than two points.
func visibleRuns(box core.CameraBox, pts []r3.Vec) [][]r3.Vec {
	var runs [][]r3.Vec
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= 2 {
			runs = append(runs, pts[start:end])
		}
		start = -1
	}
	for i, pt := range pts {
		if box.Contains(pt) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(pts))
	return runs
}
