package render

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/vg"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestProjectorAxes(t *testing.T) {
	box := core.WideBox()

	// Looking along +X from the side: screen right is +Y, up is +Z.
	side := NewProjector(box, core.View{Elevation: 0, Azimuth: 0})
	u, v, depth := side.Project(r3.Vec{X: 0, Y: 2, Z: 0.5})
	if !near(u, 2) || !near(v, 1.5) || !near(depth, 0) {
		t.Fatalf("side Project = (%v, %v, %v), want (2, 1.5, 0)", u, v, depth)
	}

	// Looking straight down: right is +Y, up is -X.
	top := NewProjector(box, core.View{Elevation: 90, Azimuth: 0})
	u, v, depth = top.Project(r3.Vec{X: 2, Y: 0, Z: 0.5})
	if !near(u, 0) || !near(v, -2) || !near(depth, 1.5) {
		t.Fatalf("top Project = (%v, %v, %v), want (0, -2, 1.5)", u, v, depth)
	}
}

func TestProjectorStaysWithinExtent(t *testing.T) {
	earth := r3.Vec{X: 0.8, Y: -0.6, Z: 0.01}
	for _, box := range []core.CameraBox{core.WideBox(), core.CenteredBox(earth, 0.003, 0.2)} {
		for az := 0.0; az < 360; az += 7.5 {
			p := NewProjector(box, core.View{Elevation: 20, Azimuth: az})
			for _, c := range box.Corners() {
				u, v, _ := p.Project(c)
				if math.Hypot(u, v) > p.Extent()+1e-9 {
					t.Fatalf("corner %v at azimuth %v projects to (%v, %v) outside extent %v", c, az, u, v, p.Extent())
				}
			}
		}
	}
}

func TestProjectorDegenerateAxis(t *testing.T) {
	box := core.CameraBox{X: core.Range{Min: 1, Max: 1}, Y: core.Range{Min: -1, Max: 1}, Z: core.Range{Min: -1, Max: 1}}
	n := NewProjector(box, core.View{}).Normalize(r3.Vec{X: 5, Y: 1, Z: 0})
	if n.X != 0 || !near(n.Y, 2) {
		t.Fatalf("Normalize on zero-span axis = %v", n)
	}
}

func TestVisibleRuns(t *testing.T) {
	box := core.CameraBox{X: core.Range{Min: 0, Max: 10}, Y: core.Range{Min: -1, Max: 1}, Z: core.Range{Min: -1, Max: 1}}
	pts := []r3.Vec{{X: 1}, {X: 2}, {X: 20}, {X: 3}, {X: -5}, {X: 4}, {X: 5}, {X: 6}}
	got := visibleRuns(box, pts)
	want := [][]r3.Vec{{{X: 1}, {X: 2}}, {{X: 4}, {X: 5}, {X: 6}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("visibleRuns mismatch (-want +got):\n%s", diff)
	}
	if runs := visibleRuns(box, []r3.Vec{{X: 50}, {X: 60}}); len(runs) != 0 {
		t.Fatalf("expected no runs outside the box, got %v", runs)
	}
}

func sampleDescriptor(frame int) core.FrameDescriptor {
	earth := r3.Vec{X: 0.8, Y: -0.6}
	moon := r3.Add(earth, r3.Vec{X: 0.0025})
	trail := make([]r3.Vec, 0, frame+1)
	for i := 0; i <= frame; i++ {
		a := float64(i) * 0.01
		trail = append(trail, r3.Vec{X: math.Cos(a), Y: math.Sin(a)})
	}
	return core.FrameDescriptor{
		Frame: frame,
		Total: 720,
		Time:  time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC).Add(time.Duration(frame) * time.Hour),
		Phase: core.PhaseSunEarth,
		Bodies: []core.BodyState{
			{Body: model.Sun},
			{Body: model.Earth, Position: earth},
			{Body: model.Moon, Position: moon},
		},
		Trails: []core.Trail{{Body: model.Earth, Window: core.TrailWindow(frame, 200), Points: trail}},
		Camera: core.CameraWide,
		Box:    core.WideBox(),
		View:   core.View{Elevation: 20, Azimuth: float64(frame) * 0.5},
	}
}

func TestWritePNG(t *testing.T) {
	r := NewFrameRenderer()
	r.Width, r.Height = 4*vg.Inch, 3*vg.Inch

	caption := core.Caption{Title: "Sun-Earth-Moon", Date: "2025-08-14 07:00 UTC", Phase: "Phase 2"}
	var buf bytes.Buffer
	if err := r.WritePNG(&buf, sampleDescriptor(7), caption); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() <= b.Dy() || b.Dy() == 0 {
		t.Fatalf("image bounds = %v, want landscape", b)
	}
}

func TestPlotCullsBodiesOutsideBox(t *testing.T) {
	r := NewFrameRenderer()
	d := sampleDescriptor(3)
	d.Box = core.CenteredBox(d.Bodies[1].Position, 0.003, 0.2)
	d.Camera = core.CameraFollow

	p, err := r.Plot(d, core.Caption{Title: "zoom"})
	if err != nil {
		t.Fatalf("Plot: %v", err)
	}
	// The Sun lies outside the follow box and is skipped.
	var buf bytes.Buffer
	wt, err := p.WriterTo(3*vg.Inch, 3*vg.Inch, "png")
	if err != nil {
		t.Fatalf("WriterTo: %v", err)
	}
	if _, err := wt.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("empty png")
	}
}

func TestSaveFrame(t *testing.T) {
	r := NewFrameRenderer()
	r.Width, r.Height = 3*vg.Inch, 2*vg.Inch
	dir := t.TempDir()

	path, err := r.SaveFrame(dir, sampleDescriptor(12), core.Caption{Title: "t"})
	if err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}
	if want := filepath.Join(dir, "frame_00012.png"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Fatalf("frame file missing or empty: %v", err)
	}

	if _, err := r.SaveFrame(filepath.Join(dir, "missing"), sampleDescriptor(0), core.Caption{}); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestClearFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{FrameFilename(0), FrameFilename(1), FrameFilename(42), "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	n, err := ClearFrames(dir)
	if err != nil {
		t.Fatalf("ClearFrames: %v", err)
	}
	if n != 3 {
		t.Fatalf("removed = %d, want 3", n)
	}
	left, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(left) != 1 || left[0].Name() != "notes.txt" {
		t.Fatalf("left in dir = %v, want only notes.txt", left)
	}
	if n, err := ClearFrames(filepath.Join(dir, "missing")); err != nil || n != 0 {
		t.Fatalf("ClearFrames(missing) = %d, %v, want 0, nil", n, err)
	}
}

type fakeRunner struct {
	name string
	args []string
	out  []byte
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name, f.args = name, args
	return f.out, f.err
}

func TestEncoderArgs(t *testing.T) {
	runner := &fakeRunner{}
	enc := NewEncoder()
	enc.Runner = runner

	if err := enc.Encode(context.Background(), "/tmp/frames", "out.mp4", 720); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []string{
		"-y",
		"-framerate", "10",
		"-i", filepath.Join("/tmp/frames", "frame_%05d.png"),
		"-frames:v", "720",
		"-c:v", "libx264",
		"-b:v", "1800k",
		"-pix_fmt", "yuv420p",
		"-metadata", "artist=Sun-Earth-Moon Simulation",
		"out.mp4",
	}
	if runner.name != "ffmpeg" {
		t.Fatalf("binary = %q, want ffmpeg", runner.name)
	}
	if diff := cmp.Diff(want, runner.args); diff != "" {
		t.Fatalf("ffmpeg args mismatch (-want +got):\n%s", diff)
	}
}

func TestEncoderFailureIncludesOutput(t *testing.T) {
	runner := &fakeRunner{out: []byte("Unknown encoder 'libx264'\n"), err: errors.New("exit status 1")}
	enc := NewEncoder()
	enc.Runner = runner

	err := enc.Encode(context.Background(), "frames", "out.mp4", 10)
	if err == nil || !strings.Contains(err.Error(), "Unknown encoder 'libx264'") {
		t.Fatalf("Encode err = %v, want ffmpeg output included", err)
	}

	runner.err = nil
	if err := enc.Encode(context.Background(), "frames", "out.mp4", 0); err == nil {
		t.Fatalf("expected error for zero frames")
	}

	enc.FPS = 0
	if err := enc.Encode(context.Background(), "frames", "out.mp4", 10); err == nil {
		t.Fatalf("expected error for zero fps")
	}
}

func TestEncoderMissingBinary(t *testing.T) {
	enc := NewEncoder()
	enc.FFmpeg = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	if err := enc.Encode(context.Background(), "frames", "out.mp4", 10); !errors.Is(err, ErrNoFFmpeg) {
		t.Fatalf("Encode err = %v, want ErrNoFFmpeg", err)
	}
}

func TestVideoFilename(t *testing.T) {
	date := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"":            "enhanced_sun_earth_moon_2025_08_14.mp4",
		"orbit":       "orbit.mp4",
		"orbit.mp4":   "orbit.mp4",
		" Orbit.MP4 ": "Orbit.MP4",
	}
	for custom, want := range cases {
		if got := VideoFilename(date, custom); got != want {
			t.Fatalf("VideoFilename(%q) = %q, want %q", custom, got, want)
		}
	}
}

type tables map[model.Body]*model.PositionTable

func (m tables) Table(b model.Body) *model.PositionTable { return m[b] }

func TestOverviewRender(t *testing.T) {
	tl, err := timectrl.NewTimeline(time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC), 3, 1)
	if err != nil {
		t.Fatalf("NewTimeline: %v", err)
	}
	src := tables{}
	for _, b := range model.Bodies() {
		tbl := model.NewPositionTable(b, tl.Frames)
		pos := tbl.Positions
		for i := range pos {
			a := float64(i) / float64(tl.Frames)
			switch b {
			case model.Earth:
				pos[i] = r3.Vec{X: math.Cos(a), Y: math.Sin(a)}
			case model.Moon:
				pos[i] = r3.Vec{X: math.Cos(a) + 0.0025*math.Cos(13*a), Y: math.Sin(a) + 0.0025*math.Sin(13*a)}
			}
		}
		src[b] = tbl
	}

	ov := NewOverview()
	ov.MaxPoints = 10
	var buf bytes.Buffer
	if err := ov.Render(&buf, src, tl, core.EnhancedPolicy.Boundaries(tl.Frames)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"Heliocentric X-Y", "Moon relative to Earth", "echarts", "Earth"} {
		if !strings.Contains(html, want) {
			t.Fatalf("overview html missing %q", want)
		}
	}

	path := filepath.Join(t.TempDir(), "overview.html")
	if err := ov.Save(path, src, tl, core.EnhancedPolicy.Boundaries(tl.Frames)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := ov.Render(&buf, nil, tl, core.Boundaries{}); err == nil {
		t.Fatalf("expected error for nil source")
	}
}
