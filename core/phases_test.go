package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestBoundariesInvariant(t *testing.T) {
	for _, policy := range []PhasePolicy{EnhancedPolicy, ClassicPolicy, SinglePhasePolicy} {
		for n := 0; n <= 3000; n++ {
			b := policy.Boundaries(n)
			if b.SunEnd < 0 || b.SunEnd > b.SunEarthEnd || b.SunEarthEnd > b.Total || b.Total != n {
				t.Fatalf("Boundaries(%d) = %+v violates 0 <= b1 <= b2 <= b3 = N", n, b)
			}
		}
	}
}

func TestEnhancedBoundaries(t *testing.T) {
	cases := []struct {
		total      int
		b1, b2, b3 int
	}{
		{720, 120, 360, 720},
		{72, 50, 72, 72},
		{30, 30, 30, 30},
		{150, 50, 100, 150},
		{336, 56, 168, 336},
		{960, 160, 480, 960},
		{0, 0, 0, 0},
	}
	for _, tc := range cases {
		got := EnhancedPolicy.Boundaries(tc.total)
		want := Boundaries{SunEnd: tc.b1, SunEarthEnd: tc.b2, Total: tc.b3}
		if got != want {
			t.Fatalf("EnhancedPolicy.Boundaries(%d) = %+v, want %+v", tc.total, got, want)
		}
	}
}

func TestMinimumClampsBelowShare(t *testing.T) {
	// 240 frames: 240/6 = 40 < 50, so phase 1 is held at the minimum.
	b := EnhancedPolicy.Boundaries(240)
	if b.SunEnd != 50 {
		t.Fatalf("SunEnd = %d, want 50", b.SunEnd)
	}
	// 40 frames: the minimum is capped at N.
	b = EnhancedPolicy.Boundaries(40)
	if b.SunEnd != 40 || b.SunEarthEnd != 40 {
		t.Fatalf("Boundaries(40) = %+v, want everything capped at 40", b)
	}
}

func TestClassicBoundariesAreThirds(t *testing.T) {
	b := ClassicPolicy.Boundaries(90)
	if b != (Boundaries{SunEnd: 30, SunEarthEnd: 60, Total: 90}) {
		t.Fatalf("ClassicPolicy.Boundaries(90) = %+v", b)
	}
	b = ClassicPolicy.Boundaries(2)
	if b != (Boundaries{SunEnd: 0, SunEarthEnd: 1, Total: 2}) {
		t.Fatalf("ClassicPolicy.Boundaries(2) = %+v", b)
	}
}

func TestPhaseOf(t *testing.T) {
	b := EnhancedPolicy.Boundaries(720)
	cases := map[int]Phase{
		0:   PhaseSun,
		119: PhaseSun,
		120: PhaseSunEarth,
		359: PhaseSunEarth,
		360: PhaseAll,
		719: PhaseAll,
	}
	for frame, want := range cases {
		if got := b.PhaseOf(frame); got != want {
			t.Fatalf("PhaseOf(%d) = %s, want %s", frame, got, want)
		}
	}
	if lo, hi := b.Range(PhaseSunEarth); lo != 120 || hi != 360 {
		t.Fatalf("Range(sun-earth) = [%d,%d), want [120,360)", lo, hi)
	}
}

func TestSkippedPhaseHasEmptyRange(t *testing.T) {
	b := EnhancedPolicy.Boundaries(72)
	if lo, hi := b.Range(PhaseAll); lo != hi {
		t.Fatalf("Range(all) for 72 frames = [%d,%d), want empty", lo, hi)
	}
	for f := 0; f < 72; f++ {
		if b.PhaseOf(f) == PhaseAll {
			t.Fatalf("frame %d in skipped phase", f)
		}
	}
}

func TestTrailWindowBounds(t *testing.T) {
	for _, n := range []int{0, 1, 50, 100, 200} {
		for frame := 0; frame < 500; frame++ {
			w := TrailWindow(frame, n)
			if w.Lo < 0 || w.Hi != frame+1 || w.Lo > frame {
				t.Fatalf("TrailWindow(%d,%d) = %+v out of bounds", frame, n, w)
			}
			if w.Len() > n+1 {
				t.Fatalf("TrailWindow(%d,%d) len = %d, want <= %d", frame, n, w.Len(), n+1)
			}
		}
	}
	if w := TrailWindow(-3, 10); w.Len() != 0 || w.Drawable() {
		t.Fatalf("TrailWindow(-3) = %+v, want empty", w)
	}
	if TrailWindow(0, 200).Drawable() {
		t.Fatalf("single-point trail should not be drawable")
	}
	if !TrailWindow(1, 200).Drawable() {
		t.Fatalf("two-point trail should be drawable")
	}
	if w := TrailWindow(300, 200); w.Lo != 100 || w.Hi != 301 {
		t.Fatalf("TrailWindow(300,200) = %+v, want [100,301)", w)
	}
}

func TestCameraBoxes(t *testing.T) {
	wide := WideBox()
	if !wide.Contains(r3.Vec{X: 1, Y: -1.9, Z: 0.4}) || wide.Contains(r3.Vec{Z: 0.6}) {
		t.Fatalf("WideBox containment wrong: %+v", wide)
	}

	earth := r3.Vec{X: 0.8, Y: -0.6, Z: 0.01}
	box := CenteredBox(earth, 0.003, 0.2)
	if got := box.Center(); r3.Norm(r3.Sub(got, earth)) > 1e-12 {
		t.Fatalf("CenteredBox center = %v, want %v", got, earth)
	}
	if math.Abs(box.Z.Span()-0.0012) > 1e-12 || math.Abs(box.X.Span()-0.006) > 1e-12 {
		t.Fatalf("CenteredBox spans x=%v z=%v", box.X.Span(), box.Z.Span())
	}
	moon := r3.Add(earth, r3.Vec{X: 0.0025})
	if !box.Contains(moon) {
		t.Fatalf("moon at %v should be inside %+v", moon, box)
	}
	if box.Contains(r3.Vec{}) {
		t.Fatalf("sun should lie outside the follow box")
	}
	corners := box.Corners()
	if corners[0] != (r3.Vec{X: box.X.Min, Y: box.Y.Min, Z: box.Z.Min}) || corners[7] != (r3.Vec{X: box.X.Max, Y: box.Y.Max, Z: box.Z.Max}) {
		t.Fatalf("unexpected corners %v", corners)
	}
}

func TestViewAtWraps(t *testing.T) {
	cases := []struct {
		frame        int
		offset, rate float64
		want         float64
	}{
		{0, 0, 0.5, 0},
		{3, 0, 0.5, 1.5},
		{720, 0, 0.5, 0},
		{721, 0, 0.5, 0.5},
		{400, 0, 1, 40},
		{10, 45, 0, 45},
	}
	for _, tc := range cases {
		v := ViewAt(tc.frame, 20, tc.offset, tc.rate)
		if math.Abs(v.Azimuth-tc.want) > 1e-9 || v.Elevation != 20 {
			t.Fatalf("ViewAt(%d, off=%v, rate=%v) = %+v, want azimuth %v", tc.frame, tc.offset, tc.rate, v, tc.want)
		}
	}
}

func TestShareOf(t *testing.T) {
	if got := (Share{2, 3}).Of(100); got != 66 {
		t.Fatalf("2/3 of 100 = %d, want 66", got)
	}
	if got := (Share{1, 0}).Of(100); got != 0 {
		t.Fatalf("1/0 of 100 = %d, want 0", got)
	}
}
