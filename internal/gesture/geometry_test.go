package gesture

import (
	"math"
	"testing"
)

func triangle() []Point {
	return []Point{
		{X: 200, Y: 600, T: 0},
		{X: 512, Y: 200, T: 100},
		{X: 824, Y: 600, T: 200},
		{X: 200, Y: 600, T: 300},
	}
}

func scaleTranslate(pts []Point, s float64, dx, dy int) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: int(float64(p.X)*s) + dx, Y: int(float64(p.Y)*s) + dy, T: p.T}
	}
	return out
}

func TestNormalizeScaleTranslateInvariance(t *testing.T) {
	base := Normalize(triangle())
	cases := []struct {
		name   string
		s      float64
		dx, dy int
	}{
		{"translate", 1, 300, -150},
		{"scale up", 3, 0, 0},
		{"scale down", 0.5, 0, 0},
		{"both", 2, 50, 120},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(scaleTranslate(triangle(), tc.s, tc.dx, tc.dy))
			if len(got) != len(base) {
				t.Fatalf("length %d != %d", len(got), len(base))
			}
			for i := range got {
				if abs(got[i].X-base[i].X) > 1 || abs(got[i].Y-base[i].Y) > 1 {
					t.Errorf("point %d: got (%d,%d), want (%d,%d) +/-1",
						i, got[i].X, got[i].Y, base[i].X, base[i].Y)
				}
			}
		})
	}
}

func TestNormalizeStraightLines(t *testing.T) {
	// Perfectly horizontal and vertical strokes must survive the width/height
	// clamp instead of dividing by zero.
	horiz := []Point{{X: 100, Y: 400}, {X: 500, Y: 400}, {X: 900, Y: 400}}
	got := Normalize(horiz)
	if got[0].X != 0 || got[2].X != NormMax {
		t.Errorf("horizontal endpoints: got %v", got)
	}
	for _, p := range got {
		if p.Y != 0 {
			t.Errorf("horizontal stroke should normalize to y=0, got %v", got)
		}
	}

	vert := []Point{{X: 400, Y: 100}, {X: 400, Y: 900}}
	got = Normalize(vert)
	if got[0].Y != 0 || got[1].Y != NormMax {
		t.Errorf("vertical endpoints: got %v", got)
	}
}

func TestNormalizeRelativeTimestamps(t *testing.T) {
	pts := []Point{{X: 0, Y: 0, T: 5000}, {X: 100, Y: 100, T: 5250}}
	got := Normalize(pts)
	if got[0].T != 0 || got[1].T != 250 {
		t.Errorf("timestamps: got %d, %d; want 0, 250", got[0].T, got[1].T)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Errorf("Normalize(nil) = %v, want nil", got)
	}
}

func TestResampleLengthAndEndpoints(t *testing.T) {
	trajs := map[string][]Point{
		"triangle": triangle(),
		"two points": {
			{X: 0, Y: 0, T: 0}, {X: 1000, Y: 0, T: 100},
		},
		"dense line": denseLine(0, 0, 1000, 1000, 500),
		"single point": {
			{X: 42, Y: 42, T: 0},
		},
	}
	for name, traj := range trajs {
		for _, n := range []int{2, 17, 40, 100} {
			got := Resample(traj, n)
			if len(got) != n {
				t.Errorf("%s n=%d: len=%d", name, n, len(got))
				continue
			}
			first, last := traj[0], traj[len(traj)-1]
			if got[0].X != first.X || got[0].Y != first.Y {
				t.Errorf("%s n=%d: first point %v, want %v", name, n, got[0], first)
			}
			if got[n-1].X != last.X || got[n-1].Y != last.Y {
				t.Errorf("%s n=%d: last point %v, want %v", name, n, got[n-1], last)
			}
		}
	}
}

func TestResampleArcLengthUniformity(t *testing.T) {
	for name, traj := range map[string][]Point{
		"triangle":   triangle(),
		"dense line": denseLine(10, 20, 900, 700, 300),
	} {
		n := ResamplePoints
		got := Resample(traj, n)

		total := pathLength(traj)
		want := total / float64(n-1)
		for i := 1; i < n; i++ {
			d := Dist(got[i-1], got[i])
			// 5% band plus a little room for integer-truncated coordinates.
			if math.Abs(d-want) > 0.05*want+3.0 {
				t.Errorf("%s: segment %d length %.2f, want %.2f +/-5%%", name, i, d, want)
			}
		}
	}
}

func TestResampleDegenerate(t *testing.T) {
	// All points identical: arc length is zero, so the output is n copies.
	same := []Point{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}}
	got := Resample(same, 10)
	if len(got) != 10 {
		t.Fatalf("len=%d, want 10", len(got))
	}
	for _, p := range got {
		if p.X != 5 || p.Y != 5 {
			t.Errorf("expected copies of (5,5), got %v", p)
		}
	}

	if got := Resample(nil, 10); got != nil {
		t.Errorf("Resample(nil) = %v, want nil", got)
	}
}

func TestPreprocessCanonicalForm(t *testing.T) {
	got := Preprocess(denseLine(100, 100, 400, 900, 120))
	if len(got) != ResamplePoints {
		t.Fatalf("len=%d, want %d", len(got), ResamplePoints)
	}
	for i, p := range got {
		if p.X < 0 || p.X > NormMax || p.Y < 0 || p.Y > NormMax {
			t.Errorf("point %d out of normalized box: %v", i, p)
		}
	}
}

func denseLine(x0, y0, x1, y1, n int) []Point {
	pts := make([]Point, n)
	for i := range pts {
		f := float64(i) / float64(n-1)
		pts[i] = Point{
			X: x0 + int(f*float64(x1-x0)),
			Y: y0 + int(f*float64(y1-y0)),
			T: uint32(i * 10),
		}
	}
	return pts
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
